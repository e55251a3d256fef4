// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tools

import (
	"context"
	"io"
	"sync"

	"github.com/criyle/go-sandbox/runner"
)

// ShellRunner runs commands inside an isolated sandbox.
type ShellRunner interface {
	Exec(ctx context.Context, cmd string, args []string, stdin io.Reader, stdout, stderr io.Writer) (runner.Result, error)
}

var (
	shellRunnerMu sync.RWMutex
	shellRunner   ShellRunner
)

// SetShellRunner installs the sandbox runner used by execute_shell.
// A nil runner restores direct host execution.
func SetShellRunner(r ShellRunner) {
	shellRunnerMu.Lock()
	shellRunner = r
	shellRunnerMu.Unlock()
}

func currentShellRunner() ShellRunner {
	shellRunnerMu.RLock()
	defer shellRunnerMu.RUnlock()
	return shellRunner
}
