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
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/criyle/go-sandbox/runner"
)

// fakeShellRunner records the command it receives and plays back a
// canned result.
type fakeShellRunner struct {
	lastCmd  string
	lastArgs []string
	stdout   string
	exit     int
}

func (f *fakeShellRunner) Exec(ctx context.Context, cmd string, args []string, stdin io.Reader, stdout, stderr io.Writer) (runner.Result, error) {
	f.lastCmd = cmd
	f.lastArgs = args
	if stdout != nil {
		io.WriteString(stdout, f.stdout)
	}
	return runner.Result{ExitStatus: f.exit}, nil
}

func TestExecuteShellRoutesThroughSandbox(t *testing.T) {
	fake := &fakeShellRunner{stdout: "sandboxed\n"}
	SetShellRunner(fake)
	defer SetShellRunner(nil)

	registry := newTestRegistry(t)
	result := registry.ExecuteRecord(context.Background(), callRecord("execute_shell", map[string]interface{}{
		"command": "echo sandboxed",
	}))

	if result.Failed() {
		t.Fatalf("unexpected failure: %v", result.Err)
	}
	if !strings.Contains(result.Result, "sandboxed") {
		t.Errorf("expected sandbox output, got %q", result.Result)
	}
	if fake.lastCmd != "/bin/sh" {
		t.Errorf("expected /bin/sh, got %q", fake.lastCmd)
	}
	if len(fake.lastArgs) != 2 || fake.lastArgs[0] != "-c" || fake.lastArgs[1] != "echo sandboxed" {
		t.Errorf("unexpected args: %v", fake.lastArgs)
	}
}

func TestExecuteShellSandboxNonZeroExit(t *testing.T) {
	fake := &fakeShellRunner{stdout: "boom\n", exit: 3}
	SetShellRunner(fake)
	defer SetShellRunner(nil)

	registry := newTestRegistry(t)
	result := registry.ExecuteRecord(context.Background(), callRecord("execute_shell", map[string]interface{}{
		"command": "exit 3",
	}))

	if !result.Failed() {
		t.Fatal("expected failure for non-zero exit")
	}
	if !errors.Is(result.Err, ErrNonZeroExit) {
		t.Errorf("expected ErrNonZeroExit, got %v", result.Err)
	}
	if !strings.Contains(result.Err.Error(), "3") {
		t.Errorf("expected exit code in error, got %v", result.Err)
	}
	if !strings.Contains(result.Result, "boom") {
		t.Errorf("expected command output in result, got %q", result.Result)
	}
}
