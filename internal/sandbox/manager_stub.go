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

//go:build !linux

package sandbox

import (
	"context"
	"fmt"
	"io"

	"github.com/criyle/go-sandbox/runner"

	"github.com/jacknavodari/super-ollama-agent/internal/config"
)

// Manager is a stub for non-Linux platforms.
type Manager struct {
	cfg config.Sandbox
}

// NewManager constructs a stub manager.
func NewManager(cfg config.Sandbox) *Manager {
	return &Manager{cfg: cfg}
}

// Start is a no-op on non-Linux platforms.
func (m *Manager) Start() error {
	return fmt.Errorf("sandbox not supported on this platform")
}

// Exec is unsupported on non-Linux platforms.
func (m *Manager) Exec(_ context.Context, _ string, _ []string, _ io.Reader, _ io.Writer, _ io.Writer) (runner.Result, error) {
	return runner.Result{}, fmt.Errorf("sandbox not supported on this platform")
}

// Close is a no-op on non-Linux platforms.
func (m *Manager) Close() error {
	return nil
}
