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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

func (b *builtins) executeShell(ctx context.Context, args map[string]interface{}) (string, error) {
	command, err := extractStringArg(args, "command")
	if err != nil {
		return "", err
	}
	if err := ensureContext(ctx); err != nil {
		return "", interruptError(err)
	}

	if r := currentShellRunner(); r != nil {
		return runShellSandboxed(ctx, r, command)
	}

	cmd := newShellCommand(ctx, command)
	cmd.Dir = b.workdir
	output, runErr := cmd.CombinedOutput()
	out := string(output)

	// The child is killed on cancellation; classify by the context
	// first so interrupts and timeouts are not reported as plain
	// non-zero exits.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, interruptError(ctxErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return out, fmt.Errorf("%w %d", ErrNonZeroExit, exitErr.ExitCode())
		}
		return out, fmt.Errorf("command failed to start: %v", runErr)
	}
	if strings.TrimSpace(out) == "" {
		return "Command executed successfully (exit status 0), but produced no output.", nil
	}
	return out, nil
}

// runShellSandboxed executes the command through the installed sandbox
// runner. Inside the container the working directory is already /w, so
// no Dir is set here.
func runShellSandboxed(ctx context.Context, r ShellRunner, command string) (string, error) {
	var buf bytes.Buffer
	result, err := r.Exec(ctx, "/bin/sh", []string{"-c", command}, nil, &buf, &buf)
	out := buf.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, interruptError(ctxErr)
	}
	if err != nil {
		return out, fmt.Errorf("sandbox execution failed: %v", err)
	}
	if result.ExitStatus != 0 {
		return out, fmt.Errorf("%w %d", ErrNonZeroExit, result.ExitStatus)
	}
	if strings.TrimSpace(out) == "" {
		return "Command executed successfully (exit status 0), but produced no output.", nil
	}
	return out, nil
}

func interruptError(ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: command timed out", ErrInterrupted)
	}
	return fmt.Errorf("%w: command canceled", ErrInterrupted)
}
