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

import "errors"

// Tool failures are reported back into the conversation as data, never
// thrown past the registry. These sentinels let callers classify a
// ToolResult with errors.Is while the Result string carries the
// model-facing message.
var (
	// ErrUnknownTool indicates the requested tool is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments indicates tool arguments are missing or malformed.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrToolDenied indicates a tool is blocked by the current policy.
	ErrToolDenied = errors.New("tool blocked by policy")

	// ErrToolRequiresApproval indicates a tool needs explicit approval
	// before running.
	ErrToolRequiresApproval = errors.New("tool requires approval")

	// ErrNonZeroExit indicates a shell command completed with a non-zero
	// exit status.
	ErrNonZeroExit = errors.New("command exited with non-zero status")

	// ErrInterrupted indicates a running tool was canceled by the user.
	ErrInterrupted = errors.New("tool execution interrupted")
)
