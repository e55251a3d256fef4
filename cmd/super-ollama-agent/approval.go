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

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/jacknavodari/super-ollama-agent/internal/agent"
	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
)

type approvalDecision int

const (
	approvalUnknown approvalDecision = iota
	approvalYes
	approvalNo
	approvalAlways
)

type toolPromptFunc func(call conversation.ToolCallRecord) (approvalDecision, error)

func newToolApprover() agent.ApprovalFunc {
	return newToolApproverWithPrompt(promptToolApproval)
}

func newToolApproverWithPrompt(prompt toolPromptFunc) agent.ApprovalFunc {
	alwaysAllowed := make(map[string]bool)
	var mu sync.RWMutex
	return func(call conversation.ToolCallRecord) bool {
		toolName := call.Tool
		mu.RLock()
		allowed := alwaysAllowed[toolName]
		mu.RUnlock()
		if allowed {
			return true
		}

		decision, err := prompt(call)
		if err != nil {
			return false
		}
		if decision == approvalAlways {
			mu.Lock()
			alwaysAllowed[toolName] = true
			mu.Unlock()
			return true
		}
		return decision == approvalYes
	}
}

func promptToolApproval(call conversation.ToolCallRecord) (approvalDecision, error) {
	input := os.Stdin
	output := io.Writer(os.Stdout)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
			input = tty
			output = tty
			defer tty.Close()
		} else {
			return approvalNo, fmt.Errorf("no TTY available for tool approval")
		}
	}
	reader := bufio.NewReader(input)
	name := call.Tool
	if name == "" {
		name = "unknown_tool"
	}

	for {
		fmt.Fprintf(output, "Allow tool %s%s? (Yes/no/always): ", name, formatApprovalArgs(call.Arguments))
		line, err := reader.ReadString('\n')
		if err != nil {
			return approvalNo, err
		}
		decision := parseApprovalInput(line)
		switch decision {
		case approvalYes, approvalNo, approvalAlways:
			return decision, nil
		default:
			fmt.Fprintln(output, "Please enter yes, no, or always.")
		}
	}
}

// formatApprovalArgs renders tool arguments for the prompt, leaving
// out file content so a large write does not flood the terminal.
func formatApprovalArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	redacted := make(map[string]interface{}, len(args))
	for k, v := range args {
		if k == "content" {
			continue
		}
		redacted[k] = v
	}
	encoded, err := json.Marshal(redacted)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" with args %s", string(encoded))
}

func parseApprovalInput(input string) approvalDecision {
	normalized := strings.TrimSpace(strings.ToLower(input))
	if normalized == "" {
		return approvalYes
	}
	switch {
	case isPrefixToken(normalized, "yes"):
		return approvalYes
	case isPrefixToken(normalized, "no"):
		return approvalNo
	case isPrefixToken(normalized, "always"):
		return approvalAlways
	default:
		return approvalUnknown
	}
}

func isPrefixToken(input, target string) bool {
	if input == "" || len(input) > len(target) {
		return false
	}
	return strings.HasPrefix(target, input)
}
