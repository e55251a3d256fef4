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
	"fmt"
	"strings"
	"testing"

	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
)

func TestParseApprovalInput(t *testing.T) {
	cases := []struct {
		input    string
		expected approvalDecision
	}{
		{"", approvalYes},
		{" ", approvalYes},
		{"Y", approvalYes},
		{"ye", approvalYes},
		{"yes", approvalYes},
		{"n", approvalNo},
		{"no", approvalNo},
		{"a", approvalAlways},
		{"al", approvalAlways},
		{"always", approvalAlways},
		{"maybe", approvalUnknown},
		{"yess", approvalUnknown},
		{"nope", approvalUnknown},
		{"alwayz", approvalUnknown},
	}

	for _, tc := range cases {
		decision := parseApprovalInput(tc.input)
		if decision != tc.expected {
			t.Fatalf("input %q expected %v, got %v", tc.input, tc.expected, decision)
		}
	}
}

func TestToolApproverAlwaysPersists(t *testing.T) {
	prompts := 0
	approver := newToolApproverWithPrompt(func(call conversation.ToolCallRecord) (approvalDecision, error) {
		prompts++
		if call.Tool == "read_file" {
			return approvalAlways, nil
		}
		return approvalNo, nil
	})

	readCall := conversation.ToolCallRecord{Tool: "read_file"}
	if !approver(readCall) {
		t.Fatal("expected first read_file approval")
	}
	if !approver(readCall) {
		t.Fatal("expected read_file to be auto-approved")
	}
	if prompts != 1 {
		t.Fatalf("expected prompt once, got %d", prompts)
	}

	shellCall := conversation.ToolCallRecord{Tool: "execute_shell"}
	if approver(shellCall) {
		t.Fatal("expected execute_shell to be denied")
	}
	if prompts != 2 {
		t.Fatalf("expected second prompt, got %d", prompts)
	}
}

func TestToolApproverPromptErrorDenies(t *testing.T) {
	approver := newToolApproverWithPrompt(func(call conversation.ToolCallRecord) (approvalDecision, error) {
		return approvalYes, fmt.Errorf("no tty")
	})

	call := conversation.ToolCallRecord{Tool: "write_file"}
	if approver(call) {
		t.Fatal("expected denial when the prompt fails")
	}
}

func TestFormatApprovalArgsRedactsContent(t *testing.T) {
	args := map[string]interface{}{
		"file_path": "out/hello.txt",
		"content":   strings.Repeat("x", 10000),
	}
	display := formatApprovalArgs(args)
	if !strings.Contains(display, "file_path") {
		t.Errorf("expected file_path in display, got %q", display)
	}
	if strings.Contains(display, "xxxx") {
		t.Errorf("expected content to be redacted, got %q", display)
	}

	if got := formatApprovalArgs(nil); got != "" {
		t.Errorf("expected empty display for no args, got %q", got)
	}
}
