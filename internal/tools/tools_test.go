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
	"strings"
	"testing"

	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func callRecord(tool string, args map[string]interface{}) conversation.ToolCallRecord {
	return conversation.ToolCallRecord{Tool: tool, Arguments: args}
}

func TestRegistryRegistersBuiltins(t *testing.T) {
	r := newTestRegistry(t)
	names := r.ToolNames()
	for _, want := range BuiltinToolNames() {
		found := false
		for _, name := range names {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("built-in tool %q not registered", want)
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := newTestRegistry(t)
	result := r.ExecuteRecord(context.Background(), callRecord("fetch_url", nil))
	if !result.Failed() {
		t.Fatal("expected failure for unknown tool")
	}
	if !errors.Is(result.Err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", result.Err)
	}
	if !strings.Contains(result.Result, "Unknown tool 'fetch_url'") {
		t.Errorf("result should name the tool: %q", result.Result)
	}
	if !strings.Contains(result.Result, "Available tools:") {
		t.Errorf("result should list available tools: %q", result.Result)
	}
}

func TestExecuteInvalidArguments(t *testing.T) {
	r := newTestRegistry(t)
	cases := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"missing path", "read_file", map[string]interface{}{}},
		{"nil args", "write_file", nil},
		{"wrong type", "execute_shell", map[string]interface{}{"command": 42}},
		{"missing content", "write_file", map[string]interface{}{"file_path": "a.txt"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := r.ExecuteRecord(context.Background(), callRecord(tc.tool, tc.args))
			if !errors.Is(result.Err, ErrInvalidArguments) {
				t.Fatalf("expected ErrInvalidArguments, got %v", result.Err)
			}
			if !strings.HasPrefix(result.Result, "Error:") {
				t.Errorf("result should carry a model-facing error: %q", result.Result)
			}
		})
	}
}

func TestPolicyDenyAndApproval(t *testing.T) {
	r := newTestRegistry(t)
	rec := callRecord("execute_shell", map[string]interface{}{"command": "true"})

	r.SetAllowed("execute_shell", false)
	result := r.ExecuteRecord(context.Background(), rec)
	if !errors.Is(result.Err, ErrToolDenied) {
		t.Fatalf("expected ErrToolDenied, got %v", result.Err)
	}

	r.SetAllowed("execute_shell", true)
	r.SetRequireConfirmation("execute_shell", true)
	result = r.ExecuteRecord(context.Background(), rec)
	if !errors.Is(result.Err, ErrToolRequiresApproval) {
		t.Fatalf("expected ErrToolRequiresApproval, got %v", result.Err)
	}

	// Force runs the tool after explicit user consent.
	result = r.ExecuteRecordWithOptions(context.Background(), rec, ExecuteOptions{Force: true})
	if result.Failed() {
		t.Fatalf("forced execution failed: %v", result.Err)
	}
}

func TestDefaultPolicyAllowsBuiltins(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range BuiltinToolNames() {
		perm := r.GetPermission(name)
		if !perm.Allowed {
			t.Errorf("tool %q should be allowed by default", name)
		}
		if perm.RequireConfirmation {
			t.Errorf("tool %q should not require confirmation by default", name)
		}
	}
}

func TestUnregisteredToolPermissionDefaultsClosed(t *testing.T) {
	r := newTestRegistry(t)
	perm := r.GetPermission("no_such_tool")
	if perm.Allowed || !perm.RequireConfirmation {
		t.Errorf("unknown tool permission should be closed, got %+v", perm)
	}
}

func TestOutputTruncation(t *testing.T) {
	ConfigureOutputFilters(OutputFilterConfig{MaxChars: 16, StripANSI: true, StripControl: true})
	defer ConfigureOutputFilters(DefaultOutputFilterConfig())

	r := newTestRegistry(t)
	long := strings.Repeat("x", 100)
	writeRes := r.ExecuteRecordWithOptions(context.Background(),
		callRecord("write_file", map[string]interface{}{"file_path": "big.txt", "content": long}),
		ExecuteOptions{Force: true})
	if writeRes.Failed() {
		t.Fatalf("write_file: %v", writeRes.Err)
	}

	readRes := r.ExecuteRecord(context.Background(),
		callRecord("read_file", map[string]interface{}{"file_path": "big.txt"}))
	if readRes.Failed() {
		t.Fatalf("read_file: %v", readRes.Err)
	}
	if !readRes.Truncated {
		t.Error("expected truncated output")
	}
	if len(readRes.Result) != 16 {
		t.Errorf("expected 16 chars after truncation, got %d", len(readRes.Result))
	}
}

func TestSanitizeStripsANSIAndControl(t *testing.T) {
	ConfigureOutputFilters(DefaultOutputFilterConfig())
	out, truncated := sanitizeToolOutput("\x1b[31mred\x1b[0m\x00 text\nnext")
	if truncated {
		t.Error("short output should not be truncated")
	}
	if out != "red text\nnext" {
		t.Errorf("unexpected sanitized output: %q", out)
	}
}

func TestChainValidationStopsAtFirstError(t *testing.T) {
	rule := ChainValidation(
		RequireStringArg("a", "missing a"),
		RequireStringArg("b", "missing b"),
	)
	err := rule(map[string]interface{}{"b": "set"})
	if err == nil || err.Error() != "missing a" {
		t.Fatalf("expected first rule error, got %v", err)
	}
	err = rule(map[string]interface{}{"a": "set"})
	if err == nil || err.Error() != "missing b" {
		t.Fatalf("expected second rule error, got %v", err)
	}
	if err := rule(map[string]interface{}{"a": "x", "b": "y"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
