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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jacknavodari/super-ollama-agent/internal/tools"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.OllamaHost != "http://localhost:11434" {
		t.Errorf("unexpected default host %q", cfg.OllamaHost)
	}
	if cfg.Model != "qwen3-coder:30b" {
		t.Errorf("unexpected default model %q", cfg.Model)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Error("default temperature should be pinned to 0")
	}
	if cfg.NumCtx != 8192 || cfg.NumPredict != 2048 {
		t.Errorf("unexpected sampling bounds: num_ctx=%d num_predict=%d", cfg.NumCtx, cfg.NumPredict)
	}
	if cfg.MaxToolRounds != 10 {
		t.Errorf("unexpected max_tool_rounds %d", cfg.MaxToolRounds)
	}
	if cfg.RequestTimeout() != 600*time.Second {
		t.Errorf("unexpected request timeout %v", cfg.RequestTimeout())
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("AGENT_MODEL", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing config file should not fail: %v", err)
	}
	if cfg.Model != "qwen3-coder:30b" {
		t.Errorf("expected default model, got %q", cfg.Model)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("AGENT_MODEL", "")
	path := writeConfigFile(t, `{
		"ollama_host": "http://10.0.0.5:11434",
		"model": "llama3.2:3b",
		"max_tool_rounds": 5,
		"tools": {"require_confirmation": ["execute_shell"]}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.OllamaHost != "http://10.0.0.5:11434" {
		t.Errorf("host not loaded: %q", cfg.OllamaHost)
	}
	if cfg.Model != "llama3.2:3b" {
		t.Errorf("model not loaded: %q", cfg.Model)
	}
	if cfg.MaxToolRounds != 5 {
		t.Errorf("max_tool_rounds not loaded: %d", cfg.MaxToolRounds)
	}

	policy := cfg.ToolPolicy()
	if !policy.RequireConfirmation["execute_shell"] {
		t.Error("execute_shell should require confirmation")
	}
	if !policy.Allowed["write_file"] {
		t.Error("write_file should default to allowed")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `{"ollama_host": "http://filehost:11434", "model": "from-file"}`)
	t.Setenv("OLLAMA_HOST", "remotebox:11434")
	t.Setenv("AGENT_MODEL", "qwen3-coder:480b-cloud")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.OllamaHost != "http://remotebox:11434" {
		t.Errorf("OLLAMA_HOST override (with scheme normalization) failed: %q", cfg.OllamaHost)
	}
	if cfg.Model != "qwen3-coder:480b-cloud" {
		t.Errorf("AGENT_MODEL override failed: %q", cfg.Model)
	}
}

func TestChatURL(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ChatURL(); got != "http://localhost:11434/v1" {
		t.Errorf("unexpected chat URL %q", got)
	}
	cfg.OllamaHost = "http://box:11434/"
	if got := cfg.ChatURL(); got != "http://box:11434/v1" {
		t.Errorf("trailing slash not handled: %q", got)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	path := writeConfigFile(t, `{"modle": "typo"}`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "modle") {
		t.Errorf("error should name the bad field: %v", err)
	}
}

func TestMistypedFieldRejected(t *testing.T) {
	cases := []string{
		`{"model": 42}`,
		`{"num_ctx": "big"}`,
		`{"tools": {"allow": "read_file"}}`,
		`{"tool_output_filters": {"strip_ansi": "yes"}}`,
		`{"tool_timeouts": {"per_tool_seconds": {"execute_shell": "fast"}}}`,
		`{"sandbox": {"enabled": "yes"}}`,
		`{"sandbox": {"workdirr": "/tmp"}}`,
	}
	for _, raw := range cases {
		path := writeConfigFile(t, raw)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("expected type error for %s", raw)
		}
	}
}

func TestSandboxSectionParses(t *testing.T) {
	path := writeConfigFile(t, `{
		"sandbox": {
			"enabled": true,
			"read_only_paths": ["/bin", "/usr"],
			"non_root_user": true
		}
	}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.Sandbox.Enabled {
		t.Error("expected sandbox to be enabled")
	}
	if len(cfg.Sandbox.ReadOnlyPaths) != 2 {
		t.Errorf("expected 2 read-only paths, got %v", cfg.Sandbox.ReadOnlyPaths)
	}
	if !cfg.Sandbox.NonRootUser {
		t.Error("expected non_root_user to be set")
	}
}

func TestDenyOverridesAllow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools = ToolSettings{Deny: []string{"execute_shell"}}
	policy := cfg.ToolPolicy()
	if policy.Allowed["execute_shell"] {
		t.Error("deny list should override the default allow")
	}
	if !policy.Allowed["read_file"] {
		t.Error("other tools should remain allowed")
	}
}

func TestToolTimeoutsConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToolTimeouts = ToolTimeouts{
		DefaultSeconds: 30,
		PerToolSeconds: map[string]int{"execute_shell": 5, "ignored": 0},
	}
	tc := cfg.ToolTimeoutsConfig()
	if tc.Default != 30*time.Second {
		t.Errorf("unexpected default %v", tc.Default)
	}
	if tc.PerTool["execute_shell"] != 5*time.Second {
		t.Errorf("unexpected per-tool timeout %v", tc.PerTool["execute_shell"])
	}
	if _, ok := tc.PerTool["ignored"]; ok {
		t.Error("non-positive timeout entries should be dropped")
	}
}

func TestValidateWarnings(t *testing.T) {
	registry, err := tools.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	temp := float32(3.5)
	cfg := DefaultConfig()
	cfg.Temperature = &temp
	cfg.MaxToolRounds = -1
	cfg.Tools = ToolSettings{Allow: []string{"read_file", "no_such_tool"}}

	warnings := cfg.Validate(registry)
	fields := make(map[string]bool)
	for _, w := range warnings {
		fields[w.Field] = true
	}
	for _, want := range []string{"temperature", "max_tool_rounds", "tools.allow"} {
		if !fields[want] {
			t.Errorf("expected warning for %s, got %+v", want, warnings)
		}
	}
}

func TestExampleConfigParses(t *testing.T) {
	path := writeConfigFile(t, ExampleConfigJSON())
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("AGENT_MODEL", "")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("example config should load: %v", err)
	}
	if cfg.Model != "qwen3-coder:30b" {
		t.Errorf("unexpected model %q", cfg.Model)
	}
	if !cfg.ToolPolicy().RequireConfirmation["execute_shell"] {
		t.Error("example config should gate execute_shell behind confirmation")
	}
}
