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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jacknavodari/super-ollama-agent/internal/tools"
)

// Config represents the agent configuration.
type Config struct {
	OllamaHost            string            `json:"ollama_host,omitempty"`
	Model                 string            `json:"model,omitempty"`
	Temperature           *float32          `json:"temperature,omitempty"`
	NumCtx                int               `json:"num_ctx,omitempty"`
	NumPredict            int               `json:"num_predict,omitempty"`
	RequestTimeoutSeconds int               `json:"request_timeout_seconds,omitempty"`
	MaxToolRounds         int               `json:"max_tool_rounds,omitempty"`
	Tools                 ToolSettings      `json:"tools,omitempty"`
	ToolLimits            ToolLimits        `json:"tool_limits,omitempty"`
	ToolTimeouts          ToolTimeouts      `json:"tool_timeouts,omitempty"`
	ToolOutputFilters     ToolOutputFilters `json:"tool_output_filters,omitempty"`
	Sandbox               Sandbox           `json:"sandbox,omitempty"`
	TranscriptFile        string            `json:"transcript_file,omitempty"`
	CommandHistoryFile    string            `json:"command_history_file,omitempty"`
}

// ToolSettings describes tool allow/confirmation/deny lists.
type ToolSettings struct {
	Allow               []string `json:"allow,omitempty"`
	Deny                []string `json:"deny,omitempty"`
	RequireConfirmation []string `json:"require_confirmation,omitempty"`
}

// ToolLimits configures resource limits for tool execution.
type ToolLimits struct {
	MaxFileSizeBytes int64 `json:"max_file_size_bytes,omitempty"`
	MaxPathLength    int   `json:"max_path_length,omitempty"`
}

// ToolTimeouts configures tool execution timeouts.
type ToolTimeouts struct {
	DefaultSeconds int            `json:"default_seconds,omitempty"`
	PerToolSeconds map[string]int `json:"per_tool_seconds,omitempty"`
}

// ToolOutputFilters configures output sanitization for tool results.
type ToolOutputFilters struct {
	MaxChars     int  `json:"max_chars,omitempty"`
	StripANSI    bool `json:"strip_ansi,omitempty"`
	StripControl bool `json:"strip_control,omitempty"`
}

// Sandbox configures the optional container isolation for shell
// commands. Disabled by default; Linux only.
type Sandbox struct {
	Enabled       bool     `json:"enabled,omitempty"`
	Workdir       string   `json:"workdir,omitempty"`
	ReadOnlyPaths []string `json:"read_only_paths,omitempty"`
	MaskedPaths   []string `json:"masked_paths,omitempty"`
	NonRootUser   bool     `json:"non_root_user,omitempty"`
}

// DefaultConfig returns a config with default values. The defaults
// target a local Ollama server; no credentials are needed.
func DefaultConfig() *Config {
	temperature := float32(0)
	return &Config{
		OllamaHost:            "http://localhost:11434",
		Model:                 "qwen3-coder:30b",
		Temperature:           &temperature,
		NumCtx:                8192,
		NumPredict:            2048,
		RequestTimeoutSeconds: 600,
		MaxToolRounds:         10,
		ToolLimits: ToolLimits{
			MaxFileSizeBytes: tools.DefaultLimits().MaxFileSizeBytes,
			MaxPathLength:    tools.DefaultLimits().MaxPathLength,
		},
		ToolTimeouts: ToolTimeouts{
			PerToolSeconds: map[string]int{
				"execute_shell": int(tools.DefaultTimeoutConfig().PerTool["execute_shell"].Seconds()),
			},
		},
		ToolOutputFilters: ToolOutputFilters{
			MaxChars:     tools.DefaultOutputFilterConfig().MaxChars,
			StripANSI:    tools.DefaultOutputFilterConfig().StripANSI,
			StripControl: tools.DefaultOutputFilterConfig().StripControl,
		},
		TranscriptFile:     ".agent_transcript",
		CommandHistoryFile: ".agent_history",
	}
}

// LoadConfig loads configuration from a JSON file if it exists, applies
// environment overrides, and fills defaults for missing values. A
// missing file is not an error.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, err
		}
		normalized, err := normalizeConfigJSON(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(normalized, config); err != nil {
			return nil, err
		}
	}

	// Env overrides apply regardless of whether the config file exists.
	if val := os.Getenv("OLLAMA_HOST"); val != "" {
		config.OllamaHost = normalizeHost(val)
	}
	if val := os.Getenv("AGENT_MODEL"); val != "" {
		config.Model = val
	}

	if config.OllamaHost == "" {
		config.OllamaHost = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "qwen3-coder:30b"
	}

	return config, nil
}

// normalizeHost accepts the bare host:port form OLLAMA_HOST commonly
// carries and upgrades it to a URL.
func normalizeHost(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

// ChatURL returns the OpenAI-compatible endpoint for chat completions.
func (c *Config) ChatURL() string {
	return strings.TrimRight(c.OllamaHost, "/") + "/v1"
}

// RequestTimeout returns the transport timeout for inference calls.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 600 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ToolPolicy converts config settings into a tool policy. With no
// explicit lists, every built-in tool is allowed without confirmation;
// deny entries override allow entries.
func (c *Config) ToolPolicy() tools.Policy {
	allow := c.Tools.Allow
	if allow == nil {
		allow = tools.BuiltinToolNames()
	}
	policy := tools.PolicyFromLists(allow, c.Tools.RequireConfirmation)
	for _, name := range c.Tools.Deny {
		policy.Allowed[name] = false
	}
	return policy
}

// ToolLimitsConfig returns tool limits for runtime enforcement.
func (c *Config) ToolLimitsConfig() tools.Limits {
	return tools.Limits{
		MaxFileSizeBytes: c.ToolLimits.MaxFileSizeBytes,
		MaxPathLength:    c.ToolLimits.MaxPathLength,
	}
}

// ToolTimeoutsConfig returns timeout configuration for tools.
func (c *Config) ToolTimeoutsConfig() tools.TimeoutConfig {
	perTool := make(map[string]time.Duration, len(c.ToolTimeouts.PerToolSeconds))
	for name, seconds := range c.ToolTimeouts.PerToolSeconds {
		if seconds <= 0 {
			continue
		}
		perTool[name] = time.Duration(seconds) * time.Second
	}

	var defaultTimeout time.Duration
	if c.ToolTimeouts.DefaultSeconds > 0 {
		defaultTimeout = time.Duration(c.ToolTimeouts.DefaultSeconds) * time.Second
	}

	return tools.TimeoutConfig{
		Default: defaultTimeout,
		PerTool: perTool,
	}
}

// ToolOutputFiltersConfig returns output filter configuration for tools.
func (c *Config) ToolOutputFiltersConfig() tools.OutputFilterConfig {
	return tools.OutputFilterConfig{
		MaxChars:     c.ToolOutputFilters.MaxChars,
		StripANSI:    c.ToolOutputFilters.StripANSI,
		StripControl: c.ToolOutputFilters.StripControl,
	}
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings.
func (c *Config) Validate(registry *tools.Registry) []ValidationWarning {
	var warnings []ValidationWarning

	if c.Temperature != nil {
		temp := *c.Temperature
		if temp < 0 || temp > 2 {
			warnings = append(warnings, ValidationWarning{
				Field:   "temperature",
				Message: fmt.Sprintf("temperature %.2f is outside recommended range [0, 2]", temp),
			})
		}
	}

	if c.NumCtx < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "num_ctx",
			Message: fmt.Sprintf("num_ctx %d must be positive, using default", c.NumCtx),
		})
	}
	if c.NumPredict < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "num_predict",
			Message: fmt.Sprintf("num_predict %d must be positive, using default", c.NumPredict),
		})
	}
	if c.MaxToolRounds < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "max_tool_rounds",
			Message: fmt.Sprintf("max_tool_rounds %d must be positive, using default", c.MaxToolRounds),
		})
	}

	if registry != nil {
		registered := make(map[string]bool)
		for _, name := range registry.ToolNames() {
			registered[name] = true
		}
		checkList := func(field string, list []string) {
			for _, toolName := range list {
				if !registered[toolName] {
					warnings = append(warnings, ValidationWarning{
						Field:   field,
						Message: fmt.Sprintf("tool %q in %s list is not registered", toolName, field),
					})
				}
			}
		}
		checkList("tools.allow", c.Tools.Allow)
		checkList("tools.deny", c.Tools.Deny)
		checkList("tools.require_confirmation", c.Tools.RequireConfirmation)
	}

	return warnings
}
