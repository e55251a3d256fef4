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
	"sort"
)

// SchemaJSON returns the JSON schema for config.json.
func SchemaJSON() string {
	return configSchemaJSON
}

// ExampleConfigJSON returns a minimal example config derived from the schema.
func ExampleConfigJSON() string {
	return exampleConfigJSON
}

// normalizeConfigJSON rejects unknown or mistyped fields before the
// strict struct unmarshal, so typos fail loudly instead of silently
// falling back to defaults.
func normalizeConfigJSON(data []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := validateConfigMap(raw, ""); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func validateConfigMap(raw map[string]interface{}, prefix string) error {
	allowed := map[string]func(interface{}) error{
		"ollama_host": func(v interface{}) error { return validateString(v, prefix+"ollama_host") },
		"model":       func(v interface{}) error { return validateString(v, prefix+"model") },
		"temperature": func(v interface{}) error { return validateNumber(v, prefix+"temperature") },
		"num_ctx":     func(v interface{}) error { return validateNumber(v, prefix+"num_ctx") },
		"num_predict": func(v interface{}) error { return validateNumber(v, prefix+"num_predict") },
		"request_timeout_seconds": func(v interface{}) error {
			return validateNumber(v, prefix+"request_timeout_seconds")
		},
		"max_tool_rounds": func(v interface{}) error { return validateNumber(v, prefix+"max_tool_rounds") },
		"tools": func(v interface{}) error {
			return validateToolsConfig(v, prefix+"tools.")
		},
		"tool_limits": func(v interface{}) error {
			return validateToolLimits(v, prefix+"tool_limits.")
		},
		"tool_timeouts": func(v interface{}) error {
			return validateToolTimeouts(v, prefix+"tool_timeouts.")
		},
		"tool_output_filters": func(v interface{}) error {
			return validateToolOutputFilters(v, prefix+"tool_output_filters.")
		},
		"sandbox": func(v interface{}) error {
			return validateSandbox(v, prefix+"sandbox.")
		},
		"transcript_file": func(v interface{}) error {
			return validateString(v, prefix+"transcript_file")
		},
		"command_history_file": func(v interface{}) error {
			return validateString(v, prefix+"command_history_file")
		},
	}

	for key, value := range raw {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", key)
		}
		if err := validator(value); err != nil {
			return err
		}
	}

	return nil
}

func validateToolsConfig(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stools must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"allow":                func(v interface{}) error { return validateStringArray(v, prefix+"allow") },
		"deny":                 func(v interface{}) error { return validateStringArray(v, prefix+"deny") },
		"require_confirmation": func(v interface{}) error { return validateStringArray(v, prefix+"require_confirmation") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_limits must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"max_file_size_bytes": func(v interface{}) error { return validateNumber(v, prefix+"max_file_size_bytes") },
		"max_path_length":     func(v interface{}) error { return validateNumber(v, prefix+"max_path_length") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolTimeouts(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_timeouts must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"default_seconds":  func(v interface{}) error { return validateNumber(v, prefix+"default_seconds") },
		"per_tool_seconds": func(v interface{}) error { return validateStringNumberMap(v, prefix+"per_tool_seconds") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolOutputFilters(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_output_filters must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"max_chars":     func(v interface{}) error { return validateNumber(v, prefix+"max_chars") },
		"strip_ansi":    func(v interface{}) error { return validateBool(v, prefix+"strip_ansi") },
		"strip_control": func(v interface{}) error { return validateBool(v, prefix+"strip_control") },
	}
	return validateSection(section, allowed, prefix)
}

func validateSandbox(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%ssandbox must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"enabled":         func(v interface{}) error { return validateBool(v, prefix+"enabled") },
		"workdir":         func(v interface{}) error { return validateString(v, prefix+"workdir") },
		"read_only_paths": func(v interface{}) error { return validateStringArray(v, prefix+"read_only_paths") },
		"masked_paths":    func(v interface{}) error { return validateStringArray(v, prefix+"masked_paths") },
		"non_root_user":   func(v interface{}) error { return validateBool(v, prefix+"non_root_user") },
	}
	return validateSection(section, allowed, prefix)
}

func validateSection(section map[string]interface{}, allowed map[string]func(interface{}) error, prefix string) error {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", prefix+key)
		}
		if err := validator(section[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateString(value interface{}, name string) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	return nil
}

func validateNumber(value interface{}, name string) error {
	if _, ok := value.(float64); !ok {
		return fmt.Errorf("%s must be a number", name)
	}
	return nil
}

func validateBool(value interface{}, name string) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%s must be a boolean", name)
	}
	return nil
}

func validateStringArray(value interface{}, name string) error {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of strings", name)
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("%s must be an array of strings", name)
		}
	}
	return nil
}

func validateStringNumberMap(value interface{}, name string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object of number values", name)
	}
	for key, entry := range section {
		if _, ok := entry.(float64); !ok {
			return fmt.Errorf("%s.%s must be a number", name, key)
		}
	}
	return nil
}

const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Super Ollama Agent Config",
  "type": "object",
  "properties": {
    "ollama_host": { "type": "string" },
    "model": { "type": "string" },
    "temperature": { "type": "number" },
    "num_ctx": { "type": "number" },
    "num_predict": { "type": "number" },
    "request_timeout_seconds": { "type": "number" },
    "max_tool_rounds": { "type": "number" },
    "tools": {
      "type": "object",
      "properties": {
        "allow": { "type": "array", "items": { "type": "string" } },
        "deny": { "type": "array", "items": { "type": "string" } },
        "require_confirmation": { "type": "array", "items": { "type": "string" } }
      }
    },
    "tool_limits": {
      "type": "object",
      "properties": {
        "max_file_size_bytes": { "type": "number" },
        "max_path_length": { "type": "number" }
      }
    },
    "tool_timeouts": {
      "type": "object",
      "properties": {
        "default_seconds": { "type": "number" },
        "per_tool_seconds": { "type": "object", "additionalProperties": { "type": "number" } }
      }
    },
    "tool_output_filters": {
      "type": "object",
      "properties": {
        "max_chars": { "type": "number" },
        "strip_ansi": { "type": "boolean" },
        "strip_control": { "type": "boolean" }
      }
    },
    "sandbox": {
      "type": "object",
      "properties": {
        "enabled": { "type": "boolean" },
        "workdir": { "type": "string" },
        "read_only_paths": { "type": "array", "items": { "type": "string" } },
        "masked_paths": { "type": "array", "items": { "type": "string" } },
        "non_root_user": { "type": "boolean" }
      }
    },
    "transcript_file": { "type": "string" },
    "command_history_file": { "type": "string" }
  }
}`

const exampleConfigJSON = `{
  "ollama_host": "http://localhost:11434",
  "model": "qwen3-coder:30b",
  "temperature": 0,
  "num_ctx": 8192,
  "num_predict": 2048,
  "max_tool_rounds": 10,
  "tools": {
    "require_confirmation": ["execute_shell"]
  }
}`
