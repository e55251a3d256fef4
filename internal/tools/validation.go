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
	"fmt"
	"strings"
)

// ValidationRule checks tool arguments and returns an error if invalid.
type ValidationRule func(args map[string]interface{}) error

// ChainValidation runs rules in order until the first error.
func ChainValidation(rules ...ValidationRule) ValidationRule {
	return func(args map[string]interface{}) error {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if err := rule(args); err != nil {
				return err
			}
		}
		return nil
	}
}

// RequireStringArg ensures a string argument is present and non-empty.
func RequireStringArg(key, message string) ValidationRule {
	return func(args map[string]interface{}) error {
		value, ok := args[key]
		if !ok || value == nil {
			return fmt.Errorf("%s", message)
		}
		str, ok := value.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

// RequirePresentString ensures an argument, if typed at all, is a string.
// The empty string is accepted; write_file allows empty content.
func RequirePresentString(key, message string) ValidationRule {
	return func(args map[string]interface{}) error {
		value, ok := args[key]
		if !ok || value == nil {
			return fmt.Errorf("%s", message)
		}
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

// OptionalStringArg accepts a missing argument but rejects a present
// non-string one.
func OptionalStringArg(key, message string) ValidationRule {
	return func(args map[string]interface{}) error {
		value, ok := args[key]
		if !ok || value == nil {
			return nil
		}
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

// extractStringArg fetches a required string argument inside executors.
// Validation should have run first; this guards direct callers.
func extractStringArg(args map[string]interface{}, key string) (string, error) {
	value, ok := args[key]
	if !ok || value == nil {
		return "", fmt.Errorf("missing '%s' parameter", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid '%s' parameter: expected string", key)
	}
	return str, nil
}
