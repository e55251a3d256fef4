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
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/567-labs/instructor-go/pkg/instructor"
)

// Argument shapes for the built-in tools. Parameter schemas are derived
// from these structs so the descriptions shown to the model and the
// decoded arguments cannot drift apart.

type readFileArgs struct {
	FilePath string `json:"file_path" jsonschema:"description=Path to the file to read"`
}

type writeFileArgs struct {
	FilePath string `json:"file_path" jsonschema:"description=Path to the file to write"`
	Content  string `json:"content" jsonschema:"description=Content to write to the file"`
}

type executeShellArgs struct {
	Command string `json:"command" jsonschema:"description=The shell command to execute"`
}

type createDirectoryArgs struct {
	DirPath string `json:"dir_path" jsonschema:"description=Path of the directory to create"`
}

type listDirectoryArgs struct {
	DirPath string `json:"dir_path,omitempty" jsonschema:"description=Directory to list; defaults to the working directory"`
}

type checkFileExistsArgs struct {
	Path string `json:"path" jsonschema:"description=Path to check for existence"`
}

type datetimeArgs struct{}

func mustSchemaParametersFor[T any]() map[string]interface{} {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		panic("schema type is nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	params, err := schemaParametersForType(t)
	if err != nil {
		panic(err)
	}
	return params
}

func schemaParametersForType(t reflect.Type) (map[string]interface{}, error) {
	schema, err := instructor.NewSchema(t)
	if err != nil {
		return nil, err
	}

	defName := t.Name()
	for _, fn := range schema.Functions {
		if fn.Name != defName {
			continue
		}
		return jsonSchemaToMap(fn.Parameters)
	}

	return nil, fmt.Errorf("schema definition %q not found", defName)
}

func jsonSchemaToMap(schema interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}
