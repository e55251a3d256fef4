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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jacknavodari/super-ollama-agent/internal/paths"

	"github.com/u-root/u-root/pkg/core"
	corels "github.com/u-root/u-root/pkg/core/ls"
	coremkdir "github.com/u-root/u-root/pkg/core/mkdir"
)

// BuiltinToolNames lists the tools registered on every registry.
func BuiltinToolNames() []string {
	return []string{
		"read_file",
		"write_file",
		"execute_shell",
		"create_directory",
		"list_directory",
		"check_file_exists",
		"get_current_datetime",
	}
}

// builtins carries the working directory all filesystem tools are
// confined to. Executors are methods so the confinement root is fixed
// at registry construction, not read from the process at call time.
type builtins struct {
	workdir string
}

func registerBuiltInTools(r *Registry) {
	b := &builtins{workdir: r.workdir}
	register := func(tool Tool) {
		if err := r.RegisterTool(tool); err != nil {
			panic(err)
		}
	}

	register(&ToolDefinition{
		NameValue:        "read_file",
		DescriptionValue: "Read the contents of a text file",
		ParametersValue:  mustSchemaParametersFor[readFileArgs](),
		ExecuteFunc:      b.readFile,
		ValidateFunc:     RequireStringArg("file_path", "missing or invalid 'file_path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "write_file",
		DescriptionValue: "Create or overwrite a text file, creating parent directories as needed (preferred for file writes)",
		ParametersValue:  mustSchemaParametersFor[writeFileArgs](),
		ExecuteFunc:      b.writeFile,
		ValidateFunc: ChainValidation(
			RequireStringArg("file_path", "missing or invalid 'file_path' parameter"),
			RequirePresentString("content", "missing or invalid 'content' parameter"),
		),
	})

	register(&ToolDefinition{
		NameValue:        "execute_shell",
		DescriptionValue: "Execute a shell command in the working directory and return its output (do not use for writing files; use write_file)",
		ParametersValue:  mustSchemaParametersFor[executeShellArgs](),
		ExecuteFunc:      b.executeShell,
		ValidateFunc:     RequireStringArg("command", "missing or invalid 'command' parameter (use write_file for file writes)"),
	})

	register(&ToolDefinition{
		NameValue:        "create_directory",
		DescriptionValue: "Create a directory (including parents) inside the working directory",
		ParametersValue:  mustSchemaParametersFor[createDirectoryArgs](),
		ExecuteFunc:      b.createDirectory,
		ValidateFunc:     RequireStringArg("dir_path", "missing or invalid 'dir_path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "list_directory",
		DescriptionValue: "List files and directories; defaults to the working directory",
		ParametersValue:  mustSchemaParametersFor[listDirectoryArgs](),
		ExecuteFunc:      b.listDirectory,
		ValidateFunc:     OptionalStringArg("dir_path", "invalid 'dir_path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "check_file_exists",
		DescriptionValue: "Check whether a file or directory exists inside the working directory",
		ParametersValue:  mustSchemaParametersFor[checkFileExistsArgs](),
		ExecuteFunc:      b.checkFileExists,
		ValidateFunc:     RequireStringArg("path", "missing or invalid 'path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "get_current_datetime",
		DescriptionValue: "Get the current date and time in ISO 8601 format",
		ParametersValue:  mustSchemaParametersFor[datetimeArgs](),
		ExecuteFunc:      getCurrentDatetime,
	})
}

// Tool implementations

func getCurrentDatetime(ctx context.Context, args map[string]interface{}) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}
	return time.Now().Format(time.RFC3339), nil
}

func (b *builtins) readFile(ctx context.Context, args map[string]interface{}) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}

	path, err := extractStringArg(args, "file_path")
	if err != nil {
		return "", err
	}
	resolved, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	limits := getLimits()
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found at '%s'", resolved)
		}
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path '%s' is a directory, not a file", resolved)
	}
	if info.Size() > limits.MaxFileSizeBytes {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", limits.MaxFileSizeBytes)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	if !isTextContent(content) {
		return "", fmt.Errorf("file appears to be binary; read_file supports text only")
	}
	return string(content), nil
}

func (b *builtins) writeFile(ctx context.Context, args map[string]interface{}) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}

	path, err := extractStringArg(args, "file_path")
	if err != nil {
		return "", err
	}
	content, ok := args["content"].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid 'content' parameter")
	}

	limits := getLimits()
	if int64(len(content)) > limits.MaxFileSizeBytes {
		return "", fmt.Errorf("content exceeds maximum size of %d bytes", limits.MaxFileSizeBytes)
	}
	if !isTextContent([]byte(content)) {
		return "", fmt.Errorf("content appears to be binary; write_file supports text only")
	}

	resolved, err := b.resolve(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		return "", fmt.Errorf("path '%s' is a directory", resolved)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %v", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %v", err)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to '%s'.", len(content), resolved), nil
}

func (b *builtins) createDirectory(ctx context.Context, args map[string]interface{}) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}

	path, err := extractStringArg(args, "dir_path")
	if err != nil {
		return "", err
	}
	resolved, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	if _, err := runCoreCommand(ctx, coremkdir.New(), b.workdir, []string{"-p", resolved}); err != nil {
		return "", fmt.Errorf("failed to create directory '%s': %v", resolved, err)
	}
	return fmt.Sprintf("Directory '%s' created successfully in working directory.", resolved), nil
}

func (b *builtins) listDirectory(ctx context.Context, args map[string]interface{}) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}

	path := b.workdir
	if raw, ok := args["dir_path"].(string); ok && strings.TrimSpace(raw) != "" {
		resolved, err := b.resolve(raw)
		if err != nil {
			return "", err
		}
		path = resolved
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory '%s' does not exist", path)
		}
		return "", fmt.Errorf("failed to list directory: %v", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("'%s' is not a directory", path)
	}

	output, err := runCoreCommand(ctx, corels.New(), b.workdir, []string{"-l", path})
	if err != nil {
		return "", fmt.Errorf("failed to list directory '%s': %v", path, err)
	}
	if strings.TrimSpace(output) == "" {
		return fmt.Sprintf("Directory '%s' is empty.", path), nil
	}
	return fmt.Sprintf("Contents of '%s':\n%s", path, strings.TrimRight(output, "\n")), nil
}

func (b *builtins) checkFileExists(ctx context.Context, args map[string]interface{}) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}

	path, err := extractStringArg(args, "path")
	if err != nil {
		return "", err
	}
	resolved, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("'%s' does not exist.", resolved), nil
		}
		return "", fmt.Errorf("failed to check existence of '%s': %v", resolved, err)
	}
	if info.IsDir() {
		return fmt.Sprintf("'%s' exists and is a directory.", resolved), nil
	}
	return fmt.Sprintf("'%s' exists and is a file, size: %d bytes.", resolved, info.Size()), nil
}

// resolve confines a tool-supplied path to the working directory.
func (b *builtins) resolve(path string) (string, error) {
	limits := getLimits()
	if err := paths.ValidatePathString(path, limits.MaxPathLength); err != nil {
		return "", err
	}
	return paths.ResolveWithinBase(path, b.workdir)
}

func runCoreCommand(ctx context.Context, cmd core.Command, workdir string, args []string) (string, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.SetIO(strings.NewReader(""), &stdout, &stderr)
	cmd.SetWorkingDir(workdir)

	if err := cmd.RunContext(ctx, args...); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg != "" {
			return "", fmt.Errorf("%v: %s", err, errMsg)
		}
		return "", err
	}
	return stdout.String(), nil
}

func ensureContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func isTextContent(content []byte) bool {
	if bytes.IndexByte(content, 0) >= 0 {
		return false
	}
	return utf8.Valid(content)
}
