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

// Package paths confines every tool-visible filesystem path to a single
// working-directory root. All tool side effects go through ResolveWithinBase;
// a path that cannot be proven to stay under the root is rejected before any
// side effect happens.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrPathEscape marks a path that resolves outside the working directory.
var ErrPathEscape = errors.New("path escapes working directory")

// ValidatePathString validates raw path input before resolution.
func ValidatePathString(path string, maxLen int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	if maxLen > 0 && len(path) > maxLen {
		return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
	}
	return nil
}

// ResolveWithinBase resolves path strictly under baseDir and returns the
// absolute target. Relative paths are joined to the base; absolute paths are
// accepted only when they already point inside it. Traversal sequences and
// symlinks that lead outside the base yield ErrPathEscape.
func ResolveWithinBase(path, baseDir string) (string, error) {
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %v", err)
	}
	baseResolved, err := filepath.EvalSymlinks(baseAbs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %v", err)
	}

	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(baseResolved, path))
	}
	if !HasPathPrefix(absPath, baseResolved) && !HasPathPrefix(absPath, baseAbs) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}

	resolved, err := resolveSymlinkedPath(absPath, baseResolved)
	if err != nil {
		return "", err
	}
	if !HasPathPrefix(resolved, baseResolved) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}

	return resolved, nil
}

// resolveSymlinkedPath resolves symlinks for existing paths. For paths that do
// not exist yet (a file about to be written) the deepest existing ancestor is
// resolved instead, so a symlinked parent cannot smuggle writes outside the base.
func resolveSymlinkedPath(path, baseResolved string) (string, error) {
	if _, err := os.Lstat(path); err == nil {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path: %v", err)
		}
		return resolved, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat path: %v", err)
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	parentResolved, err := resolveSymlinkedPath(parent, baseResolved)
	if err != nil {
		return "", err
	}
	if !HasPathPrefix(parentResolved, baseResolved) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	return filepath.Join(parentResolved, filepath.Base(path)), nil
}

// HasPathPrefix returns true when path is within base.
func HasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}
