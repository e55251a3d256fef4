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

package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
)

func TestLoadThemeMissingFile(t *testing.T) {
	theme, err := LoadTheme("nonexistent.json")
	if err != nil {
		t.Fatalf("LoadTheme() error = %v", err)
	}
	if theme.UserColor != DefaultTheme().UserColor {
		t.Errorf("expected default user color, got %q", theme.UserColor)
	}
}

func TestLoadThemeFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.json")
	content := `{"user_color": "#ff0000"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	theme, err := LoadTheme(path)
	if err != nil {
		t.Fatalf("LoadTheme() error = %v", err)
	}
	if theme.UserColor != "#ff0000" {
		t.Errorf("expected user color override, got %q", theme.UserColor)
	}
	// Fields absent from the file keep their defaults.
	if theme.ErrorColor != DefaultTheme().ErrorColor {
		t.Errorf("expected default error color, got %q", theme.ErrorColor)
	}
}

func TestLoadThemeMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTheme(path); err == nil {
		t.Fatal("expected error for malformed theme file")
	}
}

func TestParseHex(t *testing.T) {
	cases := []struct {
		hex     string
		r, g, b int
		wantErr bool
	}{
		{"#ff0000", 255, 0, 0, false},
		{"#89b4fa", 137, 180, 250, false},
		{"#f00", 255, 0, 0, false},
		{"#abc", 170, 187, 204, false},
		{"red", 0, 0, 0, true},
		{"", 0, 0, 0, true},
	}

	for _, tc := range cases {
		r, g, b, err := parseHex(tc.hex)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseHex(%q) expected error", tc.hex)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseHex(%q) error = %v", tc.hex, err)
			continue
		}
		if r != tc.r || g != tc.g || b != tc.b {
			t.Errorf("parseHex(%q) = (%d,%d,%d), want (%d,%d,%d)", tc.hex, r, g, b, tc.r, tc.g, tc.b)
		}
	}
}

func TestToColorSchemePopulatesStyles(t *testing.T) {
	scheme := DefaultTheme().ToColorScheme()
	if scheme.User == nil || scheme.Assistant == nil ||
		scheme.Error == nil || scheme.Success == nil {
		t.Fatal("expected all scheme styles to be populated")
	}
}

func TestToColorSchemeDerivesPrinterStylesFromHex(t *testing.T) {
	theme := DefaultTheme()
	theme.HeaderColor = "#102030"
	theme.ToolColor = "#f00"

	scheme := theme.ToColorScheme()
	if scheme.Header != (pterm.RGB{R: 0x10, G: 0x20, B: 0x30}) {
		t.Errorf("header style = %+v, want RGB from %s", scheme.Header, theme.HeaderColor)
	}
	if scheme.Tool != (pterm.RGB{R: 255, G: 0, B: 0}) {
		t.Errorf("tool style = %+v, want RGB from %s", scheme.Tool, theme.ToolColor)
	}
}
