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

// Package theme holds the color configuration for the interactive
// console. Colors are loaded from an optional JSON file and honor the
// NO_COLOR convention.
package theme

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

// Theme is the on-disk color configuration.
type Theme struct {
	HeaderColor    string `json:"header_color"`
	UserColor      string `json:"user_color"`
	AssistantColor string `json:"assistant_color"`
	ErrorColor     string `json:"error_color"`
	SuccessColor   string `json:"success_color"`
	ToolColor      string `json:"tool_color"`
}

// ColorScheme provides ready-to-print styles derived from a theme.
type ColorScheme struct {
	Header    pterm.RGB
	User      *color.Color
	Assistant *color.Color
	Error     *color.Color
	Success   *color.Color
	Tool      pterm.RGB
}

// DefaultTheme returns the built-in colors (Catppuccin Mocha).
func DefaultTheme() *Theme {
	return &Theme{
		HeaderColor:    "#cba6f7",
		UserColor:      "#89b4fa",
		AssistantColor: "#a6e3a1",
		ErrorColor:     "#f38ba8",
		SuccessColor:   "#a6e3a1",
		ToolColor:      "#fab387",
	}
}

// LoadTheme reads a theme from a JSON file. A missing file yields the
// default theme; a present but malformed file is an error.
func LoadTheme(filepath string) (*Theme, error) {
	theme := DefaultTheme()

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return theme, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, theme); err != nil {
		return nil, err
	}

	return theme, nil
}

// ToColorScheme converts the theme's hex colors into terminal styles.
// The theme is assumed valid; call ValidateTheme first.
func (t *Theme) ToColorScheme() *ColorScheme {
	return &ColorScheme{
		Header:    rgbStyle(t.HeaderColor),
		User:      rgbColor(t.UserColor),
		Assistant: rgbColor(t.AssistantColor),
		Error:     rgbColor(t.ErrorColor),
		Success:   rgbColor(t.SuccessColor),
		Tool:      rgbStyle(t.ToolColor),
	}
}

// DefaultColorScheme returns the built-in theme as terminal styles.
func DefaultColorScheme() *ColorScheme {
	return DefaultTheme().ToColorScheme()
}

// DisabledColorScheme returns a scheme with all styling off (NO_COLOR).
func DisabledColorScheme() *ColorScheme {
	color.NoColor = true
	pterm.DisableColor()

	return &ColorScheme{
		Header:    pterm.RGB{},
		User:      color.New(),
		Assistant: color.New(),
		Error:     color.New(),
		Success:   color.New(),
		Tool:      pterm.RGB{},
	}
}

// rgbColor builds a truecolor style from a #RRGGBB or #RGB string.
func rgbColor(hex string) *color.Color {
	r, g, b, err := parseHex(hex)
	if err != nil {
		return color.New()
	}
	return color.RGB(r, g, b)
}

// rgbStyle is rgbColor's pterm counterpart for the printer-style fields.
func rgbStyle(hex string) pterm.RGB {
	r, g, b, err := parseHex(hex)
	if err != nil {
		return pterm.RGB{R: 255, G: 255, B: 255}
	}
	return pterm.NewRGB(uint8(r), uint8(g), uint8(b))
}

func parseHex(hex string) (r, g, b int, err error) {
	switch len(hex) {
	case 7: // #RRGGBB
		_, err = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	case 4: // #RGB
		_, err = fmt.Sscanf(hex, "#%1x%1x%1x", &r, &g, &b)
		r, g, b = r*17, g*17, b*17
	default:
		err = fmt.Errorf("invalid hex color %q", hex)
	}
	return r, g, b, err
}
