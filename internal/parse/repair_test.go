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

package parse

import (
	"encoding/json"
	"testing"
)

func TestStripTrailingCommas(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"object", `{"a": 1,}`, `{"a": 1}`},
		{"array", `[1, 2,]`, `[1, 2]`},
		{"with newline", "{\"a\": 1,\n}", "{\"a\": 1\n}"},
		{"comma in string kept", `{"a": "x,}"}`, `{"a": "x,}"}`},
		{"no change", `{"a": 1}`, `{"a": 1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripTrailingCommas(tc.in); got != tc.want {
				t.Fatalf("StripTrailingCommas(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeQuotes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"single to double", `{'tool': 'ls'}`, `{"tool": "ls"}`},
		{"apostrophe inside double untouched", `{"msg": "it's fine"}`, `{"msg": "it's fine"}`},
		{"double inside single escaped", `{'msg': 'say "hi"'}`, `{"msg": "say \"hi\""}`},
		{"already canonical", `{"a": "b"}`, `{"a": "b"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeQuotes(tc.in); got != tc.want {
				t.Fatalf("NormalizeQuotes(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCloseTrailingStructure(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"one open brace", `{"a": 1`, `{"a": 1}`},
		{"one open bracket", `[1, 2`, `[1, 2]`},
		{"two levels not repaired", `{"a": {"b": 1`, `{"a": {"b": 1`},
		{"balanced untouched", `{"a": 1}`, `{"a": 1}`},
		{"open string untouched", `{"a": "unterminated`, `{"a": "unterminated`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CloseTrailingStructure(tc.in); got != tc.want {
				t.Fatalf("CloseTrailingStructure(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRepairProducesValidJSON(t *testing.T) {
	cases := []string{
		`{"tool": "ls", "parameters": {"path": "."},}`,
		`{'tool': 'read_file', 'parameters': {'file_path': 'a.txt'}}`,
		`{"tool": "write_file", "parameters": {"file_path": "x"}`,
	}
	for _, in := range cases {
		repaired := Repair(in)
		var v interface{}
		if err := json.Unmarshal([]byte(repaired), &v); err != nil {
			t.Fatalf("Repair(%q) = %q, still invalid: %v", in, repaired, err)
		}
	}
}
