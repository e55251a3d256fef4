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

import "strings"

// Repair applies the bounded set of syntax repairs to a candidate span, once.
// Each rule is an isolated transformation so failures stay attributable; none
// of them is applied iteratively. A span that needs more than one fix per
// defect class legitimately stays broken and gets dropped by the caller.
func Repair(s string) string {
	s = NormalizeQuotes(s)
	s = StripTrailingCommas(s)
	s = CloseTrailingStructure(s)
	return s
}

// StripTrailingCommas removes commas that directly precede a closing brace or
// bracket, outside of string literals.
func StripTrailingCommas(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			out.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the trailing comma
			}
		}
		out.WriteByte(ch)
	}
	return out.String()
}

// NormalizeQuotes converts single-quoted string delimiters to the canonical
// double-quoted form. Spans already delimited by double quotes are left
// untouched, including any apostrophes inside them. Double quotes occurring
// inside a converted span are escaped.
func NormalizeQuotes(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	inDouble := false
	inSingle := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inDouble:
			out.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inDouble = false
			}
		case inSingle:
			if escaped {
				escaped = false
				out.WriteByte(ch)
				continue
			}
			switch ch {
			case '\\':
				escaped = true
				out.WriteByte(ch)
			case '\'':
				inSingle = false
				out.WriteByte('"')
			case '"':
				out.WriteString(`\"`)
			default:
				out.WriteByte(ch)
			}
		case ch == '"':
			inDouble = true
			out.WriteByte(ch)
		case ch == '\'':
			inSingle = true
			out.WriteByte('"')
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}

// CloseTrailingStructure appends one missing closing brace or bracket when
// the text ends mid-structure with exactly one level left open. Deeper
// truncation is not repaired; guessing more than one close costs accuracy.
func CloseTrailingStructure(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString || len(stack) != 1 {
		return s
	}
	trimmed := strings.TrimRight(s, " \t\r\n")
	if stack[0] == '{' {
		return trimmed + "}"
	}
	return trimmed + "]"
}

func isJSONSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}
