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

// Package parse recovers structured tool calls from raw model output. Model
// text is frequently malformed: fenced in markdown, wrapped in prose, cut off
// mid-structure, or syntactically sloppy. Extraction runs a staged pipeline
// where each stage only fires when the previous one found nothing, and a
// malformed span never aborts recovery of its siblings.
package parse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
)

// Parser extracts tool call records from assistant replies. Failed candidate
// spans are logged at debug level and dropped, never surfaced as errors.
type Parser struct {
	log zerolog.Logger
}

// New creates a parser that reports dropped spans to the given logger.
func New(log zerolog.Logger) *Parser {
	return &Parser{log: log}
}

// NewSilent creates a parser without diagnostics output.
func NewSilent() *Parser {
	return New(zerolog.Nop())
}

// Extract returns the tool calls recovered from raw, in source order, plus
// the plain-text remainder. Text with no recoverable structure yields zero
// records and the full text as remainder; that is the model's final answer,
// never an error.
func (p *Parser) Extract(raw string) ([]conversation.ToolCallRecord, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, raw
	}

	// Stage 1: the whole reply is one tool-call object or an array of them.
	if records := p.parseCandidate(trimmed); len(records) > 0 {
		start := strings.Index(raw, trimmed[:1])
		for i := range records {
			records[i].Span = conversation.Span{Start: start, End: start + len(trimmed)}
		}
		return finalize(records), ""
	}

	// Stage 2: fenced code blocks, one candidate per block.
	if records, remainder, ok := p.extractFenced(raw); ok {
		return finalize(records), remainder
	}

	// Stage 3: outermost balanced-brace spans embedded in prose.
	if records, remainder, ok := p.extractBraced(raw); ok {
		return finalize(records), remainder
	}

	return nil, raw
}

// finalize assigns per-reply identifiers in source-span order. Later calls in
// a reply often depend on filesystem effects of earlier ones, so the order of
// spans is the order of execution.
func finalize(records []conversation.ToolCallRecord) []conversation.ToolCallRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Span.Start < records[j].Span.Start
	})
	for i := range records {
		records[i].ID = fmt.Sprintf("call-%d", i+1)
	}
	return records
}

// parseCandidate attempts a structured parse of one candidate span,
// applying the bounded repair pass once if the raw parse fails. The result
// is zero or more records; a span that parses but carries no recognizable
// tool-name field yields none.
func (p *Parser) parseCandidate(span string) []conversation.ToolCallRecord {
	value, err := decodeJSON(span)
	if err != nil {
		repaired := Repair(span)
		if repaired == span {
			p.log.Debug().Err(err).Str("span", clip(span)).Msg("candidate span not parseable")
			return nil
		}
		value, err = decodeJSON(repaired)
		if err != nil {
			p.log.Debug().Err(err).Str("span", clip(span)).Msg("candidate span not parseable after repair")
			return nil
		}
	}

	var records []conversation.ToolCallRecord
	switch v := value.(type) {
	case map[string]interface{}:
		if rec, ok := p.recordFromMap(v); ok {
			records = append(records, rec)
		}
	case []interface{}:
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if rec, ok := p.recordFromMap(m); ok {
				records = append(records, rec)
			}
		}
	}
	return records
}

// recordFromMap normalizes the shapes models actually emit: the documented
// {"tool": ..., "parameters": {...}} form, the OpenAI-ish {"name": ...,
// "arguments": ...} form, and a nested "function" object. Arguments may be
// double-encoded as a JSON string; that is unwrapped here. A map without a
// tool name is not a call.
func (p *Parser) recordFromMap(m map[string]interface{}) (conversation.ToolCallRecord, bool) {
	if fn, ok := m["function"].(map[string]interface{}); ok {
		if rec, ok := p.recordFromMap(fn); ok {
			return rec, true
		}
	}

	name, _ := m["tool"].(string)
	if name == "" {
		name, _ = m["name"].(string)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		p.log.Debug().Interface("candidate", m).Msg("parsed span lacks tool name, dropped")
		return conversation.ToolCallRecord{}, false
	}

	var rawArgs interface{}
	for _, key := range []string{"parameters", "arguments", "args"} {
		if v, ok := m[key]; ok {
			rawArgs = v
			break
		}
	}

	args := map[string]interface{}{}
	switch a := rawArgs.(type) {
	case map[string]interface{}:
		args = a
	case string:
		var unwrapped map[string]interface{}
		if err := json.Unmarshal([]byte(a), &unwrapped); err == nil {
			args = unwrapped
		} else {
			p.log.Debug().Str("tool", name).Msg("string arguments not valid JSON, passing empty args")
		}
	case nil:
	default:
		p.log.Debug().Str("tool", name).Msg("arguments have unsupported shape, passing empty args")
	}

	return conversation.ToolCallRecord{Tool: name, Arguments: args}, true
}

// extractFenced scans for triple-backtick blocks regardless of language tag
// and parses each block's contents independently. One reply may yield several
// records, returned in block order.
func (p *Parser) extractFenced(raw string) ([]conversation.ToolCallRecord, string, bool) {
	var records []conversation.ToolCallRecord
	var consumed []conversation.Span

	idx := 0
	for idx < len(raw) {
		open := strings.Index(raw[idx:], "```")
		if open == -1 {
			break
		}
		open += idx
		contentStart := open + 3

		end := strings.Index(raw[contentStart:], "```")
		var block string
		var spanEnd int
		if end == -1 {
			// Unterminated fence: the repair pass may still close the structure.
			block = raw[contentStart:]
			spanEnd = len(raw)
			idx = len(raw)
		} else {
			block = raw[contentStart : contentStart+end]
			spanEnd = contentStart + end + 3
			idx = spanEnd
		}

		block = stripLanguageTag(block)
		recs := p.parseCandidate(block)
		if len(recs) == 0 {
			continue
		}
		span := conversation.Span{Start: open, End: spanEnd}
		for i := range recs {
			recs[i].Span = span
		}
		records = append(records, recs...)
		consumed = append(consumed, span)
	}

	if len(records) == 0 {
		return nil, "", false
	}
	return records, remainderWithout(raw, consumed), true
}

// extractBraced recovers tool calls embedded in surrounding prose without
// fences by scanning for the outermost balanced-brace substrings. Braces
// inside quoted strings do not count toward nesting depth.
func (p *Parser) extractBraced(raw string) ([]conversation.ToolCallRecord, string, bool) {
	var records []conversation.ToolCallRecord
	var consumed []conversation.Span

	for _, span := range scanBraceSpans(raw) {
		recs := p.parseCandidate(raw[span.Start:span.End])
		if len(recs) == 0 {
			continue
		}
		for i := range recs {
			recs[i].Span = span
		}
		records = append(records, recs...)
		consumed = append(consumed, span)
	}

	if len(records) == 0 {
		return nil, "", false
	}
	return records, remainderWithout(raw, consumed), true
}

// scanBraceSpans returns the outermost balanced-brace spans in text. A span
// left open at end of text is returned too, so truncated replies get one
// repair chance.
func scanBraceSpans(text string) []conversation.Span {
	var spans []conversation.Span
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
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
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					spans = append(spans, conversation.Span{Start: start, End: i + 1})
					start = -1
				}
			}
		}
	}

	if depth > 0 && start != -1 {
		spans = append(spans, conversation.Span{Start: start, End: len(text)})
	}
	return spans
}

// stripLanguageTag drops a leading fence language tag like "json" or "js".
func stripLanguageTag(block string) string {
	trimmed := strings.TrimLeft(block, " \t")
	nl := strings.IndexByte(trimmed, '\n')
	if nl == -1 {
		return block
	}
	first := strings.TrimSpace(trimmed[:nl])
	if first == "" {
		return trimmed[nl+1:]
	}
	for _, r := range first {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return block
		}
	}
	return trimmed[nl+1:]
}

// remainderWithout returns text with the consumed spans removed.
func remainderWithout(text string, consumed []conversation.Span) string {
	sort.Slice(consumed, func(i, j int) bool { return consumed[i].Start < consumed[j].Start })
	var out strings.Builder
	prev := 0
	for _, span := range consumed {
		if span.Start > prev {
			out.WriteString(text[prev:span.Start])
		}
		if span.End > prev {
			prev = span.End
		}
	}
	if prev < len(text) {
		out.WriteString(text[prev:])
	}
	return strings.TrimSpace(out.String())
}

func decodeJSON(s string) (interface{}, error) {
	decoder := json.NewDecoder(strings.NewReader(s))
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	// Reject spans with trailing garbage after the JSON value; those are
	// handled by the narrower stages instead.
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return value, nil
}

func clip(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
