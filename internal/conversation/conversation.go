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

// Package conversation holds the session transcript: an append-only, strictly
// chronological sequence of turns. The agent loop is the sole writer; every
// other component works on immutable snapshots.
package conversation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// Kind tags the variant of a Turn. The set is closed: user input, an
// assistant reply (raw text plus any tool calls recovered from it), or the
// result of executing one of those calls.
type Kind string

const (
	KindUser       Kind = "user"
	KindAssistant  Kind = "assistant"
	KindToolResult Kind = "tool_result"
)

// Span points back into the raw assistant text a tool call was recovered
// from. Best-effort, for diagnostics only.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ToolCallRecord is one structured tool invocation recovered from model
// output. Tool must resolve in the registry before execution is attempted.
type ToolCallRecord struct {
	ID        string                 `json:"id"`
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Span      Span                   `json:"span,omitempty"`
}

// Turn is one atomic unit of conversation history.
type Turn struct {
	Kind      Kind             `json:"kind"`
	Content   string           `json:"content"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"` // assistant turns only
	CallID    string           `json:"call_id,omitempty"`    // tool_result turns only
	Tool      string           `json:"tool,omitempty"`       // tool_result turns only
	IsError   bool             `json:"is_error,omitempty"`   // tool_result turns only
}

// Conversation is the ordered turn history for one session.
//
// Thread-safety: all methods are protected by an internal mutex. Snapshot
// returns a copy, so callers never observe concurrent appends.
type Conversation struct {
	mu    sync.Mutex
	turns []Turn
}

// New returns an empty conversation.
func New() *Conversation {
	return &Conversation{}
}

// AppendUser appends a user turn.
func (c *Conversation) AppendUser(text string) {
	c.append(Turn{Kind: KindUser, Content: text})
}

// AppendAssistant appends an assistant turn recording both the raw reply text
// and the tool calls recovered from it (possibly none).
func (c *Conversation) AppendAssistant(raw string, calls []ToolCallRecord) {
	c.append(Turn{Kind: KindAssistant, Content: raw, ToolCalls: calls})
}

// AppendToolResult appends the outcome of one executed tool call. Failures
// are appended too: errors are data the model reacts to on the next round.
func (c *Conversation) AppendToolResult(call ToolCallRecord, payload string, isError bool) {
	c.append(Turn{
		Kind:    KindToolResult,
		Content: payload,
		CallID:  call.ID,
		Tool:    call.Tool,
		IsError: isError,
	})
}

func (c *Conversation) append(turn Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
}

// Snapshot returns a copy of the current turns.
func (c *Conversation) Snapshot() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)
	return turns
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Clear drops all turns.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

// ChatMessages serializes the conversation for the inference endpoint as
// role-tagged messages, prefixed with the system prompt. Tool results map to
// the tool role so the model can correlate them with its own calls.
func (c *Conversation) ChatMessages(systemPrompt string) []openai.ChatCompletionMessage {
	turns := c.Snapshot()
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, turn := range turns {
		switch turn.Kind {
		case KindUser:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: turn.Content,
			})
		case KindAssistant:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: turn.Content,
			})
		case KindToolResult:
			// Executor messages already start with "Error"; only tag
			// the ones that don't, so the model never sees it twice.
			content := turn.Content
			if turn.IsError && !strings.HasPrefix(content, "Error") {
				content = fmt.Sprintf("Error: %s", turn.Content)
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				Name:       turn.Tool,
				ToolCallID: turn.CallID,
			})
		}
	}
	return msgs
}
