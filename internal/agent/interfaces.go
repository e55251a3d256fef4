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

package agent

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
)

// ChatClient abstracts the inference endpoint for testing. Production
// sessions use a go-openai client pointed at Ollama's OpenAI-compatible
// endpoint; tests inject a mock that scripts raw model replies.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ApprovalFunc decides whether a confirmation-gated tool call may run.
type ApprovalFunc func(call conversation.ToolCallRecord) bool

// Verify that openai.Client implements ChatClient at compile time.
var _ ChatClient = (*openai.Client)(nil)
