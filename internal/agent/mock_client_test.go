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
)

// MockChatClient scripts raw model replies for testing without a server.
type MockChatClient struct {
	// Replies are returned in order; after they run out, RepeatLast
	// controls whether the last reply repeats or an empty one is sent.
	Replies    []string
	RepeatLast bool

	// Err, when set, is returned instead of any reply.
	Err error

	// Requests tracks every request for assertions.
	Requests []openai.ChatCompletionRequest

	next int
}

func (m *MockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.Requests = append(m.Requests, req)
	if err := ctx.Err(); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if m.Err != nil {
		return openai.ChatCompletionResponse{}, m.Err
	}

	var content string
	switch {
	case m.next < len(m.Replies):
		content = m.Replies[m.next]
		m.next++
	case m.RepeatLast && len(m.Replies) > 0:
		content = m.Replies[len(m.Replies)-1]
	}

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: content,
				},
			},
		},
	}, nil
}
