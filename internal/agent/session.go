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

// Package agent drives the model/tool round-trip loop: send the
// conversation to the inference endpoint, recover tool calls from the
// raw reply, execute them in source order, feed results back, repeat
// until the model answers in plain text or the round bound is hit.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/jacknavodari/super-ollama-agent/internal/config"
	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
	"github.com/jacknavodari/super-ollama-agent/internal/parse"
	"github.com/jacknavodari/super-ollama-agent/internal/tools"
	systemprompt "github.com/jacknavodari/super-ollama-agent/system_prompt"
)

const defaultMaxToolRounds = 10

// Session owns one conversation against one model. It is single-turn
// sequential: a user turn runs to completion (through arbitrarily many
// model/tool round-trips) before the next input is accepted.
type Session struct {
	Client       ChatClient
	Config       *config.Config
	Conversation *conversation.Conversation
	Registry     *tools.Registry

	// Approver is consulted when a tool is confirmation-gated by
	// policy. Nil means gated calls are reported as denied.
	Approver ApprovalFunc

	// OnToolResult, when set, observes every executed tool call. The
	// CLI uses it to display tool activity as the turn progresses.
	OnToolResult func(*tools.ToolResult)

	parser       *parse.Parser
	log          zerolog.Logger
	systemPrompt string

	toolCancelMu sync.Mutex
	toolCancel   context.CancelFunc
}

// NewSession creates a session backed by Ollama's OpenAI-compatible
// endpoint. The API key is a placeholder; the local server ignores it.
func NewSession(cfg *config.Config, registry *tools.Registry, log zerolog.Logger) *Session {
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = cfg.ChatURL()
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout()}
	client := openai.NewClientWithConfig(clientConfig)
	return NewSessionWithClient(cfg, registry, client, log)
}

// NewSessionWithClient creates a session with a provided client (for testing).
func NewSessionWithClient(cfg *config.Config, registry *tools.Registry, client ChatClient, log zerolog.Logger) *Session {
	return &Session{
		Client:       client,
		Config:       cfg,
		Conversation: conversation.New(),
		Registry:     registry,
		parser:       parse.New(log),
		log:          log,
		systemPrompt: buildSystemPrompt(cfg, registry),
	}
}

// SystemPrompt returns the rendered system prompt for this session.
func (s *Session) SystemPrompt() string {
	return s.systemPrompt
}

// SetModel switches the session to another model. The system prompt is
// re-rendered since it names the model in use.
func (s *Session) SetModel(model string) {
	s.Config.Model = model
	s.systemPrompt = buildSystemPrompt(s.Config, s.Registry)
}

// RunTurn executes one full user turn: it appends the input, then
// alternates inference and tool execution until the model produces a
// reply with no tool calls. The returned string is the final answer.
//
// Tool failures never abort the turn; they are appended to the
// conversation as error results so the model can self-correct. Only a
// transport failure or the round bound ends the turn early.
func (s *Session) RunTurn(ctx context.Context, input string) (string, error) {
	s.Conversation.AppendUser(input)

	maxRounds := s.Config.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}

	rounds := 0
	for {
		raw, err := s.complete(ctx)
		if err != nil {
			return "", err
		}

		calls, remainder := s.parser.Extract(raw)
		s.Conversation.AppendAssistant(raw, calls)

		if len(calls) == 0 {
			answer := strings.TrimSpace(remainder)
			if answer == "" {
				answer = strings.TrimSpace(raw)
			}
			s.log.Debug().Int("rounds", rounds).Msg("turn complete")
			return answer, nil
		}

		rounds++
		if rounds > maxRounds {
			s.log.Warn().Int("max_rounds", maxRounds).Msg("tool round limit hit")
			return "", fmt.Errorf("%w after %d rounds", ErrToolRoundLimit, maxRounds)
		}

		// Calls within one reply are causally ordered: a later call may
		// depend on an earlier one's filesystem effects. Execute
		// strictly in source order, never concurrently.
		//
		// Tool execution runs under a child context so an interrupt
		// kills the in-flight call without taking down the turn: the
		// interrupted results go back to the model on the still-live
		// parent context and it gets a chance to adapt.
		toolCtx, cancelTools := context.WithCancel(ctx)
		s.setToolCancel(cancelTools)
		for _, call := range calls {
			result := s.executeCall(toolCtx, call)
			s.Conversation.AppendToolResult(call, result.Result, result.Failed())
			if s.OnToolResult != nil {
				s.OnToolResult(result)
			}
		}
		s.setToolCancel(nil)
		cancelTools()
	}
}

// InterruptTools cancels the tool calls currently executing, if any.
// It reports whether an execution phase was in flight; the turn itself
// keeps running so the model sees the interrupted results.
func (s *Session) InterruptTools() bool {
	s.toolCancelMu.Lock()
	defer s.toolCancelMu.Unlock()
	if s.toolCancel == nil {
		return false
	}
	s.toolCancel()
	return true
}

func (s *Session) setToolCancel(cancel context.CancelFunc) {
	s.toolCancelMu.Lock()
	s.toolCancel = cancel
	s.toolCancelMu.Unlock()
}

func (s *Session) complete(ctx context.Context) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    s.Config.Model,
		Messages: s.Conversation.ChatMessages(s.systemPrompt),
	}
	if s.Config.Temperature != nil {
		req.Temperature = *s.Config.Temperature
	}
	if s.Config.NumPredict > 0 {
		req.MaxTokens = s.Config.NumPredict
	}

	resp, err := s.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &InferenceError{Operation: "create_completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &InferenceError{Operation: "create_completion", Err: errors.New("response contains no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *Session) executeCall(ctx context.Context, call conversation.ToolCallRecord) *tools.ToolResult {
	s.log.Info().Str("tool", call.Tool).Str("call_id", call.ID).Msg("executing tool")

	result := s.Registry.ExecuteRecord(ctx, call)
	if errors.Is(result.Err, tools.ErrToolRequiresApproval) {
		if s.Approver != nil && s.Approver(call) {
			result = s.Registry.ExecuteRecordWithOptions(ctx, call, tools.ExecuteOptions{Force: true})
		} else {
			result.Err = fmt.Errorf("%w: %s", tools.ErrToolDenied, call.Tool)
			result.Result = fmt.Sprintf("Error: tool '%s' execution denied by user.", call.Tool)
		}
	}

	if result.Failed() {
		s.log.Warn().Str("tool", call.Tool).Err(result.Err).Msg("tool failed")
	} else {
		s.log.Debug().Str("tool", call.Tool).Int("output_chars", len(result.Result)).Msg("tool succeeded")
	}
	return result
}

func buildSystemPrompt(cfg *config.Config, registry *tools.Registry) string {
	base, err := systemprompt.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load system prompt: %v", err))
	}
	return systemprompt.Render(base, map[string]string{
		"WORKING_DIR": registry.Workdir(),
		"MODEL":       cfg.Model,
		"TOOLS":       renderToolsInfo(registry),
	})
}

func renderToolsInfo(registry *tools.Registry) string {
	var builder strings.Builder
	builder.WriteString("Available tools:\n")
	for _, summary := range registry.Summaries() {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", summary.Name, summary.Description))
		if len(summary.Parameters) == 0 {
			continue
		}
		if raw, err := json.Marshal(summary.Parameters); err == nil {
			builder.WriteString(fmt.Sprintf("  parameters: %s\n", raw))
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}
