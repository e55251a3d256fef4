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

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/jacknavodari/super-ollama-agent/internal/agent"
	"github.com/jacknavodari/super-ollama-agent/internal/config"
	"github.com/jacknavodari/super-ollama-agent/internal/ollama"
	"github.com/jacknavodari/super-ollama-agent/internal/theme"
	"github.com/jacknavodari/super-ollama-agent/internal/tools"
)

// stubClient satisfies agent.ChatClient without a server.
type stubClient struct{}

func (s *stubClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "ok"}},
		},
	}, nil
}

func newTestConsole(t *testing.T) *console {
	t.Helper()

	cfg := config.DefaultConfig()
	registry, err := tools.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := zerolog.Nop()
	session := agent.NewSessionWithClient(cfg, registry, &stubClient{}, logger)

	return &console{
		cfg:      cfg,
		session:  session,
		ollama:   ollama.NewClient(cfg.OllamaHost, logger),
		colors:   theme.DisabledColorScheme(),
		logger:   logger,
		canceler: &operationCanceler{},
	}
}

func TestAvailableCommands(t *testing.T) {
	commands := availableCommands()
	if len(commands) == 0 {
		t.Fatal("expected non-empty command list")
	}

	essential := []string{"help", "test", "models", "switch", "clear", "quit", "exit"}
	for _, name := range essential {
		found := false
		for _, cmd := range commands {
			if cmd.Name == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected essential command %q to be available", name)
		}
	}
}

func TestIsCommand(t *testing.T) {
	cases := []struct {
		input    string
		expected bool
	}{
		{"help", true},
		{"HELP", true},
		{"models", true},
		{"switch qwen3-coder:30b", true},
		{"create a file named hello.txt", false},
		{"helpme with this", false},
	}

	for _, tc := range cases {
		if got := isCommand(tc.input); got != tc.expected {
			t.Errorf("isCommand(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestHandleCommandQuit(t *testing.T) {
	c := newTestConsole(t)

	if !c.handleCommand("quit") {
		t.Error("quit should trigger exit")
	}
	if !c.handleCommand("exit") {
		t.Error("exit should trigger exit")
	}
	if c.handleCommand("help") {
		t.Error("help should not trigger exit")
	}
}

func TestHandleCommandClear(t *testing.T) {
	c := newTestConsole(t)
	c.session.Conversation.AppendUser("test message")

	if c.handleCommand("clear") {
		t.Error("clear should not trigger exit")
	}
	if c.session.Conversation.Len() != 0 {
		t.Errorf("expected empty history after clear, got %d turns", c.session.Conversation.Len())
	}
}

func TestHandleCommandSwitch(t *testing.T) {
	c := newTestConsole(t)

	c.handleCommand("switch llama3.2:3b")
	if c.cfg.Model != "llama3.2:3b" {
		t.Errorf("expected model to change, got %q", c.cfg.Model)
	}
	if !strings.Contains(c.session.SystemPrompt(), "llama3.2:3b") {
		t.Error("expected system prompt to name the new model")
	}

	// Wrong arity leaves the model alone.
	c.handleCommand("switch")
	if c.cfg.Model != "llama3.2:3b" {
		t.Errorf("expected model unchanged on bad usage, got %q", c.cfg.Model)
	}
}

func TestHandleCommandSave(t *testing.T) {
	c := newTestConsole(t)
	c.cfg.TranscriptFile = t.TempDir() + "/transcript.json"
	c.session.Conversation.AppendUser("hello")

	if c.handleCommand("save") {
		t.Error("save should not trigger exit")
	}

	data, err := os.ReadFile(c.cfg.TranscriptFile)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	header := firstLine(string(data))
	if !strings.Contains(header, `"meta"`) || !strings.Contains(header, c.cfg.Model) {
		t.Errorf("transcript header should name the session: %q", header)
	}
	if !strings.Contains(header, c.session.Registry.Workdir()) {
		t.Errorf("transcript header missing working directory: %q", header)
	}
}

func TestHandleCommandTest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"models":[{"name":"llama3.2","size":123}]}`)
	}))
	defer server.Close()

	c := newTestConsole(t)
	c.cfg.OllamaHost = server.URL
	c.ollama = ollama.NewClient(server.URL, zerolog.Nop())

	if c.handleCommand("test") {
		t.Error("test should not trigger exit")
	}
}

func TestHandleCommandTestServerDown(t *testing.T) {
	c := newTestConsole(t)
	c.ollama = ollama.NewClient("http://127.0.0.1:1", zerolog.Nop())

	// An unreachable server is reported, never fatal.
	if c.handleCommand("test") {
		t.Error("test should not trigger exit")
	}
}

func TestHandleCommandLs(t *testing.T) {
	c := newTestConsole(t)
	if c.handleCommand("ls") {
		t.Error("ls should not trigger exit")
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("one\ntwo"); got != "one" {
		t.Errorf("expected first line, got %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Errorf("expected unchanged line, got %q", got)
	}
}
