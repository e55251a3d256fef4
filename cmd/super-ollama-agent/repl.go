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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"github.com/jacknavodari/super-ollama-agent/internal/agent"
	"github.com/jacknavodari/super-ollama-agent/internal/config"
	"github.com/jacknavodari/super-ollama-agent/internal/ollama"
	"github.com/jacknavodari/super-ollama-agent/internal/theme"
	"github.com/jacknavodari/super-ollama-agent/internal/tools"
)

// console bundles everything the interactive loop and its commands
// need.
type console struct {
	cfg      *config.Config
	session  *agent.Session
	ollama   *ollama.Client
	colors   *theme.ColorScheme
	logger   zerolog.Logger
	canceler *operationCanceler
}

func runREPL(logger zerolog.Logger) {
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	themeMgr, err := theme.NewManager("theme.json")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load theme")
	}
	colors := themeMgr.ColorScheme()

	workdir, err := os.Getwd()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to resolve working directory")
	}

	tools.ConfigureLimits(cfg.ToolLimitsConfig())
	tools.ConfigureOutputFilters(cfg.ToolOutputFiltersConfig())

	registry, err := tools.NewRegistryWithPolicy(workdir, cfg.ToolPolicy())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build tool registry")
	}
	registry.SetTimeouts(cfg.ToolTimeoutsConfig())

	for _, warning := range cfg.Validate(registry) {
		logger.Warn().Str("field", warning.Field).Msg(warning.Message)
		colors.Error.Printf("⚠ config: %s\n", warning.Message)
	}

	if mgr := initSandbox(cfg, registry.Workdir(), logger); mgr != nil {
		defer mgr.Close()
	}

	session := agent.NewSession(cfg, registry, logger)
	session.Approver = newToolApprover()

	c := &console{
		cfg:      cfg,
		session:  session,
		ollama:   ollama.NewClient(cfg.OllamaHost, logger),
		colors:   colors,
		logger:   logger,
		canceler: &operationCanceler{},
	}
	session.OnToolResult = c.showToolResult

	stopInterrupts := watchInterrupts(c.canceler)
	defer stopInterrupts()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "❯ ",
		HistoryFile:         cfg.CommandHistoryFile,
		AutoComplete:        commandCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: filterInterruptRune,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize readline")
	}
	defer rl.Close()

	colors.Header.Println("Super Ollama Agent")
	fmt.Printf("Connected to: %s\n", cfg.OllamaHost)
	fmt.Printf("Model in use: %s\n", cfg.Model)
	fmt.Printf("Working directory: %s\n", registry.Workdir())
	fmt.Println("Type help for commands, exit or Ctrl+D to leave")
	fmt.Println()

	for {
		line, err := rl.Readline()
		switch classifyReadlineError(line, err) {
		case readlineContinue:
			continue
		case readlineExit:
			logger.Debug().Msg("Readline closed")
			logger.Info().Msg("Session ended")
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		logger.Info().Str("user_input", line).Msg("User input received")

		if isCommand(line) {
			if c.handleCommand(line) {
				break
			}
			continue
		}

		c.handleConversation(line)
	}

	logger.Info().Msg("Session ended")
}

// handleConversation runs one full request/answer turn, including any
// tool rounds the model asks for. Ctrl+C during tool execution kills
// the running call and lets the turn continue with the partial results;
// Ctrl+C during inference aborts the whole turn.
func (c *console) handleConversation(input string) {
	ctx, cancel := context.WithCancel(context.Background())
	c.canceler.Set(func() {
		if !c.session.InterruptTools() {
			cancel()
		}
	})
	defer func() {
		c.canceler.Clear()
		cancel()
	}()

	start := time.Now()
	answer, err := c.session.RunTurn(ctx, input)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error().Err(err).Dur("duration_ms", duration).Msg("Turn failed")
		switch {
		case errors.Is(err, agent.ErrToolRoundLimit):
			c.colors.Error.Println("✗ Tool round limit reached; stopping this request.")
		case errors.Is(err, context.Canceled):
			c.colors.Error.Println("✗ Interrupted.")
		case errors.Is(err, agent.ErrInferenceUnavailable):
			c.colors.Error.Printf("✗ Cannot reach %s: %v\n", c.cfg.OllamaHost, err)
			fmt.Println("  Is the Ollama server running?")
		default:
			c.colors.Error.Printf("✗ Error: %v\n", err)
		}
		fmt.Println()
		return
	}

	c.logger.Info().
		Str("model_response", answer).
		Dur("duration_ms", duration).
		Msg("AI response received")

	c.colors.Assistant.Print("⟫ ")
	fmt.Printf("%s\n\n", answer)
}

// showToolResult displays tool activity as the turn progresses.
func (c *console) showToolResult(result *tools.ToolResult) {
	c.colors.Tool.Printf("🔧 [%s]", result.Call.Tool)
	if result.Failed() {
		c.colors.Error.Printf(" %s", firstLine(result.Result))
	} else {
		fmt.Printf(" %s", firstLine(result.Result))
	}
	if result.Truncated {
		fmt.Print(" (output truncated)")
	}
	fmt.Println()
}

// commandCompleter builds a readline completer from the command set.
func commandCompleter() *readline.PrefixCompleter {
	commands := availableCommands()
	items := make([]readline.PrefixCompleterInterface, len(commands))
	for i, cmd := range commands {
		items[i] = readline.PcItem(cmd.Name)
	}
	return readline.NewPrefixCompleter(items...)
}
