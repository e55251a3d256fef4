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
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacknavodari/super-ollama-agent/internal/agent"
	"github.com/jacknavodari/super-ollama-agent/internal/config"
	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
	"github.com/jacknavodari/super-ollama-agent/internal/tools"
)

func runBatchMode(logger zerolog.Logger) {
	if err := runBatch(logger); err != nil {
		logger.Error().Err(err).Msg("Batch mode failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runBatch reads one request from stdin, runs it to completion and
// prints the final answer. Confirmation-gated tools are denied since
// there is nobody to ask.
func runBatch(logger zerolog.Logger) error {
	logger.Debug().Msg("Running in batch mode")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	workdir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	tools.ConfigureLimits(cfg.ToolLimitsConfig())
	tools.ConfigureOutputFilters(cfg.ToolOutputFiltersConfig())

	registry, err := tools.NewRegistryWithPolicy(workdir, cfg.ToolPolicy())
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	registry.SetTimeouts(cfg.ToolTimeoutsConfig())

	if mgr := initSandbox(cfg, registry.Workdir(), logger); mgr != nil {
		defer mgr.Close()
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	input := strings.TrimSpace(string(data))
	if input == "" {
		return fmt.Errorf("no input on stdin")
	}
	logger.Info().Str("user_input", input).Msg("User input received")

	session := agent.NewSession(cfg, registry, logger)

	start := time.Now()
	answer, err := session.RunTurn(context.Background(), input)
	duration := time.Since(start)

	if err != nil {
		logger.Error().Err(err).Dur("duration_ms", duration).Msg("Error getting response")
		return fmt.Errorf("failed to get response: %w", err)
	}

	logger.Info().
		Str("model_response", answer).
		Dur("duration_ms", duration).
		Msg("AI response received")

	fmt.Println(answer)

	if cfg.TranscriptFile != "" {
		meta := conversation.Meta{
			Model:   cfg.Model,
			Workdir: registry.Workdir(),
			SavedAt: time.Now(),
		}
		if err := session.Conversation.SaveFile(cfg.TranscriptFile, meta); err != nil {
			logger.Warn().Err(err).Msg("Failed to save transcript")
		}
	}

	return nil
}
