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
	"github.com/rs/zerolog"

	"github.com/jacknavodari/super-ollama-agent/internal/config"
	"github.com/jacknavodari/super-ollama-agent/internal/sandbox"
	"github.com/jacknavodari/super-ollama-agent/internal/tools"
)

// initSandbox starts the shell sandbox when enabled in the config.
// A failed start falls back to host execution rather than refusing
// to run.
func initSandbox(cfg *config.Config, workdir string, logger zerolog.Logger) *sandbox.Manager {
	if !cfg.Sandbox.Enabled {
		return nil
	}

	sandboxCfg := cfg.Sandbox
	if sandboxCfg.Workdir == "" {
		sandboxCfg.Workdir = workdir
	}

	mgr := sandbox.NewManager(sandboxCfg)
	if err := mgr.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize sandbox; falling back to host execution")
		return nil
	}

	tools.SetShellRunner(mgr)
	logger.Info().Str("workdir", sandboxCfg.Workdir).Msg("Sandbox initialized")
	return mgr
}
