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
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

var (
	debugMode  = flag.Bool("d", false, "Enable debug logging")
	logFile    = flag.String("log-file", "", "Write logs to this file (default: no log output)")
	configFile = flag.String("config", "config.json", "Path to the configuration file")
)

func main() {
	flag.Parse()

	logger, closer, err := initLogger(*debugMode, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger.Info().Msg("Agent starting")

	// Batch mode: a single "-" argument reads one request from stdin,
	// runs it to completion and prints the final answer.
	args := flag.Args()
	if len(args) > 0 && args[0] == "-" {
		runBatchMode(logger)
		return
	}

	runREPL(logger)
}

// initLogger configures the global log level and output. Without a log
// file all output is discarded so the conversation stays readable.
func initLogger(debug bool, logFilePath string) (zerolog.Logger, io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer = io.Discard
	var closer io.Closer
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		closer = file
	}

	return zerolog.New(output).With().Timestamp().Logger(), closer, nil
}
