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
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
	"github.com/jacknavodari/super-ollama-agent/internal/ollama"
	"github.com/jacknavodari/super-ollama-agent/internal/tools"
)

// Command is one bare-word console command. Anything that is not a
// command is sent to the model as a request.
type Command struct {
	Name        string
	Description string
}

func availableCommands() []Command {
	return []Command{
		{Name: "help", Description: "Show available commands"},
		{Name: "test", Description: "Check the connection to the Ollama server"},
		{Name: "models", Description: "List models available on the Ollama server"},
		{Name: "running", Description: "List models currently loaded in memory"},
		{Name: "switch", Description: "Switch to another model: switch <model>"},
		{Name: "pwd", Description: "Show the agent working directory"},
		{Name: "ls", Description: "List the working directory"},
		{Name: "history", Description: "Display conversation history"},
		{Name: "save", Description: "Save the conversation transcript"},
		{Name: "clear", Description: "Clear conversation history"},
		{Name: "debug", Description: "Toggle debug logging"},
		{Name: "quit", Description: "Exit the application"},
		{Name: "exit", Description: "Exit the application"},
	}
}

// isCommand reports whether the first word of input names a console
// command.
func isCommand(input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}
	word := strings.ToLower(fields[0])
	for _, cmd := range availableCommands() {
		if cmd.Name == word {
			return true
		}
	}
	return false
}

// handleCommand processes a console command, returns true to quit.
func (c *console) handleCommand(input string) bool {
	fields := strings.Fields(input)
	cmdName := strings.ToLower(fields[0])
	args := fields[1:]

	c.logger.Debug().Str("command", cmdName).Msg("Executing command")

	switch cmdName {
	case "help":
		c.showHelp()
		return false

	case "test":
		c.testConnection()
		return false

	case "models":
		c.showModels()
		return false

	case "running":
		c.showRunning()
		return false

	case "switch":
		c.switchModel(args)
		return false

	case "pwd":
		fmt.Println(c.session.Registry.Workdir())
		return false

	case "ls":
		c.listWorkdir()
		return false

	case "history":
		c.showHistory()
		return false

	case "save":
		c.saveTranscript()
		return false

	case "clear":
		c.session.Conversation.Clear()
		c.colors.Success.Println("✓ Conversation history cleared")
		return false

	case "debug":
		c.toggleDebug()
		return false

	case "quit", "exit":
		return true

	default:
		c.colors.Error.Printf("✗ Unknown command: %s (type help for available commands)\n", cmdName)
		return false
	}
}

func (c *console) showHelp() {
	c.colors.Header.Println("\nAvailable Commands:")
	seen := make(map[string]bool)
	for _, cmd := range availableCommands() {
		if seen[cmd.Name] {
			continue
		}
		seen[cmd.Name] = true
		fmt.Printf("  %-12s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nAnything else is sent to the model as a request.")
	fmt.Println()
}

// testConnection checks that the configured Ollama server answers and
// reports whether the active model is installed there.
func (c *console) testConnection() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := c.ollama.ListModels(ctx)
	if err != nil {
		c.colors.Error.Printf("✗ Cannot reach %s: %v\n", c.cfg.OllamaHost, err)
		fmt.Println("  Is the Ollama server running?")
		return
	}

	c.colors.Success.Printf("✓ Connected to %s (%d models installed)\n", c.cfg.OllamaHost, len(models))
	for _, m := range models {
		if m.Name == c.cfg.Model {
			return
		}
	}
	c.colors.Error.Printf("✗ Model %s is not installed on the server\n", c.cfg.Model)
}

func (c *console) showModels() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := c.ollama.ListModels(ctx)
	if err != nil {
		c.colors.Error.Printf("✗ Failed to list models: %v\n", err)
		return
	}
	if len(models) == 0 {
		fmt.Println("No models installed")
		return
	}

	c.colors.Header.Println("\nInstalled Models:")
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tSize\tModified")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, ollama.FormatSize(m.Size), m.ModifiedAt.Format("2006-01-02"))
	}
	w.Flush()
	fmt.Println()
}

func (c *console) showRunning() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := c.ollama.ListRunning(ctx)
	if err != nil {
		c.colors.Error.Printf("✗ Failed to list running models: %v\n", err)
		return
	}
	if len(models) == 0 {
		fmt.Println("No models currently loaded")
		return
	}

	c.colors.Header.Println("\nRunning Models:")
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tSize\tExpires")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, ollama.FormatSize(m.Size), m.ExpiresAt.Format("15:04:05"))
	}
	w.Flush()
	fmt.Println()
}

func (c *console) switchModel(args []string) {
	if len(args) != 1 {
		c.colors.Error.Println("✗ Usage: switch <model>")
		return
	}
	model := args[0]
	c.session.SetModel(model)
	c.logger.Info().Str("model", model).Msg("Model switched")
	c.colors.Success.Printf("✓ Switched to model %s\n", model)
}

// listWorkdir runs the list_directory tool directly, bypassing policy:
// the user asked from the prompt, not the model.
func (c *console) listWorkdir() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	call := conversation.ToolCallRecord{Tool: "list_directory"}
	result := c.session.Registry.ExecuteRecordWithOptions(ctx, call, tools.ExecuteOptions{Force: true})
	if result.Failed() {
		c.colors.Error.Printf("✗ %s\n", result.Result)
		return
	}
	fmt.Println(result.Result)
}

func (c *console) showHistory() {
	turns := c.session.Conversation.Snapshot()
	if len(turns) == 0 {
		c.colors.Error.Println("No conversation history")
		return
	}

	c.colors.Header.Println("\nConversation History:")
	for _, turn := range turns {
		switch turn.Kind {
		case conversation.KindUser:
			c.colors.User.Print("❯ ")
			fmt.Printf("%s\n", turn.Content)
		case conversation.KindAssistant:
			c.colors.Assistant.Print("⟫ ")
			fmt.Printf("%s\n", turn.Content)
		case conversation.KindToolResult:
			c.colors.Tool.Printf("🔧 [%s]", turn.Tool)
			fmt.Printf(" %s\n", firstLine(turn.Content))
		}
	}
	fmt.Println()
}

func (c *console) saveTranscript() {
	path := c.cfg.TranscriptFile
	if path == "" {
		c.colors.Error.Println("✗ No transcript file configured")
		return
	}
	meta := conversation.Meta{
		Model:   c.cfg.Model,
		Workdir: c.session.Registry.Workdir(),
		SavedAt: time.Now(),
	}
	if err := c.session.Conversation.SaveFile(path, meta); err != nil {
		c.colors.Error.Printf("✗ Failed to save transcript: %v\n", err)
		return
	}
	c.colors.Success.Printf("✓ Transcript saved to %s\n", path)
}

func (c *console) toggleDebug() {
	if zerolog.GlobalLevel() == zerolog.DebugLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		c.colors.Success.Println("✓ Debug mode disabled")
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	c.colors.Success.Println("✓ Debug mode enabled")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
