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

// Package ollama talks to the native Ollama management API. Chat
// traffic goes through the OpenAI-compatible endpoint instead; this
// client only covers what that surface does not expose: installed
// models and currently loaded models.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ModelInfo describes one installed model, from /api/tags.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// RunningModel describes one loaded model, from /api/ps.
type RunningModel struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

// APIError reports a failed request against the management API.
type APIError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ollama %s failed: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("ollama %s failed: %v", e.Operation, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client queries a local Ollama server.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:11434".
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var payload struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/tags", "list models", &payload); err != nil {
		return nil, err
	}
	return payload.Models, nil
}

// ListRunning returns the models currently loaded in memory.
func (c *Client) ListRunning(ctx context.Context) ([]RunningModel, error) {
	var payload struct {
		Models []RunningModel `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/ps", "list running models", &payload); err != nil {
		return nil, err
	}
	return payload.Models, nil
}

func (c *Client) getJSON(ctx context.Context, path, operation string, out interface{}) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return &APIError{Operation: operation, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &APIError{Operation: operation, Err: err}
	}

	c.log.Debug().Str("endpoint", endpoint).Msg("querying ollama API")
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &APIError{Operation: operation, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Operation: operation, Err: err}
	}
	return nil
}

// FormatSize renders a model size for display.
func FormatSize(bytes int64) string {
	const gb = 1024 * 1024 * 1024
	const mb = 1024 * 1024
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
