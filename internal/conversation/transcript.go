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

package conversation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// TranscriptError describes a failure while persisting or loading a transcript.
type TranscriptError struct {
	Operation string
	Filepath  string
	Err       error
}

func (e *TranscriptError) Error() string {
	return fmt.Sprintf("transcript error during %s on %s: %v", e.Operation, e.Filepath, e.Err)
}

func (e *TranscriptError) Unwrap() error {
	return e.Err
}

// Meta records the session a transcript was captured from. It becomes
// the first line of a saved transcript so a reader knows which model
// produced the turns and where they ran.
type Meta struct {
	Model   string    `json:"model,omitempty"`
	Workdir string    `json:"workdir,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// transcriptRecord decodes one JSONL line: either the leading meta
// record or a turn. Turns always carry a kind; the meta line never does.
type transcriptRecord struct {
	Meta *Meta `json:"meta,omitempty"`
	Turn
}

// Save writes the meta record followed by one JSON-encoded turn per line.
func (c *Conversation) Save(w io.Writer, meta Meta) error {
	encoder := json.NewEncoder(w)
	header := struct {
		Meta Meta `json:"meta"`
	}{meta}
	if err := encoder.Encode(header); err != nil {
		return err
	}
	for _, turn := range c.Snapshot() {
		if err := encoder.Encode(turn); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes the transcript to path, replacing any previous contents.
func (c *Conversation) SaveFile(path string, meta Meta) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &TranscriptError{Operation: "open", Filepath: path, Err: err}
	}
	defer file.Close()

	if err := c.Save(file, meta); err != nil {
		return &TranscriptError{Operation: "encode", Filepath: path, Err: err}
	}
	return nil
}

// Load reads JSONL records from r and appends the turns in order. The
// meta record is returned when present; transcripts written without one
// still load, with a zero Meta.
func (c *Conversation) Load(r io.Reader) (Meta, error) {
	var meta Meta
	decoder := json.NewDecoder(r)
	for {
		var record transcriptRecord
		if err := decoder.Decode(&record); err != nil {
			if err == io.EOF {
				return meta, nil
			}
			return meta, err
		}
		if record.Meta != nil && record.Kind == "" {
			meta = *record.Meta
			continue
		}
		c.append(record.Turn)
	}
}

// LoadFile loads a previously saved transcript. A missing file is not an
// error; the conversation simply starts empty.
func (c *Conversation) LoadFile(path string) (Meta, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, nil
		}
		return Meta{}, &TranscriptError{Operation: "open", Filepath: path, Err: err}
	}
	defer file.Close()

	meta, err := c.Load(file)
	if err != nil {
		return meta, &TranscriptError{Operation: "decode", Filepath: path, Err: err}
	}
	return meta, nil
}
