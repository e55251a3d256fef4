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
	"errors"
	"fmt"
)

// Only two failure modes end a turn without a final answer: the
// inference endpoint going away and the tool round bound. Everything
// tool-shaped stays inside the conversation as error data.
var (
	// ErrInferenceUnavailable indicates the inference endpoint could
	// not be reached or returned no usable reply. Fatal to the current
	// turn only; the process continues.
	ErrInferenceUnavailable = errors.New("inference endpoint unavailable")

	// ErrToolRoundLimit indicates the model kept requesting tools past
	// the configured bound for a single user turn.
	ErrToolRoundLimit = errors.New("tool round limit reached")
)

// InferenceError wraps a transport failure with the operation that hit it.
type InferenceError struct {
	Operation string
	Err       error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference error during %s: %v", e.Operation, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Is matches the ErrInferenceUnavailable sentinel so callers can
// classify without losing the underlying transport error.
func (e *InferenceError) Is(target error) bool {
	return target == ErrInferenceUnavailable
}
