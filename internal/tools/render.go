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

package tools

import (
	"encoding/json"
	"fmt"

	apperrors "fsguard/internal/errors"
)

type failurePayload struct {
	Error failureBody `json:"error"`
}

type failureBody struct {
	Code        apperrors.Code `json:"code"`
	Message     string         `json:"message"`
	Path        string         `json:"path,omitempty"`
	Mode        string         `json:"mode,omitempty"`
	Occurrences int            `json:"occurrences,omitempty"`
}

// Render encodes a successful result as the JSON payload returned to the agent.
func Render(result Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil tool result")
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(raw), nil
}

// RenderError encodes a failure as {"error": {...}}. Errors without a code are
// reported as io_error.
func RenderError(err error) string {
	body := failureBody{Code: apperrors.CodeIOError}
	if err != nil {
		body.Message = err.Error()
	}
	if coded, ok := apperrors.As(err); ok {
		body.Code = coded.Code
		body.Path = coded.Path
		body.Mode = coded.Mode
		body.Occurrences = coded.Occurrences
	}
	raw, marshalErr := json.Marshal(failurePayload{Error: body})
	if marshalErr != nil {
		return fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, body.Code, body.Message)
	}
	return string(raw)
}

// RenderOutcome renders either side of a tool call.
func RenderOutcome(result Result, err error) string {
	if err != nil {
		return RenderError(err)
	}
	out, renderErr := Render(result)
	if renderErr != nil {
		return RenderError(renderErr)
	}
	return out
}
