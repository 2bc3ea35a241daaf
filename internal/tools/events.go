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
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Artifact event names emitted after successful file operations.
const (
	EventArtifactRead  = "artifact:read"
	EventArtifactWrite = "artifact:write"
)

// Event describes a file touched by a tool.
type Event struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Tool  string    `json:"tool"`
	Path  string    `json:"path"`
	Bytes int64     `json:"bytes"`
	Time  time.Time `json:"time"`
}

// EventSink receives artifact events. Emit must not block for long and
// must be safe for concurrent use.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event)

// Emit calls f.
func (f EventSinkFunc) Emit(ctx context.Context, event Event) {
	f(ctx, event)
}

// LogEventSink writes artifact events to a zerolog logger.
type LogEventSink struct {
	logger zerolog.Logger
}

// NewLogEventSink returns the default sink.
func NewLogEventSink(logger zerolog.Logger) *LogEventSink {
	return &LogEventSink{logger: logger}
}

// Emit logs the event at info level.
func (s *LogEventSink) Emit(_ context.Context, event Event) {
	s.logger.Info().
		Str("event", event.Name).
		Str("id", event.ID).
		Str("tool", event.Tool).
		Str("path", event.Path).
		Int64("bytes", event.Bytes).
		Time("at", event.Time).
		Msg("artifact")
}

func newEvent(name, tool, path string, size int64) Event {
	return Event{
		ID:    uuid.NewString(),
		Name:  name,
		Tool:  tool,
		Path:  path,
		Bytes: size,
		Time:  time.Now().UTC(),
	}
}
