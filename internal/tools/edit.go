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
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
	"github.com/rs/zerolog"
)

// maxReportedLines caps the line numbers listed in an ambiguity message.
const maxReportedLines = 10

// EditRequest describes an exact-match replacement.
type EditRequest struct {
	OldString  string
	NewString  string
	ReplaceAll bool
}

// editOccurrence is one match of OldString: its byte offset and 1-based line.
type editOccurrence struct {
	Offset int
	Line   int
}

// EditEngine performs exact string replacement under the uniqueness rule:
// one match is replaced, several matches fail unless ReplaceAll is set.
type EditEngine struct {
	writer *WriteEngine
	logger zerolog.Logger
}

// NewEditEngine creates an edit engine that writes through writer.
func NewEditEngine(writer *WriteEngine, logger zerolog.Logger) *EditEngine {
	return &EditEngine{writer: writer, logger: logger}
}

// Edit applies req to the file. On any failure the file is left untouched.
func (e *EditEngine) Edit(ctx context.Context, vp paths.ValidatedPath, req EditRequest) (*EditResult, error) {
	if req.OldString == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "old_string must not be empty")
	}
	if req.OldString == req.NewString {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "old_string and new_string must be different (no changes to make)")
	}
	if vp.IsZero() || vp.Mode() != paths.ModeWrite {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "edit requires a path validated for write access")
	}
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}

	path := vp.Path()
	if _, err := statTarget(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classifyIOError(path, "read", err)
	}
	if !utf8.Valid(data) {
		return nil, apperrors.New(apperrors.CodeIOError,
			fmt.Sprintf("cannot edit %s: not a text file or encoding issue", path)).WithPath(path)
	}
	content := string(data)

	matches := findOccurrences(content, req.OldString)
	switch {
	case len(matches) == 0:
		return nil, apperrors.New(apperrors.CodeStringNotFound, "old_string not found in file").WithPath(path)
	case len(matches) > 1 && !req.ReplaceAll:
		return nil, apperrors.New(apperrors.CodeAmbiguousMatch, fmt.Sprintf(
			"old_string appears %d times in file (lines %s). Either provide more context to make it unique or set replace_all=true",
			len(matches), describeLines(matches))).WithPath(path).WithOccurrences(len(matches))
	}

	var updated string
	replaced := 1
	if req.ReplaceAll {
		updated = strings.ReplaceAll(content, req.OldString, req.NewString)
		replaced = len(matches)
	} else {
		at := matches[0].Offset
		updated = content[:at] + req.NewString + content[at+len(req.OldString):]
	}

	n, err := e.writer.writeFile(ctx, path, []byte(updated))
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Str("path", path).Int("replacements", replaced).Int("bytes", n).Msg("edited file")
	return &EditResult{FilePath: path, ReplacementsMade: replaced, BytesWritten: n}, nil
}

// findOccurrences lists non-overlapping matches of needle, left to right.
func findOccurrences(content, needle string) []editOccurrence {
	var out []editOccurrence
	line := 1
	scanned := 0
	for pos := 0; pos <= len(content)-len(needle); {
		idx := strings.Index(content[pos:], needle)
		if idx == -1 {
			break
		}
		at := pos + idx
		line += strings.Count(content[scanned:at], "\n")
		scanned = at
		out = append(out, editOccurrence{Offset: at, Line: line})
		pos = at + len(needle)
	}
	return out
}

func describeLines(matches []editOccurrence) string {
	parts := make([]string, 0, maxReportedLines+1)
	for i, m := range matches {
		if i == maxReportedLines {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%d", m.Line))
	}
	return strings.Join(parts, ", ")
}
