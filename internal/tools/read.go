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
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

const (
	truncatedMarker  = "... [truncated]"
	emptyFileWarning = "File exists but has empty contents"
)

type fileKind int

const (
	kindText fileKind = iota
	kindImage
)

var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

func classify(path string) fileKind {
	if _, ok := imageMediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return kindImage
	}
	return kindText
}

// ReadOptions selects a page of a text file. Zero values mean "use the default".
type ReadOptions struct {
	Offset int
	Limit  int
}

// ReadEngine loads files for the read_file tool.
type ReadEngine struct {
	limits Limits
	logger zerolog.Logger
}

// NewReadEngine creates a read engine with the given bounds.
func NewReadEngine(limits Limits, logger zerolog.Logger) *ReadEngine {
	return &ReadEngine{limits: normalizeLimits(limits), logger: logger}
}

// Read returns a *TextResult or an *ImageResult for the validated path.
func (e *ReadEngine) Read(ctx context.Context, vp paths.ValidatedPath, opts ReadOptions) (Result, error) {
	if vp.IsZero() {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "read requires a validated path")
	}
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}

	path := vp.Path()
	info, err := statTarget(path)
	if err != nil {
		return nil, err
	}

	if classify(path) == kindImage {
		return e.readImage(ctx, path, info)
	}
	return e.readText(ctx, path, opts)
}

func (e *ReadEngine) readText(ctx context.Context, path string, opts ReadOptions) (*TextResult, error) {
	offset := opts.Offset
	if offset == 0 {
		offset = 1
	}
	if offset < 1 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("offset must be >= 1, got %d", opts.Offset)).WithPath(path)
	}
	limit := opts.Limit
	if limit == 0 {
		limit = e.limits.DefaultLineLimit
	}
	if limit < 1 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("limit must be >= 1, got %d", opts.Limit)).WithPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classifyIOError(path, "read", err)
	}
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return &TextResult{FilePath: path, Offset: offset, Warning: emptyFileWarning}, nil
	}
	if !utf8.Valid(data) {
		return nil, apperrors.New(apperrors.CodeIOError,
			fmt.Sprintf("cannot read %s: not a text file or encoding issue", path)).WithPath(path)
	}

	lines := splitLines(string(data))
	total := len(lines)
	start := offset - 1
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%6d\t%s", i+1, truncateLine(lines[i], e.limits.MaxLineLength))
	}

	e.logger.Debug().Str("path", path).Int("offset", offset).Int("lines", end-start).Msg("read text")
	return &TextResult{
		FilePath:   path,
		Content:    b.String(),
		TotalLines: total,
		LinesRead:  end - start,
		Offset:     offset,
		sizeBytes:  int64(len(data)),
	}, nil
}

func (e *ReadEngine) readImage(ctx context.Context, path string, info fs.FileInfo) (*ImageResult, error) {
	size := info.Size()
	if size > e.limits.ImageMaxBytes {
		return nil, apperrors.New(apperrors.CodeFileTooLarge,
			fmt.Sprintf("image %s is %s, exceeding the %s limit", path,
				humanize.IBytes(uint64(size)), humanize.IBytes(uint64(e.limits.ImageMaxBytes)))).WithPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classifyIOError(path, "read", err)
	}
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}

	mediaType := imageMediaTypes[strings.ToLower(filepath.Ext(path))]
	var warnings []string
	if int64(len(data)) > e.limits.ImageWarnBytes {
		warnings = append(warnings, fmt.Sprintf("Large image (%s); it may use a significant part of the context window",
			humanize.IBytes(uint64(len(data)))))
	}
	if detected := mimetype.Detect(data); !detected.Is(mediaType) {
		warnings = append(warnings, fmt.Sprintf("content looks like %s, not %s", detected.String(), mediaType))
	}

	e.logger.Debug().Str("path", path).Int("bytes", len(data)).Str("media_type", mediaType).Msg("read image")
	return &ImageResult{
		Type: "image",
		Source: ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      base64.StdEncoding.EncodeToString(data),
		},
		FilePath:  path,
		SizeBytes: int64(len(data)),
		Warning:   strings.Join(warnings, "; "),
	}, nil
}

// splitLines splits on "\n" and drops a trailing "\r" from each line.
// A final newline does not start an extra line.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// truncateLine shortens line to max characters for display.
func truncateLine(line string, max int) string {
	if max <= 0 || utf8.RuneCountInString(line) <= max {
		return line
	}
	count := 0
	for i := range line {
		if count == max {
			return line[:i] + truncatedMarker
		}
		count++
	}
	return line
}

// statTarget rejects missing paths and directories.
func statTarget(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, classifyIOError(path, "stat", err)
	}
	if info.IsDir() {
		return nil, apperrors.New(apperrors.CodeInvalidPath, fmt.Sprintf("%s is a directory, not a file", path)).WithPath(path)
	}
	return info, nil
}

func classifyIOError(path, action string, err error) *apperrors.Error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("file not found: %s", path), err).WithPath(path)
	}
	return ioFailure(path, action, err)
}

func ensureContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
