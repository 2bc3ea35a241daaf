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

// Result is the successful outcome of a tool call.
// The set of implementations is closed: *TextResult, *ImageResult,
// *WriteResult and *EditResult.
type Result interface {
	isResult()
}

// TextResult is a page of line-numbered text.
type TextResult struct {
	FilePath   string `json:"file_path"`
	Content    string `json:"content"`
	TotalLines int    `json:"total_lines"`
	LinesRead  int    `json:"lines_read"`
	Offset     int    `json:"offset"`
	Warning    string `json:"warning,omitempty"`

	// bytes read from disk, before line formatting
	sizeBytes int64
}

// ImageSource carries base64 image data in the shape AI providers accept.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ImageResult is an image file encoded for a multimodal model.
type ImageResult struct {
	Type      string      `json:"type"`
	Source    ImageSource `json:"source"`
	FilePath  string      `json:"file_path"`
	SizeBytes int64       `json:"size_bytes"`
	Warning   string      `json:"warning,omitempty"`
}

// WriteResult reports a completed write.
type WriteResult struct {
	FilePath string `json:"file_path"`
	Bytes    int    `json:"bytes"`
}

// EditResult reports a completed edit.
type EditResult struct {
	FilePath         string `json:"file_path"`
	ReplacementsMade int    `json:"replacements_made"`
	BytesWritten     int    `json:"bytes_written"`
}

func (*TextResult) isResult()  {}
func (*ImageResult) isResult() {}
func (*WriteResult) isResult() {}
func (*EditResult) isResult()  {}
