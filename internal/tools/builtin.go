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

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
)

const builtinToolVersion = "1.0.0"

// Names of the file tools.
const (
	ToolReadFile  = "read_file"
	ToolWriteFile = "write_file"
	ToolEditFile  = "edit_file"
)

type readFileArgs struct {
	FilePath string `json:"file_path" jsonschema:"description=The absolute path to the file to read" validate:"required"`
	Offset   *int   `json:"offset,omitempty" jsonschema:"description=The line number to start reading from (1-indexed). Only provide if the file is too large to read at once" validate:"omitempty,min=1"`
	Limit    *int   `json:"limit,omitempty" jsonschema:"description=The number of lines to read. Only provide if the file is too large to read at once" validate:"omitempty,min=1"`
}

type writeFileArgs struct {
	FilePath string  `json:"file_path" jsonschema:"description=The absolute path to the file to write (must be absolute)" validate:"required"`
	Content  *string `json:"content" jsonschema:"description=The content to write to the file" validate:"required"`
}

type editFileArgs struct {
	FilePath   string  `json:"file_path" jsonschema:"description=The absolute path to the file to modify" validate:"required"`
	OldString  string  `json:"old_string" jsonschema:"description=The exact text to replace,minLength=1" validate:"required"`
	NewString  *string `json:"new_string" jsonschema:"description=The text to replace it with (must be different from old_string)" validate:"required"`
	ReplaceAll bool    `json:"replace_all,omitempty" jsonschema:"description=Replace all occurrences of old_string (default false)"`
}

const readFileDescription = `Reads a file from the local filesystem.

Usage:
- The file_path parameter must be an absolute path, not a relative path
- By default, it reads up to 2000 lines starting from the beginning of the file
- You can optionally specify a line offset and limit for long files
- Any lines longer than 2000 characters will be truncated
- Results are returned using cat -n format, with line numbers starting at 1
- Image files (png, jpg, jpeg, gif, webp, bmp) are returned as base64 image payloads
- This tool can only read files, not directories
- Reading an empty file returns a warning in place of contents`

const writeFileDescription = `Writes a file to the local filesystem.

Usage:
- This tool will overwrite the existing file if there is one at the provided path
- Parent directories are created as needed
- The file_path parameter must be an absolute path inside an allowed write directory`

const editFileDescription = `Performs exact string replacements in files.

Usage:
- The edit will FAIL if old_string is not found in the file
- The edit will FAIL if old_string appears more than once, unless replace_all is true.
  Provide a larger string with more surrounding context to make it unique
- Use replace_all for renaming a string across the whole file
- old_string and new_string must differ`

// fileTools binds the engines to one immutable Settings value.
type fileTools struct {
	settings Settings
	reader   *ReadEngine
	writer   *WriteEngine
	editor   *EditEngine
}

func newFileTools(settings Settings) *fileTools {
	writer := NewWriteEngine(settings.Logger)
	return &fileTools{
		settings: settings,
		reader:   NewReadEngine(settings.Limits, settings.Logger),
		writer:   writer,
		editor:   NewEditEngine(writer, settings.Logger),
	}
}

func (f *fileTools) definitions() []Tool {
	return []Tool{
		&ToolDefinition{
			NameValue:        ToolReadFile,
			DescriptionValue: readFileDescription,
			ParametersValue:  mustSchemaParametersFor[readFileArgs](),
			ExecuteFunc:      f.readFile,
			ValidateFunc: ChainValidation(
				RequireStringArg("file_path", "missing or invalid 'file_path' parameter"),
				ValidateArgs[readFileArgs](),
			),
			VersionValue: builtinToolVersion,
		},
		&ToolDefinition{
			NameValue:        ToolWriteFile,
			DescriptionValue: writeFileDescription,
			ParametersValue:  mustSchemaParametersFor[writeFileArgs](),
			ExecuteFunc:      f.writeFile,
			ValidateFunc: ChainValidation(
				RequireStringArg("file_path", "missing or invalid 'file_path' parameter"),
				ValidateArgs[writeFileArgs](),
			),
			VersionValue: builtinToolVersion,
		},
		&ToolDefinition{
			NameValue:        ToolEditFile,
			DescriptionValue: editFileDescription,
			ParametersValue:  mustSchemaParametersFor[editFileArgs](),
			ExecuteFunc:      f.editFile,
			ValidateFunc: ChainValidation(
				RequireStringArg("file_path", "missing or invalid 'file_path' parameter"),
				ValidateArgs[editFileArgs](),
			),
			VersionValue: builtinToolVersion,
		},
	}
}

func (f *fileTools) readFile(ctx context.Context, args map[string]interface{}) (Result, error) {
	parsed, err := unmarshalAndValidate[readFileArgs](args)
	if err != nil {
		return nil, NewArgumentError(ToolReadFile, err)
	}
	vp, err := f.admit(ctx, ToolReadFile, parsed.FilePath, paths.ModeRead)
	if err != nil {
		return nil, err
	}

	opts := ReadOptions{}
	if parsed.Offset != nil {
		opts.Offset = *parsed.Offset
	}
	if parsed.Limit != nil {
		opts.Limit = *parsed.Limit
	}
	result, err := f.reader.Read(ctx, vp, opts)
	if err != nil {
		return nil, err
	}

	var size int64
	switch r := result.(type) {
	case *TextResult:
		size = r.sizeBytes
	case *ImageResult:
		size = r.SizeBytes
	}
	f.settings.Events.Emit(ctx, newEvent(EventArtifactRead, ToolReadFile, vp.Path(), size))
	return result, nil
}

func (f *fileTools) writeFile(ctx context.Context, args map[string]interface{}) (Result, error) {
	parsed, err := unmarshalAndValidate[writeFileArgs](args)
	if err != nil {
		return nil, NewArgumentError(ToolWriteFile, err)
	}
	vp, err := f.admit(ctx, ToolWriteFile, parsed.FilePath, paths.ModeWrite)
	if err != nil {
		return nil, err
	}
	result, err := f.writer.Write(ctx, vp, *parsed.Content)
	if err != nil {
		return nil, err
	}
	f.settings.Events.Emit(ctx, newEvent(EventArtifactWrite, ToolWriteFile, vp.Path(), int64(result.Bytes)))
	return result, nil
}

func (f *fileTools) editFile(ctx context.Context, args map[string]interface{}) (Result, error) {
	parsed, err := unmarshalAndValidate[editFileArgs](args)
	if err != nil {
		return nil, NewArgumentError(ToolEditFile, err)
	}
	vp, err := f.admit(ctx, ToolEditFile, parsed.FilePath, paths.ModeWrite)
	if err != nil {
		return nil, err
	}
	result, err := f.editor.Edit(ctx, vp, EditRequest{
		OldString:  parsed.OldString,
		NewString:  *parsed.NewString,
		ReplaceAll: parsed.ReplaceAll,
	})
	if err != nil {
		return nil, err
	}
	f.settings.Events.Emit(ctx, newEvent(EventArtifactWrite, ToolEditFile, vp.Path(), int64(result.BytesWritten)))
	return result, nil
}

// admit resolves mentions and runs the path guard.
func (f *fileTools) admit(ctx context.Context, tool, raw string, mode paths.AccessMode) (paths.ValidatedPath, error) {
	resolved, err := resolveMention(ctx, f.settings.Mentions, raw)
	if err != nil {
		return paths.ValidatedPath{}, err
	}
	vp, err := f.settings.Guard.Validate(resolved, mode)
	if err != nil {
		if apperrors.Is(err, apperrors.CodePathDenied) {
			f.settings.Logger.Warn().Str("tool", tool).Str("path", resolved).Str("mode", mode.String()).Msg("path denied")
		}
		return paths.ValidatedPath{}, err
	}
	if resolved != raw {
		f.settings.Logger.Debug().Str("mention", raw).Str("path", vp.Path()).Msg("resolved mention")
	}
	return vp, nil
}
