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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
	"github.com/rs/zerolog"
)

const (
	defaultFileMode fs.FileMode = 0o644
	defaultDirMode  fs.FileMode = 0o755
)

// WriteEngine writes whole files for write_file and edit_file.
type WriteEngine struct {
	logger   zerolog.Logger
	syncFile func(*os.File) error
}

// NewWriteEngine creates a write engine.
func NewWriteEngine(logger zerolog.Logger) *WriteEngine {
	return &WriteEngine{logger: logger, syncFile: (*os.File).Sync}
}

// Write replaces the file content, creating parent directories as needed.
func (e *WriteEngine) Write(ctx context.Context, vp paths.ValidatedPath, content string) (*WriteResult, error) {
	if vp.IsZero() || vp.Mode() != paths.ModeWrite {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "write requires a path validated for write access")
	}
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}

	path := vp.Path()
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, ioFailure(filepath.Dir(path), "create parent directories for", err)
	}

	n, err := e.writeFile(ctx, path, []byte(content))
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Str("path", path).Int("bytes", n).Msg("wrote file")
	return &WriteResult{FilePath: path, Bytes: n}, nil
}

// writeFile is the I/O path shared by Write and EditEngine. Content goes to a
// temporary file in the target directory which is synced and renamed over the
// target, so the target holds either the old bytes or the new ones.
func (e *WriteEngine) writeFile(ctx context.Context, path string, data []byte) (int, error) {
	mode := defaultFileMode
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.IsDir():
		return 0, apperrors.New(apperrors.CodeInvalidPath, fmt.Sprintf("%s is a directory, not a file", path)).WithPath(path)
	case err == nil && info.Mode()&fs.ModeSymlink != 0:
		return 0, apperrors.New(apperrors.CodeIOError, fmt.Sprintf("refusing to write through symlink %s", path)).WithPath(path)
	case err == nil && !info.Mode().IsRegular():
		return 0, apperrors.New(apperrors.CodeInvalidPath, fmt.Sprintf("%s is not a regular file", path)).WithPath(path)
	case err == nil:
		mode = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return 0, ioFailure(path, "stat", err)
	}
	if err := ensureContext(ctx); err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, ioFailure(path, "create temporary file for", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(mode)
	}
	if err == nil {
		err = e.syncFile(tmp)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, ioFailure(path, "write", err)
	}
	if err := ensureContext(ctx); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return 0, ioFailure(path, "replace", err)
	}
	committed = true
	if err := syncDir(dir); err != nil {
		e.logger.Warn().Err(err).Str("dir", dir).Msg("failed to sync directory after write")
	}
	return n, nil
}
