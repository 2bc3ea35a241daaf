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

//go:build unix

package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
	"github.com/rs/zerolog"
)

func TestWriteRefusesSymlinkSwappedAfterValidation(t *testing.T) {
	dir := testWorkspace(t)
	outside := testWorkspace(t)
	guard := testGuard(t, dir)

	target := filepath.Join(dir, "victim.txt")
	vp := mustValidate(t, guard, target, paths.ModeWrite)

	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("keep"), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	if err := os.Symlink(secret, target); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	_, err := NewWriteEngine(zerolog.Nop()).Write(context.Background(), vp, "overwritten")
	if apperrors.CodeOf(err) != apperrors.CodeIOError {
		t.Fatalf("expected io_error, got %v", err)
	}
	data, _ := os.ReadFile(secret)
	if string(data) != "keep" {
		t.Fatalf("symlink target was modified: %q", string(data))
	}
}
