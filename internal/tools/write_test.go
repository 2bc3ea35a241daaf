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
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
	"github.com/rs/zerolog"
)

func TestWriteCreatesParentsAndReportsBytes(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	path := filepath.Join(dir, "a", "b", "c.txt")
	content := "héllo\n"

	engine := NewWriteEngine(zerolog.Nop())
	result, err := engine.Write(context.Background(), mustValidate(t, guard, path, paths.ModeWrite), content)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if result.Bytes != len([]byte(content)) || result.Bytes != 7 {
		t.Fatalf("expected 7 bytes, got %d", result.Bytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if string(data) != content {
		t.Fatalf("unexpected content %q", string(data))
	}
}

func TestWriteIsIdempotent(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	path := filepath.Join(dir, "same.txt")
	vp := mustValidate(t, guard, path, paths.ModeWrite)
	engine := NewWriteEngine(zerolog.Nop())

	first, err := engine.Write(context.Background(), vp, "same content")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	second, err := engine.Write(context.Background(), vp, "same content")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if first.Bytes != second.Bytes {
		t.Fatalf("byte counts differ: %d vs %d", first.Bytes, second.Bytes)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "same content" {
		t.Fatalf("unexpected content %q", string(data))
	}
}

func TestWriteOverwritesAndKeepsPermissions(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	path := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(path, []byte("a much longer original body\n"), 0o755); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	engine := NewWriteEngine(zerolog.Nop())
	if _, err := engine.Write(context.Background(), mustValidate(t, guard, path, paths.ModeWrite), "short\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "short\n" {
		t.Fatalf("expected truncating write, got %q", string(data))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("expected permissions to be kept, got %v", info.Mode().Perm())
	}
}

func TestWriteRejectsDirectoryTarget(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	engine := NewWriteEngine(zerolog.Nop())
	_, err := engine.Write(context.Background(), mustValidate(t, guard, sub, paths.ModeWrite), "x")
	if apperrors.CodeOf(err) != apperrors.CodeInvalidPath {
		t.Fatalf("expected invalid_path, got %v", err)
	}
}

func TestWriteRequiresWriteMode(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	engine := NewWriteEngine(zerolog.Nop())
	vp := mustValidate(t, guard, filepath.Join(dir, "x.txt"), paths.ModeRead)
	_, err := engine.Write(context.Background(), vp, "x")
	if apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "x.txt")); !os.IsNotExist(statErr) {
		t.Fatal("nothing should be written for a read-mode path")
	}
}

func TestWriteHonoursCancelledContext(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewWriteEngine(zerolog.Nop())
	if _, err := engine.Write(ctx, mustValidate(t, guard, filepath.Join(dir, "c.txt"), paths.ModeWrite), "x"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	path := filepath.Join(dir, "round.txt")
	content := "first\nsecond\nthird\n"

	if _, err := NewWriteEngine(zerolog.Nop()).Write(context.Background(), mustValidate(t, guard, path, paths.ModeWrite), content); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got := readText(t, NewReadEngine(DefaultLimits(), zerolog.Nop()), guard, path, ReadOptions{})
	want := "     1\tfirst\n     2\tsecond\n     3\tthird"
	if got.Content != want {
		t.Fatalf("expected %q, got %q", want, got.Content)
	}
}

func failingWriteEngine() *WriteEngine {
	engine := NewWriteEngine(zerolog.Nop())
	engine.syncFile = func(*os.File) error { return errors.New("no space left on device") }
	return engine
}

func assertDirEntries(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != len(want) {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("expected entries %v, got %v", want, names)
	}
}

func TestFailedWriteLeavesFileUntouched(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	path := filepath.Join(dir, "keep.txt")
	original := "original bytes\n"
	if err := os.WriteFile(path, []byte(original), 0o600); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	_, err := failingWriteEngine().Write(context.Background(), mustValidate(t, guard, path, paths.ModeWrite), strings.Repeat("x", 8192))
	if apperrors.CodeOf(err) != apperrors.CodeIOError {
		t.Fatalf("expected io_error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Fatalf("failed write changed the file: %q", string(data))
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("failed write changed permissions: %v", info.Mode().Perm())
	}
	assertDirEntries(t, dir, "keep.txt")
}

func TestFailedWriteDoesNotCreateFile(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	path := filepath.Join(dir, "new.txt")

	if _, err := failingWriteEngine().Write(context.Background(), mustValidate(t, guard, path, paths.ModeWrite), "x"); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("failed write must not create the target, stat err = %v", err)
	}
	assertDirEntries(t, dir)
}

func TestFailedEditLeavesFileUntouched(t *testing.T) {
	dir := testWorkspace(t)
	guard := testGuard(t, dir)
	original := "before MARK after\n"
	path := seedFile(t, dir, "doc.txt", original)

	editor := NewEditEngine(failingWriteEngine(), zerolog.Nop())
	_, err := editor.Edit(context.Background(), mustValidate(t, guard, path, paths.ModeWrite),
		EditRequest{OldString: "MARK", NewString: strings.Repeat("y", 8192)})
	if apperrors.CodeOf(err) != apperrors.CodeIOError {
		t.Fatalf("expected io_error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Fatalf("failed edit changed the file: len %d", len(data))
	}
	assertDirEntries(t, dir, "doc.txt")
}
