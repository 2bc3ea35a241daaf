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
	"path/filepath"
	"sync"
	"testing"

	"fsguard/internal/paths"
	"github.com/rs/zerolog"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

// testWorkspace returns a canonical temp dir.
func testWorkspace(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("failed to resolve temp dir: %v", err)
	}
	return dir
}

// testGuard allows unrestricted reads and writes below dir.
func testGuard(t *testing.T, dir string) *paths.Guard {
	t.Helper()
	write, err := paths.NewRootSet([]string{dir}, dir)
	if err != nil {
		t.Fatalf("failed to build write roots: %v", err)
	}
	return paths.NewGuard(paths.Unrestricted(), write, paths.DenyRules{})
}

func testSettings(t *testing.T, dir string) (Settings, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	return Settings{
		Guard:  testGuard(t, dir),
		Limits: DefaultLimits(),
		Events: sink,
		Logger: zerolog.Nop(),
	}, sink
}

func mustValidate(t *testing.T, guard *paths.Guard, path string, mode paths.AccessMode) paths.ValidatedPath {
	t.Helper()
	vp, err := guard.Validate(path, mode)
	if err != nil {
		t.Fatalf("failed to validate %s: %v", path, err)
	}
	return vp
}
