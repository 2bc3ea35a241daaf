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
	"path/filepath"
	"sort"
	"strings"

	apperrors "fsguard/internal/errors"
)

// MentionResolver turns an @mention into a filesystem path.
type MentionResolver interface {
	Resolve(ctx context.Context, mention string) (string, error)
}

// MapMentionResolver resolves "@name:relative/path" against a table of named
// directories. "@name" alone resolves to the directory itself.
type MapMentionResolver struct {
	dirs map[string]string
}

// NewMapMentionResolver copies dirs; relative directories are joined to workdir.
func NewMapMentionResolver(dirs map[string]string, workdir string) *MapMentionResolver {
	table := make(map[string]string, len(dirs))
	for name, dir := range dirs {
		if !filepath.IsAbs(dir) && !strings.HasPrefix(dir, "~") {
			dir = filepath.Join(workdir, dir)
		}
		table[name] = dir
	}
	return &MapMentionResolver{dirs: table}
}

// Names returns the configured mention names in sorted order.
func (m *MapMentionResolver) Names() []string {
	names := make([]string, 0, len(m.dirs))
	for name := range m.dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a mention to a path. The result is not validated; callers pass
// it through the path guard like any other input.
func (m *MapMentionResolver) Resolve(_ context.Context, mention string) (string, error) {
	body := strings.TrimPrefix(mention, "@")
	name, rel, _ := strings.Cut(body, ":")
	if name == "" {
		return "", apperrors.New(apperrors.CodeInvalidPath, fmt.Sprintf("invalid mention %q", mention)).WithPath(mention)
	}
	dir, ok := m.dirs[name]
	if !ok {
		return "", apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("unknown mention @%s", name)).WithPath(mention)
	}
	if rel == "" {
		return dir, nil
	}
	if filepath.IsAbs(rel) {
		return "", apperrors.New(apperrors.CodeInvalidPath, fmt.Sprintf("mention path must be relative: %s", mention)).WithPath(mention)
	}
	return filepath.Join(dir, rel), nil
}

func isMention(path string) bool {
	return strings.HasPrefix(path, "@")
}

// resolveMention rewrites @mentions; other input is returned unchanged.
func resolveMention(ctx context.Context, resolver MentionResolver, raw string) (string, error) {
	if !isMention(raw) {
		return raw, nil
	}
	if resolver == nil {
		return "", apperrors.New(apperrors.CodeInvalidPath,
			fmt.Sprintf("cannot resolve %s: no mention resolver configured", raw)).WithPath(raw)
	}
	return resolver.Resolve(ctx, raw)
}
