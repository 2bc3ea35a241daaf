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

package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "fsguard/internal/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// AccessMode selects which root set a path is validated against.
type AccessMode int

const (
	ModeRead AccessMode = iota
	ModeWrite
)

func (m AccessMode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// RootSet is an ordered set of canonical directory roots.
// The zero value is unrestricted: every path is contained.
type RootSet struct {
	roots      []string
	restricted bool
}

// Unrestricted returns a root set that admits any path.
func Unrestricted() RootSet {
	return RootSet{}
}

// NewRootSet canonicalizes entries once. An empty, non-nil list admits nothing.
func NewRootSet(entries []string, workdir string) (RootSet, error) {
	set := RootSet{restricted: true, roots: make([]string, 0, len(entries))}
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		root, err := ResolveRootEntry(entry, workdir)
		if err != nil {
			return RootSet{}, err
		}
		if seen[root] {
			continue
		}
		seen[root] = true
		set.roots = append(set.roots, root)
	}
	return set, nil
}

// Unrestricted reports whether the set admits any path.
func (r RootSet) Unrestricted() bool {
	return !r.restricted
}

// Roots returns a copy of the canonical roots.
func (r RootSet) Roots() []string {
	return append([]string{}, r.roots...)
}

// Contains reports whether a canonical path lies within one of the roots.
func (r RootSet) Contains(canonical string) bool {
	if !r.restricted {
		return true
	}
	for _, root := range r.roots {
		if HasPathPrefix(canonical, root) {
			return true
		}
	}
	return false
}

// DenyRules blocks paths even when a root admits them.
// Entries are directories (the whole subtree is denied) or doublestar patterns
// matched against the canonical path.
type DenyRules struct {
	dirs     []string
	patterns []string
}

// NewDenyRules builds deny rules; relative entries are taken relative to workdir.
func NewDenyRules(entries []string, workdir string) (DenyRules, error) {
	var rules DenyRules
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if isGlobPattern(entry) {
			pattern, err := ExpandHome(entry)
			if err != nil {
				return DenyRules{}, err
			}
			pattern = filepath.ToSlash(pattern)
			if !strings.HasPrefix(pattern, "/") && !strings.HasPrefix(pattern, "**") && !filepath.IsAbs(pattern) {
				pattern = escapeGlob(filepath.ToSlash(workdir)) + "/" + pattern
			}
			pattern = strings.TrimPrefix(pattern, "/")
			if !doublestar.ValidatePattern(pattern) {
				return DenyRules{}, fmt.Errorf("invalid denied path pattern %q", entry)
			}
			rules.patterns = append(rules.patterns, pattern)
			continue
		}
		dir, err := ResolveRootEntry(entry, workdir)
		if err != nil {
			return DenyRules{}, err
		}
		rules.dirs = append(rules.dirs, dir)
	}
	return rules, nil
}

// Matches reports whether the canonical path is denied.
func (d DenyRules) Matches(canonical string) bool {
	for _, dir := range d.dirs {
		if HasPathPrefix(canonical, dir) {
			return true
		}
	}
	if len(d.patterns) == 0 {
		return false
	}
	name := strings.TrimPrefix(filepath.ToSlash(canonical), "/")
	for _, pattern := range d.patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Empty reports whether no deny rule is configured.
func (d DenyRules) Empty() bool {
	return len(d.dirs) == 0 && len(d.patterns) == 0
}

func isGlobPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?[{")
}

// escapeGlob quotes doublestar metacharacters so s matches itself literally.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidatedPath is a canonical path proven admissible for one access mode.
// Only Guard.Validate produces non-zero values.
type ValidatedPath struct {
	path string
	mode AccessMode
}

// Path returns the canonical absolute path.
func (v ValidatedPath) Path() string { return v.path }

// Mode returns the access mode the path was validated for.
func (v ValidatedPath) Mode() AccessMode { return v.mode }

// IsZero reports whether v was not produced by a guard.
func (v ValidatedPath) IsZero() bool { return v.path == "" }

func (v ValidatedPath) String() string { return v.path }

// Guard decides whether a requested path may be accessed.
// It is immutable after construction and safe for concurrent use.
type Guard struct {
	read  RootSet
	write RootSet
	deny  DenyRules
}

// NewGuard creates a guard over the given root sets and write deny rules.
func NewGuard(read, write RootSet, deny DenyRules) *Guard {
	return &Guard{read: read, write: write, deny: deny}
}

// Roots returns the root set applied to mode.
func (g *Guard) Roots(mode AccessMode) RootSet {
	if mode == ModeWrite {
		return g.write
	}
	return g.read
}

// Validate resolves raw to its canonical form and checks it against mode's roots.
func (g *Guard) Validate(raw string, mode AccessMode) (ValidatedPath, error) {
	if mode != ModeRead && mode != ModeWrite {
		return ValidatedPath{}, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown access mode %s", mode))
	}
	if err := ValidatePathString(raw, MaxPathLength); err != nil {
		return ValidatedPath{}, invalidPath(raw, mode, err)
	}

	expanded, err := ExpandHome(raw)
	if err != nil {
		return ValidatedPath{}, invalidPath(raw, mode, err)
	}
	if !filepath.IsAbs(expanded) {
		return ValidatedPath{}, invalidPath(raw, mode, fmt.Errorf("path must be absolute"))
	}

	canonical, err := Canonicalize(expanded)
	if err != nil {
		return ValidatedPath{}, invalidPath(raw, mode, err)
	}

	if mode == ModeWrite && g.deny.Matches(canonical) {
		return ValidatedPath{}, apperrors.New(apperrors.CodePathDenied,
			fmt.Sprintf("Access denied: %s is within denied directories", raw)).
			WithPath(raw).WithMode(mode.String())
	}

	if !g.Roots(mode).Contains(canonical) {
		return ValidatedPath{}, apperrors.New(apperrors.CodePathDenied,
			fmt.Sprintf("Access denied: %s is not within allowed %s paths", raw, mode)).
			WithPath(raw).WithMode(mode.String())
	}

	return ValidatedPath{path: canonical, mode: mode}, nil
}

func invalidPath(raw string, mode AccessMode, err error) *apperrors.Error {
	return apperrors.Wrap(apperrors.CodeInvalidPath, fmt.Sprintf("invalid path %q", raw), err).
		WithPath(raw).WithMode(mode.String())
}
