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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxPathLength bounds raw path input accepted by the guard.
const MaxPathLength = 4096

// maxSymlinkHops matches the usual kernel limit for nested symlink resolution.
const maxSymlinkHops = 255

// ValidatePathString validates raw path input before resolution.
func ValidatePathString(path string, maxLen int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	if maxLen > 0 {
		if len(path) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
		if len(filepath.Clean(path)) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %v", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Canonicalize returns the absolute path with ".", ".." and every symlink on
// existing components resolved. Components that do not exist yet are kept as
// written, so the result is usable for files that are about to be created.
//
// ".." is applied to the resolved prefix, never lexically to the raw input:
// "/root/link/.." is the parent of link's target, not "/root".
func Canonicalize(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path %q is not absolute", path)
	}

	resolved := rootOf(path)
	pending := splitComponents(path)
	hops := 0

	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]

		switch name {
		case ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, name)
		info, err := os.Lstat(next)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				resolved = next
				continue
			}
			return "", fmt.Errorf("failed to stat path: %w", err)
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			resolved = next
			continue
		}

		hops++
		if hops > maxSymlinkHops {
			return "", fmt.Errorf("too many levels of symbolic links in %s", path)
		}
		target, err := os.Readlink(next)
		if err != nil {
			return "", fmt.Errorf("failed to resolve symlink: %w", err)
		}
		if filepath.IsAbs(target) {
			resolved = rootOf(target)
		}
		pending = append(splitComponents(target), pending...)
	}

	return resolved, nil
}

// HasPathPrefix returns true when path equals base or lies below it.
// The comparison is per path segment, so "/srv/app2" is not within "/srv/app".
func HasPathPrefix(path, base string) bool {
	if filepath.VolumeName(path) != filepath.VolumeName(base) {
		return false
	}
	pathParts := splitComponents(filepath.Clean(path))
	baseParts := splitComponents(filepath.Clean(base))
	if len(baseParts) > len(pathParts) {
		return false
	}
	for i := range baseParts {
		if baseParts[i] != pathParts[i] {
			return false
		}
	}
	return true
}

// ResolveRootEntry turns a configured root into its canonical form.
// Relative entries are taken relative to workdir; "~" is expanded.
func ResolveRootEntry(entry, workdir string) (string, error) {
	candidate, err := ExpandHome(strings.TrimSpace(entry))
	if err != nil {
		return "", err
	}
	if candidate == "" {
		return "", fmt.Errorf("allowed path cannot be empty")
	}
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(workdir, candidate)
	}
	resolved, err := Canonicalize(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve allowed path %q: %w", entry, err)
	}
	return resolved, nil
}

// ResolveWorkdir returns the canonical working directory, defaulting to the
// process working directory when dir is empty.
func ResolveWorkdir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %v", err)
		}
		dir = cwd
	}
	dir, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid working directory: %v", err)
	}
	return Canonicalize(abs)
}

func rootOf(path string) string {
	return filepath.VolumeName(path) + string(filepath.Separator)
}

func splitComponents(path string) []string {
	rest := filepath.ToSlash(path[len(filepath.VolumeName(path)):])
	parts := strings.Split(rest, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
