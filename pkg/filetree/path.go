// Package filetree implements the validated File Path type and the File
// Tree — a mapping from File Path to store.Digest bound to one File
// Store.
package filetree

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrTrailingSeparator is returned when a path string ends with "/".
var ErrTrailingSeparator = errors.New("filetree: path has a trailing separator")

// ErrAbsolutePath is returned when a path string starts with "/".
var ErrAbsolutePath = errors.New("filetree: path is absolute")

// ErrEmptyPath is returned when a path string has no non-empty
// components.
var ErrEmptyPath = errors.New("filetree: path is empty")

// Path is a validated relative POSIX-like path: an ordered sequence of
// non-empty directory components followed by a non-empty file name.
// Duplicate interior separators are normalized away during parsing.
type Path struct {
	clean string
}

// NewPath validates and normalizes s into a Path.
func NewPath(s string) (Path, error) {
	if s == "" {
		return Path{}, ErrEmptyPath
	}
	if strings.HasPrefix(s, "/") {
		return Path{}, ErrAbsolutePath
	}
	if strings.HasSuffix(s, "/") {
		return Path{}, ErrTrailingSeparator
	}

	parts := strings.Split(s, "/")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return Path{}, ErrEmptyPath
	}

	return Path{clean: strings.Join(kept, "/")}, nil
}

// MustPath is NewPath but panics on error; intended for literal paths in
// tests and fixtures.
func MustPath(s string) Path {
	p, err := NewPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the normalized path representation, used as the cache
// key for hashing, map storage, and glob matching.
func (p Path) String() string {
	return p.clean
}

// MatchAny reports whether any of patterns matches this path, using
// conventional shell globbing (*, **, ?, brackets).
func (p Path) MatchAny(patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p.clean); ok {
			return true
		}
	}
	return false
}
