package filetree

import (
	"errors"
	"sort"

	"github.com/cuemby/packforge/pkg/store"
)

// ErrNotFound is returned by operations that reference a path absent
// from the tree.
var ErrNotFound = errors.New("filetree: path not found")

// Tree maps a validated Path to a store.Digest, bound to one File Store.
// The zero value is not usable; construct with New.
type Tree struct {
	store   store.Store
	entries map[string]store.Digest
}

// New creates an empty Tree bound to s.
func New(s store.Store) *Tree {
	return &Tree{store: s, entries: make(map[string]store.Digest)}
}

// Store returns the File Store this tree is bound to.
func (t *Tree) Store() store.Store {
	return t.store
}

// Add writes b into the tree's store and binds path to the resulting
// digest, overwriting any existing entry at that path.
func (t *Tree) Add(path Path, b []byte) store.Digest {
	d := t.store.Write(b)
	t.entries[path.String()] = d
	return d
}

// AddDigest binds path directly to an existing digest, without writing
// new bytes. The caller is responsible for ensuring d resolves in the
// tree's store.
func (t *Tree) AddDigest(path Path, d store.Digest) {
	t.entries[path.String()] = d
}

// Get resolves path to its bytes via the bound store.
func (t *Tree) Get(path Path) ([]byte, bool) {
	d, ok := t.entries[path.String()]
	if !ok {
		return nil, false
	}
	return t.store.Get(d)
}

// Digest returns the digest bound to path, without resolving bytes.
func (t *Tree) Digest(path Path) (store.Digest, bool) {
	d, ok := t.entries[path.String()]
	return d, ok
}

// Delete removes path from the tree. Deleting an absent path is a no-op.
func (t *Tree) Delete(path Path) {
	delete(t.entries, path.String())
}

// Copy duplicates the entry at src to dst. Returns ErrNotFound if src is
// absent.
func (t *Tree) Copy(src, dst Path) error {
	d, ok := t.entries[src.String()]
	if !ok {
		return ErrNotFound
	}
	t.entries[dst.String()] = d
	return nil
}

// Move relocates the entry at src to dst, removing src. Returns
// ErrNotFound if src is absent.
func (t *Tree) Move(src, dst Path) error {
	if err := t.Copy(src, dst); err != nil {
		return err
	}
	t.Delete(src)
	return nil
}

// List returns every path currently in the tree, in no particular order.
func (t *Tree) List() []Path {
	out := make([]Path, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, Path{clean: p})
	}
	return out
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	return len(t.entries)
}

// Filter partitions the tree by glob match against patterns, returning
// (matched, unmatched) trees that share the same underlying File Store.
// Every path in the receiver appears in exactly one of the two results.
func (t *Tree) Filter(patterns []string) (matched, unmatched *Tree) {
	matched = New(t.store)
	unmatched = New(t.store)
	for raw, d := range t.entries {
		p := Path{clean: raw}
		if p.MatchAny(patterns) {
			matched.entries[raw] = d
		} else {
			unmatched.entries[raw] = d
		}
	}
	return matched, unmatched
}

// Merge consumes other into the receiver: for each path present in
// other, other's digest wins on collision. If other is bound to a
// different File Store, its bytes are copied into the receiver's store
// (read via other's store, written into the receiver's) so the result
// remains a single-store tree.
func (t *Tree) Merge(other *Tree) {
	sameStore := t.store.Equal(other.store)
	for raw, d := range other.entries {
		if sameStore {
			t.entries[raw] = d
			continue
		}
		b, ok := other.store.Get(d)
		if !ok {
			continue
		}
		t.entries[raw] = t.store.Write(b)
	}
}

// MergeByPriority merges a set of named trees into one, giving priority
// to the lexicographically smallest name on key collision. Implemented
// by sorting names in descending order and folding left with Merge, so
// the last tree merged — the smallest name — overwrites any prior
// entry at the same path.
func MergeByPriority(s store.Store, named map[string]*Tree) *Tree {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	out := New(s)
	for _, name := range names {
		out.Merge(named[name])
	}
	return out
}
