// Package store implements the content-addressed File Store: a shared,
// concurrency-safe mapping from a 128-bit Digest to the immutable byte
// content that produced it.
package store

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Digest is a 128-bit content identifier. Equal content always hashes to
// an equal Digest; the converse is assumed (strong non-cryptographic
// hash, not collision-resistant against an adversary).
type Digest struct {
	Hi uint64
	Lo uint64
}

// domainSeparator is prefixed to the content for the second XXH64 pass so
// that Hi and Lo are independent hashes of the same bytes rather than the
// same 64 bits duplicated.
const domainSeparator = 0xA5

func digestOf(b []byte) Digest {
	lo := xxhash.Sum64(b)

	h := xxhash.New()
	h.Write([]byte{domainSeparator})
	h.Write(b)
	hi := h.Sum64()

	return Digest{Hi: hi, Lo: lo}
}

type state struct {
	mu   sync.RWMutex
	data map[Digest][]byte
}

// Store is a shared, reference-counted table of content-addressed byte
// blobs. The zero value is not usable; construct with New. A Store value
// is a thin handle: copying it (or calling Clone) aliases the same
// underlying table, matching the File Store invariant that clones share
// state and compare equal.
type Store struct {
	s *state
}

// New creates an empty File Store.
func New() Store {
	return Store{s: &state{data: make(map[Digest][]byte)}}
}

// Clone returns a handle aliasing the same underlying table.
func (s Store) Clone() Store {
	return s
}

// Equal reports whether two Store handles alias the same underlying
// table. Two independently-constructed stores are never equal, even with
// identical content.
func (s Store) Equal(other Store) bool {
	return s.s == other.s
}

// Write hashes b, inserts it if absent, and returns its Digest. Repeated
// writes of identical content are idempotent and collapse to one entry.
func (s Store) Write(b []byte) Digest {
	d := digestOf(b)

	s.s.mu.Lock()
	defer s.s.mu.Unlock()
	if _, ok := s.s.data[d]; !ok {
		cp := make([]byte, len(b))
		copy(cp, b)
		s.s.data[d] = cp
	}
	return d
}

// WriteAll writes each blob in order, preserving the input order in the
// returned Digest slice.
func (s Store) WriteAll(blobs [][]byte) []Digest {
	out := make([]Digest, len(blobs))
	for i, b := range blobs {
		out[i] = s.Write(b)
	}
	return out
}

// Get returns the bytes for d, or false if d is not present. The
// returned slice must not be mutated by the caller.
func (s Store) Get(d Digest) ([]byte, bool) {
	s.s.mu.RLock()
	defer s.s.mu.RUnlock()
	b, ok := s.s.data[d]
	return b, ok
}

// GetAll resolves each digest in order, preserving order in the result.
// A missing digest yields false at its index in found.
func (s Store) GetAll(digests []Digest) (blobs [][]byte, found []bool) {
	blobs = make([][]byte, len(digests))
	found = make([]bool, len(digests))
	for i, d := range digests {
		b, ok := s.Get(d)
		blobs[i] = b
		found[i] = ok
	}
	return blobs, found
}

// Len returns the number of distinct blobs currently stored.
func (s Store) Len() int {
	s.s.mu.RLock()
	defer s.s.mu.RUnlock()
	return len(s.s.data)
}
