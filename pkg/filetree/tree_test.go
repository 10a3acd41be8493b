package filetree

import (
	"testing"

	"github.com/cuemby/packforge/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetRoundTrip(t *testing.T) {
	tr := New(store.New())
	p := MustPath("overrides/config/mymod.cfg")
	tr.Add(p, []byte("B:MyConfigValue = false"))

	got, ok := tr.Get(p)
	require.True(t, ok)
	assert.Equal(t, "B:MyConfigValue = false", string(got))
}

func TestDelete(t *testing.T) {
	tr := New(store.New())
	p := MustPath("a.txt")
	tr.Add(p, []byte("x"))
	tr.Delete(p)

	_, ok := tr.Get(p)
	assert.False(t, ok)
}

func TestCopyMissingSourceErrors(t *testing.T) {
	tr := New(store.New())
	err := tr.Copy(MustPath("missing"), MustPath("dest"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveRelocatesEntry(t *testing.T) {
	tr := New(store.New())
	src := MustPath("a.txt")
	dst := MustPath("b.txt")
	tr.Add(src, []byte("x"))

	require.NoError(t, tr.Move(src, dst))
	_, ok := tr.Get(src)
	assert.False(t, ok)
	got, ok := tr.Get(dst)
	require.True(t, ok)
	assert.Equal(t, "x", string(got))
}

func TestFilterIsAPartition(t *testing.T) {
	tr := New(store.New())
	tr.Add(MustPath("modrinth.index.json"), []byte("{}"))
	tr.Add(MustPath("overrides/config/mymod.cfg"), []byte("B:MyConfigValue = false"))

	matched, unmatched := tr.Filter([]string{"overrides/**"})

	matchedPaths := pathSet(matched.List())
	unmatchedPaths := pathSet(unmatched.List())

	assert.Equal(t, map[string]bool{"overrides/config/mymod.cfg": true}, matchedPaths)
	assert.Equal(t, map[string]bool{"modrinth.index.json": true}, unmatchedPaths)

	for p := range matchedPaths {
		assert.False(t, unmatchedPaths[p], "partition must be disjoint")
	}
}

func TestMergeLaterWins(t *testing.T) {
	s := store.New()
	a := New(s)
	b := New(s)
	a.Add(MustPath("file.json"), []byte("abc"))
	b.Add(MustPath("file.json"), []byte("def"))

	a.Merge(b)
	got, ok := a.Get(MustPath("file.json"))
	require.True(t, ok)
	assert.Equal(t, "def", string(got))
}

func TestMergeAcrossStoresCopiesBytes(t *testing.T) {
	a := New(store.New())
	b := New(store.New())
	a.Add(MustPath("file.json"), []byte("abc"))
	b.Add(MustPath("other.json"), []byte("xyz"))

	a.Merge(b)
	got, ok := a.Get(MustPath("other.json"))
	require.True(t, ok)
	assert.Equal(t, "xyz", string(got))
}

func TestMergeByPrioritySmallestNameWins(t *testing.T) {
	s := store.New()
	tree2 := New(s)
	tree2.Add(MustPath("file.json"), []byte("def"))
	tree3 := New(s)
	tree3.Add(MustPath("file.json"), []byte("jkl"))

	merged := MergeByPriority(s, map[string]*Tree{
		"tree2": tree2,
		"tree3": tree3,
	})

	got, ok := merged.Get(MustPath("file.json"))
	require.True(t, ok)
	assert.Equal(t, "def", string(got))
}

func pathSet(paths []Path) map[string]bool {
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		out[p.String()] = true
	}
	return out
}
