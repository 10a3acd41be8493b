package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathRejectsEmpty(t *testing.T) {
	_, err := NewPath("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestNewPathRejectsTrailingSeparator(t *testing.T) {
	_, err := NewPath("overrides/config/")
	assert.ErrorIs(t, err, ErrTrailingSeparator)
}

func TestNewPathRejectsAbsolute(t *testing.T) {
	_, err := NewPath("/overrides/config.cfg")
	assert.ErrorIs(t, err, ErrAbsolutePath)
}

func TestNewPathNormalizesDuplicateSeparators(t *testing.T) {
	p, err := NewPath("overrides//config//mymod.cfg")
	require.NoError(t, err)
	assert.Equal(t, "overrides/config/mymod.cfg", p.String())
}

func TestMatchAny(t *testing.T) {
	p := MustPath("overrides/config/mymod.cfg")
	assert.True(t, p.MatchAny([]string{"overrides/**"}))
	assert.False(t, p.MatchAny([]string{"scripts/**"}))

	top := MustPath("modrinth.index.json")
	assert.False(t, top.MatchAny([]string{"overrides/**"}))
}
