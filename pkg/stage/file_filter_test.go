package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/filetree"
	"github.com/cuemby/packforge/pkg/store"
)

func mustPath(t *testing.T, s string) filetree.Path {
	t.Helper()
	p, err := filetree.NewPath(s)
	require.NoError(t, err)
	return p
}

func TestFileFilterPartitionsByGlob(t *testing.T) {
	s := store.New()
	tree := filetree.New(s)
	tree.Add(mustPath(t, "config/mod.toml"), []byte("config"))
	tree.Add(mustPath(t, "mods/fabric-api.jar"), []byte("jar"))
	tree.Add(mustPath(t, "mods/appleskin.jar"), []byte("jar2"))

	b := container.NewBuilder()
	filesSender := channel.NewFilesSender()
	filesID := channel.New("files-src", "default")
	require.NoError(t, b.RegisterChannel(filesID, filesSender))
	patternSender := channel.NewListSender()
	patternID := channel.New("pattern-src", "default")
	require.NoError(t, b.RegisterChannel(patternID, patternSender))

	st := FileFilter{}
	for id, sender := range st.GenerateChannels("filter") {
		require.NoError(t, b.RegisterChannel(id, sender))
	}
	c := container.Build(b)

	matchedSender, ok := c.GetSender(channel.New("filter", channel.DefaultPort))
	require.True(t, ok)
	matchedReceiver := channel.Subscribe(matchedSender)
	inverseSender, ok := c.GetSender(channel.New("filter", "inverse"))
	require.True(t, ok)
	inverseReceiver := channel.Subscribe(inverseSender)

	handle, err := st.ValidateAndSpawn("filter", map[string]channel.ID{
		"files": filesID, "pattern": patternID,
	}, c)
	require.NoError(t, err)

	require.NoError(t, c.Run())
	filesSender.Files.Send(tree)
	patternSender.List.Send([]string{"mods/*.jar"})

	select {
	case matched := <-matchedReceiver.Files:
		assert.Equal(t, 2, matched.Len())
	case <-time.After(time.Second):
		t.Fatal("matched output never delivered")
	}
	select {
	case unmatched := <-inverseReceiver.Files:
		assert.Equal(t, 1, unmatched.Len())
	case <-time.After(time.Second):
		t.Fatal("inverse output never delivered")
	}
	handle.Wait()
}
