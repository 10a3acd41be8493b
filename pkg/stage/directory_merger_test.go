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

// TestDirectoryMergerSmallestPortNameWins mirrors the priority fixture
// used for filetree.MergeByPriority: "tree2" must win over "tree3" on a
// colliding path, since sorting descending and folding left means the
// lexicographically smallest name is applied last.
func TestDirectoryMergerSmallestPortNameWins(t *testing.T) {
	s := store.New()
	tree2 := filetree.New(s)
	tree2.Add(mustPath(t, "config.txt"), []byte("from tree2"))
	tree3 := filetree.New(s)
	tree3.Add(mustPath(t, "config.txt"), []byte("from tree3"))
	tree3.Add(mustPath(t, "extra.txt"), []byte("only in tree3"))

	b := container.NewBuilder()
	tree2ID := channel.New("tree2-src", "default")
	require.NoError(t, b.RegisterChannel(tree2ID, channel.NewFilesSender()))
	tree3ID := channel.New("tree3-src", "default")
	require.NoError(t, b.RegisterChannel(tree3ID, channel.NewFilesSender()))

	st := DirectoryMerger{}
	for id, sender := range st.GenerateChannels("merger") {
		require.NoError(t, b.RegisterChannel(id, sender))
	}
	c := container.Build(b)

	tree2Sender, _ := c.GetSender(tree2ID)
	tree3Sender, _ := c.GetSender(tree3ID)
	outSender, ok := c.GetSender(channel.New("merger", channel.DefaultPort))
	require.True(t, ok)
	outReceiver := channel.Subscribe(outSender)

	handle, err := st.ValidateAndSpawn("merger", map[string]channel.ID{
		"tree2": tree2ID, "tree3": tree3ID,
	}, c)
	require.NoError(t, err)

	require.NoError(t, c.Run())
	tree2Sender.Files.Send(tree2)
	tree3Sender.Files.Send(tree3)

	select {
	case merged := <-outReceiver.Files:
		assert.Equal(t, 2, merged.Len())
		content, ok := merged.Get(mustPath(t, "config.txt"))
		require.True(t, ok)
		assert.Equal(t, "from tree2", string(content))
		_, ok = merged.Get(mustPath(t, "extra.txt"))
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("merged output never delivered")
	}
	handle.Wait()
}
