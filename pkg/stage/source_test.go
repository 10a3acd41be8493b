package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/types"
)

func TestSourceEmitsTextOnce(t *testing.T) {
	b := container.NewBuilder()
	s := NewSource(types.Node{ValueKind: types.SourceValueText, Text: "1.20.1"})
	for id, sender := range s.GenerateChannels("mc_version") {
		require.NoError(t, b.RegisterChannel(id, sender))
	}
	c := container.Build(b)

	outSender, ok := c.GetSender(channel.New("mc_version", channel.DefaultPort))
	require.True(t, ok)
	outReceiver := channel.Subscribe(outSender)

	handle, err := s.ValidateAndSpawn("mc_version", nil, c)
	require.NoError(t, err)

	require.NoError(t, c.Run())

	select {
	case v := <-outReceiver.Text:
		assert.Equal(t, "1.20.1", v)
	case <-time.After(time.Second):
		t.Fatal("text output never delivered")
	}
	handle.Wait()
}

func TestSourceEmitsMods(t *testing.T) {
	b := container.NewBuilder()
	mods := []types.ModDefinition{{Name: "appleskin", Source: types.ModSourceModrinth, ProjectID: "appleskin"}}
	s := NewSource(types.Node{ValueKind: types.SourceValueMods, Mods: mods})
	for id, sender := range s.GenerateChannels("mods") {
		require.NoError(t, b.RegisterChannel(id, sender))
	}
	c := container.Build(b)

	outSender, ok := c.GetSender(channel.New("mods", channel.DefaultPort))
	require.True(t, ok)
	outReceiver := channel.Subscribe(outSender)

	handle, err := s.ValidateAndSpawn("mods", nil, c)
	require.NoError(t, err)
	require.NoError(t, c.Run())

	select {
	case got := <-outReceiver.Mods:
		require.Len(t, got, 1)
		assert.Equal(t, "appleskin", got[0].Name)
	case <-time.After(time.Second):
		t.Fatal("mods output never delivered")
	}
	handle.Wait()
}
