package stage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/types"
)

func TestModWriterRendersSortedOutput(t *testing.T) {
	b := container.NewBuilder().WithConfig("minecraft_version", "1.20.1")
	modsID := channel.New("mods-src", "default")
	require.NoError(t, b.RegisterChannel(modsID, channel.NewResolvedModsSender()))

	st := ModWriter{}
	for id, sender := range st.GenerateChannels("writer") {
		require.NoError(t, b.RegisterChannel(id, sender))
	}
	c := container.Build(b)

	modsSender, _ := c.GetSender(modsID)
	nixSender, ok := c.GetSender(channel.New("writer", channel.DefaultPort))
	require.True(t, ok)
	nixReceiver := channel.Subscribe(nixSender)
	jsonSender, ok := c.GetSender(channel.New("writer", "json"))
	require.True(t, ok)
	jsonReceiver := channel.Subscribe(jsonSender)

	handle, err := st.ValidateAndSpawn("writer", map[string]channel.ID{"mods": modsID}, c)
	require.NoError(t, err)

	require.NoError(t, c.Run())
	modsSender.ResolvedMods.Send([]types.ResolvedMod{
		{Name: "mousetweaks", Title: "Mouse Tweaks", Side: types.SideClient, Required: true, Default: true},
		{Name: "appleskin", Title: "AppleSkin", Side: types.SideBoth, Required: true, Default: true},
	})

	select {
	case nix := <-nixReceiver.Text:
		aIdx := strings.Index(nix, `"appleskin"`)
		mIdx := strings.Index(nix, `"mousetweaks"`)
		require.GreaterOrEqual(t, aIdx, 0)
		require.GreaterOrEqual(t, mIdx, 0)
		assert.Less(t, aIdx, mIdx, "mods must render in name order")
	case <-time.After(time.Second):
		t.Fatal("nix output never delivered")
	}
	select {
	case out := <-jsonReceiver.Text:
		assert.Contains(t, out, `"name": "appleskin"`)
	case <-time.After(time.Second):
		t.Fatal("json output never delivered")
	}
	handle.Wait()
}
