package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeBeforeSendReceivesValue(t *testing.T) {
	b := NewBroadcast[string]()
	sub := b.Subscribe()

	delivered := b.Send("hello")
	assert.Equal(t, 1, delivered)

	got, ok := <-sub
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestSubscribeAfterSendDoesNotReplay(t *testing.T) {
	b := NewBroadcast[string]()
	b.Send("missed")

	sub := b.Subscribe()
	b.Send("caught")

	got, ok := <-sub
	require.True(t, ok)
	assert.Equal(t, "caught", got)
}

func TestSendWithNoSubscribersIsNotAnError(t *testing.T) {
	b := NewBroadcast[string]()
	delivered := b.Send("nobody home")
	assert.Equal(t, 0, delivered)
}

func TestCloseCascadesToSubscribers(t *testing.T) {
	b := NewBroadcast[string]()
	sub := b.Subscribe()
	b.Close()

	_, ok := <-sub
	assert.False(t, ok, "subscriber channel must observe closure")
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := NewBroadcast[string]()
	b.Close()

	sub := b.Subscribe()
	_, ok := <-sub
	assert.False(t, ok)
}

func TestChannelIDParseSmoke(t *testing.T) {
	id, err := ParseID("downloader::default")
	require.NoError(t, err)
	assert.Equal(t, "downloader", id.Stage)
	assert.Equal(t, "default", id.Port)
}
