package container

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/errs"
)

func TestRunIsSingleUse(t *testing.T) {
	b := NewBuilder()
	c := Build(b)

	require.NoError(t, c.Run())
	err := c.Run()
	assert.ErrorIs(t, err, errs.ErrAlreadyAwake)
}

func TestCancelSharesRunsGuard(t *testing.T) {
	b := NewBuilder()
	c := Build(b)

	require.NoError(t, c.Cancel())
	err := c.Run()
	assert.ErrorIs(t, err, errs.ErrAlreadyAwake)
}

func TestEveryReceiverObservesStartExactlyOnce(t *testing.T) {
	b := NewBuilder()
	c := Build(b)

	const workers = 10
	var wg sync.WaitGroup
	results := make([]bool, workers)
	for i := 0; i < workers; i++ {
		// Subscribe synchronously, on the test goroutine, before spawning
		// the worker that blocks on it — the same ordering spawnWorker
		// enforces, so Run below can never race a worker's subscription.
		woken := c.WakerSubscribe()
		wg.Add(1)
		go func(i int, woken <-chan bool) {
			defer wg.Done()
			results[i] = c.WaitOn(woken)
		}(i, woken)
	}

	require.NoError(t, c.Run())
	wg.Wait()

	for i, woke := range results {
		assert.True(t, woke, "worker %d did not observe start", i)
	}
}

func TestCancelDeliversFalseToWaitingWorkers(t *testing.T) {
	b := NewBuilder()
	c := Build(b)

	woken := c.WakerSubscribe()
	resultCh := make(chan bool, 1)
	go func() { resultCh <- c.WaitOn(woken) }()

	require.NoError(t, c.Cancel())

	select {
	case v := <-resultCh:
		assert.False(t, v)
	case <-time.After(time.Second):
		t.Fatal("worker never observed cancellation")
	}
}

func TestRegisterChannelRejectsDuplicates(t *testing.T) {
	b := NewBuilder()
	id := channel.New("source", "default")
	require.NoError(t, b.RegisterChannel(id, channel.NewTextSender()))

	err := b.RegisterChannel(id, channel.NewTextSender())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDuplicateChannel))
}

func TestGetReceiverAndSenderRoundTrip(t *testing.T) {
	b := NewBuilder()
	id := channel.New("source", "default")
	sender := channel.NewTextSender()
	require.NoError(t, b.RegisterChannel(id, sender))

	c := Build(b)

	receiver, ok := c.GetReceiver(id)
	require.True(t, ok)
	assert.Equal(t, channel.VariantText, receiver.Variant)

	gotSender, ok := c.GetSender(id)
	require.True(t, ok)
	assert.Equal(t, channel.VariantText, gotSender.Variant)
}

func TestGetSenderUnavailableAfterRun(t *testing.T) {
	b := NewBuilder()
	id := channel.New("source", "default")
	require.NoError(t, b.RegisterChannel(id, channel.NewTextSender()))
	c := Build(b)

	require.NoError(t, c.Run())

	_, ok := c.GetSender(id)
	assert.False(t, ok, "container must drop sender references once run")
}

func TestConfigLookup(t *testing.T) {
	b := NewBuilder().WithConfig("minecraft_version", "1.20.2").WithConfigs(map[string]string{"modloader": "fabric"})
	c := Build(b)

	v, ok := c.Config("minecraft_version")
	assert.True(t, ok)
	assert.Equal(t, "1.20.2", v)

	v, ok = c.Config("modloader")
	assert.True(t, ok)
	assert.Equal(t, "fabric", v)

	_, ok = c.Config("missing")
	assert.False(t, ok)
}

func TestOptionalClientsAbsentByDefault(t *testing.T) {
	c := Build(NewBuilder())

	_, ok := c.CurseClient()
	assert.False(t, ok)

	_, ok = c.Cache()
	assert.False(t, ok)

	assert.Nil(t, c.ModrinthClient())
}
