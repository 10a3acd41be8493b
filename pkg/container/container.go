// Package container implements the dependency-injection container that
// every stage worker is spawned against: the shared configuration map,
// channel registry, File Store, optional catalog clients and cache, and
// the single-use waker that gates every worker's first blocking read.
//
// The construction shape is a Builder accumulating dependencies, then
// one terminal Build call, with an open-ended channel registry rather
// than a fixed field set.
package container

import (
	"fmt"
	"sync"

	"github.com/cuemby/packforge/pkg/cache"
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/curseforge"
	"github.com/cuemby/packforge/pkg/errs"
	"github.com/cuemby/packforge/pkg/modrinth"
	"github.com/cuemby/packforge/pkg/store"
)

// Container holds everything a stage worker needs at spawn time:
// configuration values, the channel registry, the File Store, the
// optional catalog clients and cache, and the waker every worker
// blocks on before doing anything else.
type Container struct {
	configs map[string]string
	store   store.Store

	curse    *curseforge.Client
	modrinth *modrinth.Client
	cache    cache.Cache

	mu       sync.Mutex
	channels map[channel.ID]channel.Sender
	waker    *channel.Broadcast[bool]
	awake    bool
}

// Builder accumulates a Container's dependencies before one terminal
// Build call. Stages register their output channels into the builder;
// this is the only moment new channels may appear, per the registration
// rule a running container must not violate.
type Builder struct {
	configs  map[string]string
	channels map[channel.ID]channel.Sender

	curse    *curseforge.Client
	modrinth *modrinth.Client
	cache    cache.Cache
}

// NewBuilder starts an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		configs:  make(map[string]string),
		channels: make(map[channel.ID]channel.Sender),
	}
}

// WithConfig sets a single configuration value, e.g. "minecraft_version".
func (b *Builder) WithConfig(key, value string) *Builder {
	b.configs[key] = value
	return b
}

// WithConfigs merges a full configuration map in.
func (b *Builder) WithConfigs(configs map[string]string) *Builder {
	for k, v := range configs {
		b.configs[k] = v
	}
	return b
}

// WithCurseClient attaches a CurseForge client. Absent unless the
// caller configured an API key or proxy URL.
func (b *Builder) WithCurseClient(c *curseforge.Client) *Builder {
	b.curse = c
	return b
}

// WithModrinthClient attaches a Modrinth client. Always present in
// practice — ModResolver may need it regardless of mod variant mix.
func (b *Builder) WithModrinthClient(c *modrinth.Client) *Builder {
	b.modrinth = c
	return b
}

// WithCache attaches a cache backend. Absent means ModResolver and
// CurseResolver always miss and never persist.
func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cache = c
	return b
}

// RegisterChannel registers a stage's output sender under id. Returns
// errs.ErrDuplicateChannel wrapped with the id if it was already taken —
// every channel id must be unique across the whole graph.
func (b *Builder) RegisterChannel(id channel.ID, sender channel.Sender) error {
	if _, exists := b.channels[id]; exists {
		return fmt.Errorf("container: channel %s: %w", id, errs.ErrDuplicateChannel)
	}
	b.channels[id] = sender
	return nil
}

// Build finalizes the Container. The File Store and waker are created
// fresh; the channel registry and configs are copied out of the
// builder so a reused Builder cannot mutate a built Container.
func Build(b *Builder) *Container {
	channels := make(map[channel.ID]channel.Sender, len(b.channels))
	for id, s := range b.channels {
		channels[id] = s
	}
	configs := make(map[string]string, len(b.configs))
	for k, v := range b.configs {
		configs[k] = v
	}

	return &Container{
		configs:  configs,
		store:    store.New(),
		curse:    b.curse,
		modrinth: b.modrinth,
		cache:    b.cache,
		channels: channels,
		waker:    channel.NewBroadcast[bool](),
	}
}

// Config returns a configuration value and whether it was present.
func (c *Container) Config(key string) (string, bool) {
	v, ok := c.configs[key]
	return v, ok
}

// Store returns the shared File Store. Cloning it is cheap; every
// caller sees the same underlying content-addressed data.
func (c *Container) Store() store.Store {
	return c.store
}

// CurseClient returns the CurseForge client and whether one is
// configured.
func (c *Container) CurseClient() (*curseforge.Client, bool) {
	return c.curse, c.curse != nil
}

// ModrinthClient returns the Modrinth client.
func (c *Container) ModrinthClient() *modrinth.Client {
	return c.modrinth
}

// Cache returns the cache backend and whether one is configured.
func (c *Container) Cache() (cache.Cache, bool) {
	return c.cache, c.cache != nil
}

// GetSender looks up a registered channel's sender by id, for a stage
// to broadcast its output on.
func (c *Container) GetSender(id channel.ID) (channel.Sender, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.channels[id]
	return s, ok
}

// GetReceiver subscribes to a registered channel by id, for a stage to
// read its input from, or for the orchestrator to hand an Output
// record's receiver to its caller.
func (c *Container) GetReceiver(id channel.ID) (channel.Receiver, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.channels[id]
	if !ok {
		return channel.Receiver{}, false
	}
	return channel.Subscribe(s), true
}

// WakerSubscribe registers for the startup/cancellation signal and
// returns the channel to block on, without blocking itself. Callers that
// spawn a worker goroutine must call this synchronously before the `go`
// statement, then block on the returned channel from inside the
// goroutine via WaitOn — subscribing from inside the goroutine races
// Run/Cancel, which may already have fired by the time it is scheduled.
// Mirrors node/source.rs's get_waker-before-spawn ordering.
func (c *Container) WakerSubscribe() <-chan bool {
	return c.waker.Subscribe()
}

// WaitOn blocks on a channel obtained from WakerSubscribe, returning the
// delivered value: true to proceed, false to abort.
func (c *Container) WaitOn(ch <-chan bool) bool {
	v, ok := <-ch
	return ok && v
}

// Wait subscribes to the waker and blocks until Run or Cancel fires it,
// returning the delivered value: true to proceed, false to abort. Kept
// for callers that block on the waker in the same goroutine that
// subscribes, where there is no spawn gap to race.
func (c *Container) Wait() bool {
	return c.WaitOn(c.WakerSubscribe())
}

// Run publishes true on the waker, waking every worker blocked in
// Wait, then clears the container's channel registry. Each channel
// closes when the worker that owns its sender returns. A second call
// returns errs.ErrAlreadyAwake.
func (c *Container) Run() error {
	return c.wake(true)
}

// Cancel publishes false on the waker, aborting every worker blocked in
// Wait (a worker observing false panics deliberately, per the
// cancellation protocol). Shares Run's single-use guard.
func (c *Container) Cancel() error {
	return c.wake(false)
}

func (c *Container) wake(proceed bool) error {
	c.mu.Lock()
	if c.awake {
		c.mu.Unlock()
		return errs.ErrAlreadyAwake
	}
	c.awake = true
	c.channels = nil
	c.mu.Unlock()

	c.waker.Send(proceed)
	c.waker.Close()
	return nil
}
