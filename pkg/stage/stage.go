// Package stage implements the Stage Contract and the closed catalog of
// stage kinds the orchestrator can construct. Every stage exposes
// GenerateChannels (declare output channels) and ValidateAndSpawn
// (validate wiring, spawn a worker goroutine). Dispatch over stage kinds
// is a plain map lookup, not an open plugin registry — the set of kinds
// is fixed.
package stage

import (
	"fmt"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/errs"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/types"
)

// Stage is implemented by every entry in the catalog.
type Stage interface {
	// GenerateChannels declares this stage's output channels, keyed by
	// the full ChannelId (id, port). Every stage declares at least
	// (id, "default").
	GenerateChannels(id string) map[channel.ID]channel.Sender

	// ValidateAndSpawn checks that every required input port resolves
	// to a compatible channel, that required configs and clients are
	// present, then spawns the worker goroutine.
	ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error)
}

// Handle is returned by a successful spawn. Done closes once the
// worker goroutine returns, whether normally or via cancellation panic.
type Handle struct {
	done chan struct{}
}

// Wait blocks until the worker has returned.
func (h *Handle) Wait() {
	<-h.done
}

// Factory constructs a fresh Stage instance for a catalog entry. Most
// stage kinds are stateless and return a fresh zero-value instance;
// Factory exists so the catalog can treat every kind uniformly.
type Factory func() Stage

// Catalog is the closed set of stage kinds the orchestrator knows how
// to construct, keyed by types.StageKind.
var Catalog = map[types.StageKind]Factory{
	types.StageArchiveDownloader: func() Stage { return &ArchiveDownloader{} },
	types.StageFileFilter:        func() Stage { return &FileFilter{} },
	types.StageFilePicker:        func() Stage { return &FilePicker{} },
	types.StageDirectoryMerger:   func() Stage { return &DirectoryMerger{} },
	types.StageModResolver:       func() Stage { return &ModResolver{} },
	types.StageModWriter:         func() Stage { return &ModWriter{} },
	types.StageCurseResolver:     func() Stage { return &CurseResolver{} },
	types.StageModMerger:         func() Stage { return &ModMerger{} },
	types.StageModFilter:         func() Stage { return &ModFilter{} },
	types.StageModOverrider:      func() Stage { return &ModOverrider{} },
}

// cancelled is the value recovered from a worker's deliberate panic when
// the waker delivers false. It carries no information beyond its
// identity; callers use recover(), not type assertion.
var cancelled = fmt.Errorf("stage: cancelled")

// inputReceiver resolves input[port] to a channel of the given variant,
// wrapping construction errors with the port name for diagnostics.
func inputReceiver(c *container.Container, input map[string]channel.ID, port string, want channel.Variant) (channel.Receiver, error) {
	id, ok := input[port]
	if !ok {
		return channel.Receiver{}, fmt.Errorf("stage: input %q: %w", port, errs.ErrMissingInputID)
	}
	r, ok := c.GetReceiver(id)
	if !ok {
		return channel.Receiver{}, fmt.Errorf("stage: input %q -> %s: %w", port, id, errs.ErrMissingChannel)
	}
	if r.Variant != want {
		return channel.Receiver{}, fmt.Errorf("stage: input %q -> %s: expected %s, got %s: %w", port, id, want, r.Variant, errs.ErrInvalidInputType)
	}
	return r, nil
}

// variadicReceivers resolves every entry of input to a channel of the
// given variant, for stages (DirectoryMerger, ModMerger) that accept an
// open-ended set of named ports rather than a fixed one.
func variadicReceivers(c *container.Container, input map[string]channel.ID, want channel.Variant) (map[string]channel.Receiver, error) {
	out := make(map[string]channel.Receiver, len(input))
	for port, id := range input {
		r, ok := c.GetReceiver(id)
		if !ok {
			return nil, fmt.Errorf("stage: input %q -> %s: %w", port, id, errs.ErrMissingChannel)
		}
		if r.Variant != want {
			return nil, fmt.Errorf("stage: input %q -> %s: expected %s, got %s: %w", port, id, want, r.Variant, errs.ErrInvalidInputType)
		}
		out[port] = r
	}
	return out, nil
}

// outputSender resolves this stage's own (id, port) output channel back
// out of the container, where the orchestrator already registered it
// from GenerateChannels. A mismatch here signals a catalog bug, not a
// pack-authoring error, but is still reported the same way.
func outputSender(c *container.Container, id, port string, want channel.Variant) (channel.Sender, error) {
	cid := channel.New(id, port)
	s, ok := c.GetSender(cid)
	if !ok {
		return channel.Sender{}, fmt.Errorf("stage %s: output %s: %w", id, cid, errs.ErrMissingChannel)
	}
	if s.Variant != want {
		return channel.Sender{}, fmt.Errorf("stage %s: output %s: expected %s, got %s: %w", id, cid, want, s.Variant, errs.ErrInvalidOutputType)
	}
	return s, nil
}

func logDelivery(id, port string, delivered int) {
	if delivered == 0 {
		log.Debug(fmt.Sprintf("stage %s: output %s: no subscribers", id, port))
	}
}

// spawnWorker starts body in its own goroutine, gated on the
// container's waker. It subscribes to the waker synchronously, before
// the goroutine is spawned, so that a Run or Cancel racing the
// goroutine's own scheduling can never fire before this worker is
// listening for it. It always closes every sender in owned before
// returning — normally or via a recovered cancellation panic — so that
// channel closure cascades to any downstream worker blocked on receive.
func spawnWorker(id string, c *container.Container, owned []channel.Sender, body func()) *Handle {
	woken := c.WakerSubscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			for _, s := range owned {
				s.Close()
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				log.Debug(fmt.Sprintf("stage %s: terminated: %v", id, r))
			}
		}()

		if !c.WaitOn(woken) {
			panic(cancelled)
		}
		body()
	}()
	return &Handle{done: done}
}
