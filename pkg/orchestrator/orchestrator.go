// Package orchestrator assembles a pack definition into a running
// graph: it partitions the document's nodes, wires every declared
// channel into a DI container, and spawns one worker goroutine per
// source and stage before releasing them all at once.
package orchestrator

import (
	"fmt"

	"github.com/cuemby/packforge/pkg/cache"
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/curseforge"
	"github.com/cuemby/packforge/pkg/errs"
	"github.com/cuemby/packforge/pkg/modrinth"
	"github.com/cuemby/packforge/pkg/stage"
	"github.com/cuemby/packforge/pkg/types"
)

// Config is the global, pack-independent configuration the orchestrator
// needs beyond the pack document itself.
type Config struct {
	CurseAPIKey   string
	CurseProxyURL string
	Cache         cache.Cache
}

// Handle is returned by Build: the owner still controls Run/Cancel on
// the underlying container, and Outputs maps each declared output
// filename to the receiver its source channel resolved to.
type Handle struct {
	Container *container.Container
	Outputs   map[string]channel.Receiver
}

// Build partitions pack.Nodes, wires every channel, and spawns every
// source and stage worker. The workers block on the container's waker
// until the caller calls Handle.Container.Run(); no data moves before
// that.
func Build(pack types.PackDefinition, cfg Config) (*Handle, error) {
	var sources, stages, outputs []types.Node
	for _, n := range pack.Nodes {
		switch n.Kind {
		case types.NodeKindSource:
			sources = append(sources, n)
		case types.NodeKindStage:
			stages = append(stages, n)
		case types.NodeKindOutput:
			outputs = append(outputs, n)
		}
	}

	b := container.NewBuilder().WithConfigs(pack.Config)
	b = b.WithModrinthClient(modrinth.NewClient())
	if cfg.CurseAPIKey != "" {
		b = b.WithCurseClient(curseforge.NewWithAPIKey(cfg.CurseAPIKey))
	} else if cfg.CurseProxyURL != "" {
		b = b.WithCurseClient(curseforge.NewWithProxy(cfg.CurseProxyURL))
	}
	if cfg.Cache != nil {
		b = b.WithCache(cfg.Cache)
	}

	sourceImpls := make(map[string]*stage.Source, len(sources))
	for _, n := range sources {
		s := stage.NewSource(n)
		sourceImpls[n.ID] = s
		for id, sender := range s.GenerateChannels(n.ID) {
			if err := b.RegisterChannel(id, sender); err != nil {
				return nil, err
			}
		}
	}

	stageImpls := make(map[string]stage.Stage, len(stages))
	for _, n := range stages {
		factory, ok := stage.Catalog[n.StageKind]
		if !ok {
			return nil, fmt.Errorf("orchestrator: stage %s: unknown kind %q", n.ID, n.StageKind)
		}
		impl := factory()
		stageImpls[n.ID] = impl
		for id, sender := range impl.GenerateChannels(n.ID) {
			if err := b.RegisterChannel(id, sender); err != nil {
				return nil, err
			}
		}
	}

	c := container.Build(b)

	outputReceivers := make(map[string]channel.Receiver, len(outputs))
	for _, n := range outputs {
		id, err := channel.ParseID(n.SourceID)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: output %s: %w", n.Filename, err)
		}
		r, ok := c.GetReceiver(id)
		if !ok {
			return nil, fmt.Errorf("orchestrator: output %s -> %s: %w", n.Filename, id, errs.ErrOutputChannel)
		}
		outputReceivers[n.Filename] = r
	}

	for _, n := range sources {
		if _, err := sourceImpls[n.ID].ValidateAndSpawn(n.ID, nil, c); err != nil {
			_ = c.Cancel()
			return nil, fmt.Errorf("orchestrator: source %s: %w", n.ID, err)
		}
	}

	var nodeErrs []error
	for _, n := range stages {
		input := make(map[string]channel.ID, len(n.Input))
		for port, idStr := range n.Input {
			id, err := channel.ParseID(idStr)
			if err != nil {
				nodeErrs = append(nodeErrs, fmt.Errorf("stage %s: input %s: %w", n.ID, port, err))
				continue
			}
			input[port] = id
		}
		if _, err := stageImpls[n.ID].ValidateAndSpawn(n.ID, input, c); err != nil {
			nodeErrs = append(nodeErrs, fmt.Errorf("stage %s: %w", n.ID, err))
		}
	}

	if len(nodeErrs) > 0 {
		_ = c.Cancel()
		return nil, &errs.NodeConstructionError{Errors: nodeErrs}
	}

	return &Handle{Container: c, Outputs: outputReceivers}, nil
}
