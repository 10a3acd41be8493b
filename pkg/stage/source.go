package stage

import (
	"fmt"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/errs"
	"github.com/cuemby/packforge/pkg/types"
)

// Source is the synthetic node that emits a single configured value on
// its default port at startup. It is not looked up in Catalog — the
// orchestrator constructs one directly per types.Node of kind
// NodeKindSource, since its payload is fixed at pack-authoring time
// rather than wired from other channels.
type Source struct {
	ValueKind types.SourceValueKind
	Text      string
	List      []string
	Mods      []types.ModDefinition
}

// NewSource builds a Source from a pack document node.
func NewSource(n types.Node) *Source {
	return &Source{ValueKind: n.ValueKind, Text: n.Text, List: n.List, Mods: n.Mods}
}

func (s *Source) variant() channel.Variant {
	switch s.ValueKind {
	case types.SourceValueText:
		return channel.VariantText
	case types.SourceValueList:
		return channel.VariantList
	case types.SourceValueMods:
		return channel.VariantMods
	default:
		return channel.Variant(-1)
	}
}

// GenerateChannels declares a single output sender whose variant
// matches the source's declared value kind.
func (s *Source) GenerateChannels(id string) map[channel.ID]channel.Sender {
	var sender channel.Sender
	switch s.ValueKind {
	case types.SourceValueText:
		sender = channel.NewTextSender()
	case types.SourceValueList:
		sender = channel.NewListSender()
	case types.SourceValueMods:
		sender = channel.NewModsSender()
	default:
		return nil
	}
	return map[channel.ID]channel.Sender{channel.New(id, channel.DefaultPort): sender}
}

// ValidateAndSpawn resolves the registered output channel, checks its
// variant matches the declared value kind, and spawns a worker that
// sends the configured value once woken.
func (s *Source) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	want := s.variant()
	sender, err := outputSender(c, id, channel.DefaultPort, want)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w: %w", id, errs.ErrSourceConstruction, err)
	}

	return spawnWorker(id, c, []channel.Sender{sender}, func() {
		var delivered int
		switch s.ValueKind {
		case types.SourceValueText:
			delivered = sender.Text.Send(s.Text)
		case types.SourceValueList:
			delivered = sender.List.Send(s.List)
		case types.SourceValueMods:
			delivered = sender.Mods.Send(s.Mods)
		}
		logDelivery(id, channel.DefaultPort, delivered)
	}), nil
}
