package stage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/errs"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/nixfmt"
	"github.com/cuemby/packforge/pkg/types"
)

// ModWriter renders an already-resolved mod list to the same Nix
// attribute-set and JSON outputs ModResolver produces, without doing
// any catalog resolution itself. Used downstream of
// ModOverrider/ModFilter/ModMerger pipelines.
type ModWriter struct{}

func (ModWriter) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{
		channel.New(id, channel.DefaultPort): channel.NewTextSender(),
		channel.New(id, "json"):              channel.NewTextSender(),
	}
}

func (ModWriter) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	modsIn, err := inputReceiver(c, input, "mods", channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}
	nixOut, err := outputSender(c, id, channel.DefaultPort, channel.VariantText)
	if err != nil {
		return nil, err
	}
	jsonOut, err := outputSender(c, id, "json", channel.VariantText)
	if err != nil {
		return nil, err
	}

	mcVersion, ok := c.Config("minecraft_version")
	if !ok {
		return nil, fmt.Errorf("stage %s: config %q: %w", id, "minecraft_version", errs.ErrMissingConfig)
	}

	return spawnWorker(id, c, []channel.Sender{nixOut, jsonOut}, func() {
		logger := log.WithStage(id, "ModWriter")

		mods, ok := <-modsIn.ResolvedMods
		if !ok {
			logger.Error().Msg("mods input channel closed before sending")
			return
		}

		sorted := make([]types.ResolvedMod, len(mods))
		copy(sorted, mods)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

		byName := make(map[string]types.ResolvedMod, len(sorted))
		for _, m := range sorted {
			byName[m.Name] = m
		}

		nix := nixfmt.Render(mcVersion, byName)
		encoded, err := json.MarshalIndent(sorted, "", "  ")
		if err != nil {
			logger.Error().Err(err).Msg("encode resolved mods as json")
			return
		}

		logDelivery(id, channel.DefaultPort, nixOut.Text.Send(nix))
		logDelivery(id, "json", jsonOut.Text.Send(string(encoded)))
	}), nil
}
