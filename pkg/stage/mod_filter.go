package stage

import (
	"sort"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/types"
)

// ModFilter partitions a ResolvedMods list by name membership in a
// filter list, kept mods on "default" and the rest on "inverse".
type ModFilter struct{}

func (ModFilter) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{
		channel.New(id, channel.DefaultPort): channel.NewResolvedModsSender(),
		channel.New(id, "inverse"):           channel.NewResolvedModsSender(),
	}
}

func (ModFilter) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	modsIn, err := inputReceiver(c, input, "mods", channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}
	filtersIn, err := inputReceiver(c, input, "filters", channel.VariantList)
	if err != nil {
		return nil, err
	}
	keptOut, err := outputSender(c, id, channel.DefaultPort, channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}
	excludedOut, err := outputSender(c, id, "inverse", channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}

	return spawnWorker(id, c, []channel.Sender{keptOut, excludedOut}, func() {
		logger := log.WithStage(id, "ModFilter")

		mods, ok := <-modsIn.ResolvedMods
		if !ok {
			logger.Error().Msg("mods input channel closed before sending")
			return
		}
		names, ok := <-filtersIn.List
		if !ok {
			logger.Error().Msg("filters input channel closed before sending")
			return
		}

		sorted := make([]string, len(names))
		copy(sorted, names)
		sort.Strings(sorted)

		var kept, excluded []types.ResolvedMod
		for _, m := range mods {
			i := sort.SearchStrings(sorted, m.Name)
			if i < len(sorted) && sorted[i] == m.Name {
				kept = append(kept, m)
			} else {
				excluded = append(excluded, m)
			}
		}

		logDelivery(id, channel.DefaultPort, keptOut.ResolvedMods.Send(kept))
		logDelivery(id, "inverse", excludedOut.ResolvedMods.Send(excluded))
	}), nil
}
