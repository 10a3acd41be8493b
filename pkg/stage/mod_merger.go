package stage

import (
	"sort"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/types"
)

// ModMerger merges an open-ended set of named ResolvedMods inputs into
// one list, deduplicating by mod name with the same lexicographic
// input-port priority rule as DirectoryMerger.
type ModMerger struct{}

func (ModMerger) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{channel.New(id, channel.DefaultPort): channel.NewResolvedModsSender()}
}

func (ModMerger) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	receivers, err := variadicReceivers(c, input, channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}
	out, err := outputSender(c, id, channel.DefaultPort, channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}

	return spawnWorker(id, c, []channel.Sender{out}, func() {
		logger := log.WithStage(id, "ModMerger")

		named := make(map[string][]types.ResolvedMod, len(receivers))
		for port, r := range receivers {
			mods, ok := <-r.ResolvedMods
			if !ok {
				logger.Error().Str("port", port).Msg("input channel closed before sending")
				return
			}
			named[port] = mods
		}

		merged := mergeModsByPriority(named)
		logDelivery(id, channel.DefaultPort, out.ResolvedMods.Send(merged))
	}), nil
}

// mergeModsByPriority applies DirectoryMerger's fold-left-over-
// descending-port-names algorithm to ResolvedMods, keyed by mod name
// instead of File Path.
func mergeModsByPriority(named map[string][]types.ResolvedMod) []types.ResolvedMod {
	ports := make([]string, 0, len(named))
	for port := range named {
		ports = append(ports, port)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ports)))

	byName := make(map[string]types.ResolvedMod)
	for _, port := range ports {
		for _, m := range named[port] {
			byName[m.Name] = m
		}
	}

	out := make([]types.ResolvedMod, 0, len(byName))
	for _, m := range byName {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
