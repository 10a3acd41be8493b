package stage

import (
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/types"
)

// ModOverrider applies user-declared overrides (side, and optionally
// required/default) onto resolved mods matched by name. Fields not
// named in an override are left untouched.
type ModOverrider struct{}

func (ModOverrider) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{channel.New(id, channel.DefaultPort): channel.NewResolvedModsSender()}
}

func (ModOverrider) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	modsIn, err := inputReceiver(c, input, "mods", channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}
	overridesIn, err := inputReceiver(c, input, "overrides", channel.VariantMods)
	if err != nil {
		return nil, err
	}
	out, err := outputSender(c, id, channel.DefaultPort, channel.VariantResolvedMods)
	if err != nil {
		return nil, err
	}

	return spawnWorker(id, c, []channel.Sender{out}, func() {
		logger := log.WithStage(id, "ModOverrider")

		mods, ok := <-modsIn.ResolvedMods
		if !ok {
			logger.Error().Msg("mods input channel closed before sending")
			return
		}
		overrides, ok := <-overridesIn.Mods
		if !ok {
			logger.Error().Msg("overrides input channel closed before sending")
			return
		}

		byName := make(map[string]types.ModDefinition, len(overrides))
		for _, o := range overrides {
			byName[o.Name] = o
		}

		result := make([]types.ResolvedMod, len(mods))
		copy(result, mods)
		for i, m := range result {
			o, ok := byName[m.Name]
			if !ok {
				continue
			}
			m.Side = o.EffectiveSide()
			if o.Required != nil {
				m.Required = *o.Required
			}
			if o.Default != nil {
				m.Default = *o.Default
			}
			result[i] = m
		}

		logDelivery(id, channel.DefaultPort, out.ResolvedMods.Send(result))
	}), nil
}
