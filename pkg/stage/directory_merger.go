package stage

import (
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/filetree"
	"github.com/cuemby/packforge/pkg/log"
)

// DirectoryMerger merges an open-ended set of named File Tree inputs
// into one, the lexicographically smallest input-port name winning any
// path collision.
type DirectoryMerger struct{}

func (DirectoryMerger) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{channel.New(id, channel.DefaultPort): channel.NewFilesSender()}
}

func (DirectoryMerger) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	receivers, err := variadicReceivers(c, input, channel.VariantFiles)
	if err != nil {
		return nil, err
	}
	out, err := outputSender(c, id, channel.DefaultPort, channel.VariantFiles)
	if err != nil {
		return nil, err
	}

	return spawnWorker(id, c, []channel.Sender{out}, func() {
		logger := log.WithStage(id, "DirectoryMerger")

		named := make(map[string]*filetree.Tree, len(receivers))
		for port, r := range receivers {
			tree, ok := <-r.Files
			if !ok {
				logger.Error().Str("port", port).Msg("input channel closed before sending")
				return
			}
			named[port] = tree
		}

		merged := filetree.MergeByPriority(c.Store(), named)
		logDelivery(id, channel.DefaultPort, out.Files.Send(merged))
	}), nil
}
