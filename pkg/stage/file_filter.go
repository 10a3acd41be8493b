package stage

import (
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/log"
)

// FileFilter partitions an input File Tree by glob pattern match,
// producing a matched tree on "default" and the rest on "inverse".
type FileFilter struct{}

func (FileFilter) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{
		channel.New(id, channel.DefaultPort): channel.NewFilesSender(),
		channel.New(id, "inverse"):           channel.NewFilesSender(),
	}
}

func (FileFilter) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	filesIn, err := inputReceiver(c, input, "files", channel.VariantFiles)
	if err != nil {
		return nil, err
	}
	patternIn, err := inputReceiver(c, input, "pattern", channel.VariantList)
	if err != nil {
		return nil, err
	}
	matchedOut, err := outputSender(c, id, channel.DefaultPort, channel.VariantFiles)
	if err != nil {
		return nil, err
	}
	inverseOut, err := outputSender(c, id, "inverse", channel.VariantFiles)
	if err != nil {
		return nil, err
	}

	return spawnWorker(id, c, []channel.Sender{matchedOut, inverseOut}, func() {
		logger := log.WithStage(id, "FileFilter")

		tree, ok := <-filesIn.Files
		if !ok {
			logger.Error().Msg("files input channel closed before sending")
			return
		}
		patterns, ok := <-patternIn.List
		if !ok {
			logger.Error().Msg("pattern input channel closed before sending")
			return
		}

		matched, unmatched := tree.Filter(patterns)

		logDelivery(id, channel.DefaultPort, matchedOut.Files.Send(matched))
		logDelivery(id, "inverse", inverseOut.Files.Send(unmatched))
	}), nil
}
