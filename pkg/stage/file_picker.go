package stage

import (
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/filetree"
	"github.com/cuemby/packforge/pkg/log"
)

// FilePicker reads one selected file out of a File Tree as UTF-8 text.
type FilePicker struct{}

func (FilePicker) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{channel.New(id, channel.DefaultPort): channel.NewTextSender()}
}

func (FilePicker) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	filesIn, err := inputReceiver(c, input, "files", channel.VariantFiles)
	if err != nil {
		return nil, err
	}
	pathIn, err := inputReceiver(c, input, "path", channel.VariantText)
	if err != nil {
		return nil, err
	}
	out, err := outputSender(c, id, channel.DefaultPort, channel.VariantText)
	if err != nil {
		return nil, err
	}

	return spawnWorker(id, c, []channel.Sender{out}, func() {
		logger := log.WithStage(id, "FilePicker")

		tree, ok := <-filesIn.Files
		if !ok {
			logger.Error().Msg("files input channel closed before sending")
			return
		}
		rawPath, ok := <-pathIn.Text
		if !ok {
			logger.Error().Msg("path input channel closed before sending")
			return
		}

		path, err := filetree.NewPath(rawPath)
		if err != nil {
			logger.Error().Err(err).Str("path", rawPath).Msg("invalid file path")
			return
		}
		content, ok := tree.Get(path)
		if !ok {
			logger.Error().Str("path", rawPath).Msg("path not found in tree")
			return
		}

		logDelivery(id, channel.DefaultPort, out.Text.Send(string(content)))
	}), nil
}
