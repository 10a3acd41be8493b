package stage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/filetree"
	"github.com/cuemby/packforge/pkg/httpclient"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/store"
)

// ArchiveDownloader downloads a ZIP archive (typically a .mrpack) from a
// URL and unpacks it into a fresh File Tree, one entry per regular file.
type ArchiveDownloader struct{}

func (ArchiveDownloader) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{channel.New(id, channel.DefaultPort): channel.NewFilesSender()}
}

func (ArchiveDownloader) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	urlIn, err := inputReceiver(c, input, "url", channel.VariantText)
	if err != nil {
		return nil, err
	}
	out, err := outputSender(c, id, channel.DefaultPort, channel.VariantFiles)
	if err != nil {
		return nil, err
	}

	return spawnWorker(id, c, []channel.Sender{out}, func() {
		logger := log.WithStage(id, "ArchiveDownloader")

		url, ok := <-urlIn.Text
		if !ok {
			logger.Error().Msg("url input channel closed before sending")
			return
		}

		data, err := httpclient.DownloadArchive(context.Background(), url)
		if err != nil {
			logger.Error().Err(err).Str("url", url).Msg("archive download failed")
			return
		}
		logger.Info().Str("url", url).Str("size", units.HumanSize(float64(len(data)))).Msg("archive downloaded")

		tree, err := unpackZip(c.Store(), data)
		if err != nil {
			logger.Error().Err(err).Msg("archive unpack failed")
			return
		}

		delivered := out.Files.Send(tree)
		logDelivery(id, channel.DefaultPort, delivered)
	}), nil
}

// unpackZip reads data as a ZIP archive and writes every regular file
// entry into a fresh Tree bound to s. Entry names are sanitized rather
// than rejected: a mangled or traversal-prone name is reduced to a safe
// relative form instead of failing the whole archive.
func unpackZip(s store.Store, data []byte) (*filetree.Tree, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("stage: read zip: %w", err)
	}

	tree := filetree.New(s)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := sanitizeZipName(f.Name)
		if name == "" {
			continue
		}
		path, err := filetree.NewPath(name)
		if err != nil {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("stage: open zip entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("stage: read zip entry %s: %w", f.Name, err)
		}

		tree.Add(path, content)
	}
	return tree, nil
}

// sanitizeZipName mangles a ZIP entry name into a form filetree.NewPath
// will accept: backslashes normalized to forward slashes, ".." parent
// references and leading separators stripped.
func sanitizeZipName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	parts := strings.Split(name, "/")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "/")
}
