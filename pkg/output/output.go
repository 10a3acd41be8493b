// Package output drains the orchestrator's named output receivers to
// disk. It is a thin, real implementation the CLI needs to be runnable;
// the engine itself never depends on it.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/metrics"
)

// Drain blocks until every receiver in outputs has delivered its one
// value (or closed without one), writing each to <dir>/<filename>.
// Text receivers write a single file; Files receivers write one file per
// tree entry, nested under <dir>/<filename>/<path>. Returns the first
// error encountered, after attempting every output.
func Drain(dir string, outputs map[string]channel.Receiver) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output: create %s: %w", dir, err)
	}

	var firstErr error
	for filename, r := range outputs {
		if err := drainOne(dir, filename, r); err != nil {
			log.Logger.Error().Err(err).Str("filename", filename).Msg("output write failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}
	return firstErr
}

func drainOne(dir, filename string, r channel.Receiver) error {
	switch r.Variant {
	case channel.VariantText:
		text, ok := <-r.Text
		if !ok {
			log.Logger.Warn().Str("filename", filename).Msg("output closed without a value")
			return nil
		}
		return writeFile(filepath.Join(dir, filename), []byte(text))

	case channel.VariantFiles:
		tree, ok := <-r.Files
		if !ok {
			log.Logger.Warn().Str("filename", filename).Msg("output closed without a value")
			return nil
		}
		base := filepath.Join(dir, filename)
		for _, p := range tree.List() {
			b, ok := tree.Get(p)
			if !ok {
				continue
			}
			if err := writeFile(filepath.Join(base, p.String()), b); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("output: %s: unsupported channel variant %s", filename, r.Variant)
	}
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output: create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	log.Logger.Info().Str("path", path).Int("bytes", len(b)).Msg("wrote output file")
	metrics.OutputFilesWritten.Inc()
	return nil
}
