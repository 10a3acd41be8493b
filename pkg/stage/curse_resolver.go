package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/cuemby/packforge/pkg/cache"
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/curseforge"
	"github.com/cuemby/packforge/pkg/errs"
	"github.com/cuemby/packforge/pkg/httpclient"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/nixfmt"
	"github.com/cuemby/packforge/pkg/types"
)

// curseManifest is the modpack-import manifest shape CurseResolver
// parses: a flat list of CurseForge project/file id pairs.
type curseManifest struct {
	Files []curseManifestFile `json:"files"`
}

type curseManifestFile struct {
	ProjectID int  `json:"projectID"`
	FileID    int  `json:"fileID"`
	Required  bool `json:"required"`
}

// CurseResolver is ModResolver's counterpart for modpack-import flows:
// instead of a Mod Definition list, it consumes a raw CurseForge
// manifest and resolves every entry against the Curse catalog. Every
// resolved mod is unconditionally side=both, required=true,
// default=true — the manifest's own "required" flag is parsed but not
// consulted, preserving upstream's behavior.
type CurseResolver struct{}

func (CurseResolver) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{
		channel.New(id, channel.DefaultPort): channel.NewTextSender(),
		channel.New(id, "json"):              channel.NewTextSender(),
	}
}

func (CurseResolver) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	manifestIn, err := inputReceiver(c, input, "manifest", channel.VariantText)
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

	curseClient, ok := c.CurseClient()
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", id, errs.ErrCurseClientRequired)
	}
	cacheBackend, _ := c.Cache()

	return spawnWorker(id, c, []channel.Sender{nixOut, jsonOut}, func() {
		logger := log.WithStage(id, "CurseResolver")

		manifestText, ok := <-manifestIn.Text
		if !ok {
			logger.Error().Msg("manifest input channel closed before sending")
			return
		}

		var manifest curseManifest
		if err := json.Unmarshal([]byte(manifestText), &manifest); err != nil {
			logger.Error().Err(err).Msg("failed to deserialize curse manifest")
			return
		}
		logger.Info().Int("count", len(manifest.Files)).Msg("resolving curse manifest entries")

		resolved := make([]types.ResolvedMod, len(manifest.Files))
		errsOut := make([]error, len(manifest.Files))
		var wg sync.WaitGroup
		for i, f := range manifest.Files {
			wg.Add(1)
			go func(i int, f curseManifestFile) {
				defer wg.Done()
				r, err := resolveCurseManifestEntry(context.Background(), curseClient, f.ProjectID, f.FileID, cacheBackend)
				resolved[i] = r
				errsOut[i] = err
			}(i, f)
		}
		wg.Wait()

		for i, err := range errsOut {
			if err != nil {
				logger.Error().Err(err).Int("project_id", manifest.Files[i].ProjectID).Msg("failed to resolve curse mod")
				return
			}
		}

		byName := make(map[string]types.ResolvedMod, len(resolved))
		for _, m := range resolved {
			byName[m.Name] = m
		}

		nix := nixfmt.Render(mcVersion, byName)
		encoded, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			logger.Error().Err(err).Msg("encode resolved mods as json")
			return
		}

		logDelivery(id, channel.DefaultPort, nixOut.Text.Send(nix))
		logDelivery(id, "json", jsonOut.Text.Send(string(encoded)))
	}), nil
}

func resolveCurseManifestEntry(ctx context.Context, client *curseforge.Client, modID, fileID int, cacheBackend cache.Cache) (types.ResolvedMod, error) {
	key := strconv.Itoa(modID) + "::" + strconv.Itoa(fileID)

	if cacheBackend != nil {
		payload, ok, err := cacheBackend.Get(cache.NamespaceCurseResolver, key)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("cache get %s/%s: %w", cache.NamespaceCurseResolver, key, err)
		}
		if ok {
			var resolved types.ResolvedMod
			if err := json.Unmarshal([]byte(payload), &resolved); err == nil {
				return resolved, nil
			}
		}
	}

	modRec, err := client.FindModByID(ctx, modID)
	if err != nil {
		return types.ResolvedMod{}, fmt.Errorf("curse: find mod %d: %w", modID, err)
	}
	files, err := client.GetFilesByIDs(ctx, []int{fileID})
	if err != nil {
		return types.ResolvedMod{}, fmt.Errorf("curse: get file %d: %w", fileID, err)
	}
	if len(files) == 0 {
		return types.ResolvedMod{}, fmt.Errorf("curse: file %d not found", fileID)
	}
	fileRec := files[len(files)-1]

	data, err := httpclient.DownloadArchive(ctx, fileRec.DownloadURL)
	if err != nil {
		return types.ResolvedMod{}, fmt.Errorf("curse: download %s: %w", fileRec.DownloadURL, err)
	}

	md5sum, ok := curseforge.MD5(fileRec)
	if !ok {
		md5sum = md5Hex(data)
	}

	resolved := types.ResolvedMod{
		Name:     modRec.Slug,
		Title:    modRec.Name,
		Side:     types.SideBoth,
		Required: true,
		Default:  true,
		Filename: fileRec.FileName,
		Encoded:  percentEncodeUnreserved(fileRec.FileName),
		Src:      encodeSpaces(fileRec.DownloadURL),
		Size:     int64(len(data)),
		MD5:      md5sum,
		SHA256:   sha256Hex(data),
	}

	if cacheBackend != nil {
		payload, err := json.Marshal(resolved)
		if err == nil {
			_ = cacheBackend.Put(cache.NamespaceCurseResolver, key, string(payload))
		}
	}
	return resolved, nil
}
