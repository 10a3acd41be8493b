package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cuemby/packforge/pkg/cache"
	"github.com/cuemby/packforge/pkg/channel"
	"github.com/cuemby/packforge/pkg/container"
	"github.com/cuemby/packforge/pkg/curseforge"
	"github.com/cuemby/packforge/pkg/errs"
	"github.com/cuemby/packforge/pkg/httpclient"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/modrinth"
	"github.com/cuemby/packforge/pkg/nixfmt"
	"github.com/cuemby/packforge/pkg/types"
)

// ModResolver is the engine's algorithmic heart: it takes a list of
// user-declared Mod Definitions and resolves each against its catalog
// (Modrinth, CurseForge, or a direct URL) into a fully populated
// Resolved Mod, downloading and hashing the backing jar as it goes.
type ModResolver struct{}

func (ModResolver) GenerateChannels(id string) map[channel.ID]channel.Sender {
	return map[channel.ID]channel.Sender{
		channel.New(id, channel.DefaultPort): channel.NewTextSender(),
		channel.New(id, "json"):              channel.NewTextSender(),
	}
}

func (ModResolver) ValidateAndSpawn(id string, input map[string]channel.ID, c *container.Container) (*Handle, error) {
	modsIn, err := inputReceiver(c, input, "mods", channel.VariantMods)
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
	modloader, ok := c.Config("modloader")
	if !ok {
		return nil, fmt.Errorf("stage %s: config %q: %w", id, "modloader", errs.ErrMissingConfig)
	}

	curseClient, _ := c.CurseClient()
	modrinthClient := c.ModrinthClient()
	cacheBackend, _ := c.Cache()

	return spawnWorker(id, c, []channel.Sender{nixOut, jsonOut}, func() {
		logger := log.WithStage(id, "ModResolver")

		mods, ok := <-modsIn.Mods
		if !ok {
			logger.Error().Msg("mods input channel closed before sending")
			return
		}

		for _, m := range mods {
			if m.Source == types.ModSourceCurse && curseClient == nil {
				logger.Error().Str("mod", m.Name).Msg("curse client required but not configured")
				return
			}
		}

		resolved, err := resolveAll(context.Background(), mods, mcVersion, modloader, modrinthClient, curseClient, cacheBackend)
		if err != nil {
			logger.Error().Err(err).Msg("mod resolution failed")
			return
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

// resolveAll resolves every mod definition concurrently (a
// data-parallel map), sorted by name afterward for deterministic
// output ordering. Any single resolution failure aborts the whole
// batch — the engine never emits a partial resolved-mods list.
func resolveAll(
	ctx context.Context,
	mods []types.ModDefinition,
	mcVersion, modloader string,
	modrinthClient *modrinth.Client,
	curseClient *curseforge.Client,
	cacheBackend cache.Cache,
) ([]types.ResolvedMod, error) {
	results := make([]types.ResolvedMod, len(mods))
	errsOut := make([]error, len(mods))

	var wg sync.WaitGroup
	for i, m := range mods {
		wg.Add(1)
		go func(i int, m types.ModDefinition) {
			defer wg.Done()
			r, err := resolveOne(ctx, m, mcVersion, modloader, modrinthClient, curseClient, cacheBackend)
			results[i] = r
			errsOut[i] = err
		}(i, m)
	}
	wg.Wait()

	for i, err := range errsOut {
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", mods[i].Name, err)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

// resolveOne resolves a single Mod Definition: cache lookup first
// (overriding side/required/default from the definition regardless of
// cache hit), then dispatch-by-variant, download, hash, and cache
// store.
func resolveOne(
	ctx context.Context,
	m types.ModDefinition,
	mcVersion, modloader string,
	modrinthClient *modrinth.Client,
	curseClient *curseforge.Client,
	cacheBackend cache.Cache,
) (types.ResolvedMod, error) {
	namespace, key := modCacheKey(m, mcVersion, modloader)

	if cacheBackend != nil {
		payload, ok, err := cacheBackend.Get(namespace, key)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("cache get %s/%s: %w", namespace, key, err)
		}
		if ok {
			var resolved types.ResolvedMod
			if err := json.Unmarshal([]byte(payload), &resolved); err == nil {
				resolved.Side = m.EffectiveSide()
				resolved.Required = m.IsRequired()
				resolved.Default = m.IsDefault()
				return resolved, nil
			}
		}
	}

	var (
		resolved types.ResolvedMod
		err      error
	)
	switch m.Source {
	case types.ModSourceModrinth:
		resolved, err = resolveModrinth(ctx, modrinthClient, m, mcVersion, modloader)
	case types.ModSourceCurse:
		resolved, err = resolveCurse(ctx, curseClient, m, mcVersion, modloader)
	case types.ModSourceURL:
		resolved, err = resolveURL(ctx, m)
	default:
		return types.ResolvedMod{}, fmt.Errorf("mod %s: unknown source %q", m.Name, m.Source)
	}
	if err != nil {
		return types.ResolvedMod{}, err
	}

	if cacheBackend != nil {
		payload, err := json.Marshal(resolved)
		if err == nil {
			_ = cacheBackend.Put(namespace, key, string(payload))
		}
	}
	return resolved, nil
}

func modCacheKey(m types.ModDefinition, mcVersion, modloader string) (namespace, key string) {
	switch m.Source {
	case types.ModSourceCurse:
		return cache.NamespaceModResolverCurse, fmt.Sprintf("%s::%s::%s+%s", m.Name, m.FileID, mcVersion, modloader)
	case types.ModSourceURL:
		return cache.NamespaceModResolverURL, fmt.Sprintf("%s::%s", m.Name, m.Location)
	default:
		return cache.NamespaceModResolverModrinth, fmt.Sprintf("%s::%s::%s+%s", m.Name, m.FileID, mcVersion, modloader)
	}
}

func resolveModrinth(ctx context.Context, client *modrinth.Client, m types.ModDefinition, mcVersion, modloader string) (types.ResolvedMod, error) {
	var (
		project modrinth.Project
		file    modrinth.VersionFile
	)

	if m.FileID != "" {
		version, err := client.GetVersion(ctx, m.FileID)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("modrinth: get version %s: %w", m.FileID, err)
		}
		p, err := client.GetProject(ctx, version.ProjectID)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("modrinth: get project %s: %w", version.ProjectID, err)
		}
		project = *p
		f, ok := modrinth.PrimaryFile(version.Files)
		if !ok {
			return types.ResolvedMod{}, fmt.Errorf("modrinth: no files on version %s", m.FileID)
		}
		file = f
	} else {
		idOrSlug := m.ProjectID
		if idOrSlug == "" {
			idOrSlug = m.Name
		}
		p, err := client.GetProject(ctx, idOrSlug)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("modrinth: get project %s: %w", idOrSlug, err)
		}
		project = *p

		versions, err := client.GetProjectVersions(ctx, project.ID, modloader, mcVersion)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("modrinth: list versions for %s: %w", project.ID, err)
		}
		version, ok := modrinth.LatestByDatePublished(versions)
		if !ok {
			return types.ResolvedMod{}, fmt.Errorf("modrinth: no versions match %s for %s/%s", project.ID, mcVersion, modloader)
		}
		f, ok := modrinth.PrimaryFile(version.Files)
		if !ok {
			return types.ResolvedMod{}, fmt.Errorf("modrinth: no files on version %s", version.ID)
		}
		file = f
	}

	data, err := httpclient.DownloadArchive(ctx, file.URL)
	if err != nil {
		return types.ResolvedMod{}, fmt.Errorf("modrinth: download %s: %w", file.URL, err)
	}

	return types.ResolvedMod{
		Name:     project.Slug,
		Title:    project.Title,
		Side:     m.EffectiveSide(),
		Required: m.IsRequired(),
		Default:  m.IsDefault(),
		Filename: file.Filename,
		Encoded:  percentEncodeUnreserved(file.Filename),
		Src:      encodeSpaces(file.URL),
		Size:     int64(len(data)),
		MD5:      md5Hex(data),
		SHA256:   sha256Hex(data),
	}, nil
}

func resolveCurse(ctx context.Context, client *curseforge.Client, m types.ModDefinition, mcVersion, modloader string) (types.ResolvedMod, error) {
	var (
		modRec  curseforge.Mod
		fileRec curseforge.File
	)

	if m.FileID != "" {
		fileID, err := strconv.Atoi(m.FileID)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("curse: invalid file id %q: %w", m.FileID, err)
		}
		files, err := client.GetFilesByIDs(ctx, []int{fileID})
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("curse: get file %d: %w", fileID, err)
		}
		if len(files) == 0 {
			return types.ResolvedMod{}, fmt.Errorf("curse: file %d not found", fileID)
		}
		fileRec = files[len(files)-1]

		mr, err := client.FindModByID(ctx, fileRec.ModID)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("curse: find mod %d: %w", fileRec.ModID, err)
		}
		modRec = mr
	} else {
		var (
			mr  curseforge.Mod
			err error
		)
		if m.ProjectID != "" {
			id, convErr := strconv.Atoi(m.ProjectID)
			if convErr != nil {
				return types.ResolvedMod{}, fmt.Errorf("curse: invalid mod id %q: %w", m.ProjectID, convErr)
			}
			mr, err = client.FindModByID(ctx, id)
		} else {
			mr, err = client.FindModBySlug(ctx, m.Name)
		}
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("curse: find mod %s: %w", m.Name, err)
		}
		modRec = mr

		files, err := client.GetModFiles(ctx, modRec.ID)
		if err != nil {
			return types.ResolvedMod{}, fmt.Errorf("curse: get mod files %d: %w", modRec.ID, err)
		}
		var matching []curseforge.File
		for _, f := range files {
			if curseforge.MatchesVersion(f, mcVersion, modloader) {
				matching = append(matching, f)
			}
		}
		f, ok := curseforge.LatestByFileDate(matching)
		if !ok {
			return types.ResolvedMod{}, fmt.Errorf("curse: no files match %s for %s/%s", modRec.Slug, mcVersion, modloader)
		}
		fileRec = f
	}

	data, err := httpclient.DownloadArchive(ctx, fileRec.DownloadURL)
	if err != nil {
		return types.ResolvedMod{}, fmt.Errorf("curse: download %s: %w", fileRec.DownloadURL, err)
	}

	md5sum, ok := curseforge.MD5(fileRec)
	if !ok {
		md5sum = md5Hex(data)
	}

	return types.ResolvedMod{
		Name:     modRec.Slug,
		Title:    modRec.Name,
		Side:     m.EffectiveSide(),
		Required: m.IsRequired(),
		Default:  m.IsDefault(),
		Filename: fileRec.FileName,
		Encoded:  percentEncodeUnreserved(fileRec.FileName),
		Src:      encodeSpaces(fileRec.DownloadURL),
		Size:     int64(len(data)),
		MD5:      md5sum,
		SHA256:   sha256Hex(data),
	}, nil
}

func resolveURL(ctx context.Context, m types.ModDefinition) (types.ResolvedMod, error) {
	data, err := httpclient.DownloadArchive(ctx, m.Location)
	if err != nil {
		return types.ResolvedMod{}, fmt.Errorf("url: download %s: %w", m.Location, err)
	}

	filename := m.Filename
	if filename == "" {
		filename = lastPathSegmentBeforeQuery(m.Location)
	}

	return types.ResolvedMod{
		Name:     m.Name,
		Title:    m.Name,
		Side:     m.EffectiveSide(),
		Required: m.IsRequired(),
		Default:  m.IsDefault(),
		Filename: filename,
		Encoded:  percentEncodeUnreserved(filename),
		Src:      encodeSpaces(m.Location),
		Size:     int64(len(data)),
		MD5:      md5Hex(data),
		SHA256:   sha256Hex(data),
	}, nil
}
