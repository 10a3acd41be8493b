// Package curseforge implements a client for the CurseForge mod catalog
// API, built atop the shared rate-limited HTTP client. The rate limit
// and pagination behaviors here follow undocumented upstream quirks,
// preserved deliberately — see the package doc and DESIGN.md.
package curseforge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/cuemby/packforge/pkg/httpclient"
)

const (
	baseURL = "https://api.curseforge.com/v1"
	// CurseForge does not document a rate limit; 1000/min is a working
	// heuristic chosen by prior art in this codebase's lineage.
	requestsPerMinute = 1000

	gameIDMinecraft = "432"
	classIDMods     = "6"
)

// FileReleaseType mirrors CurseForge's numeric release-type enum.
type FileReleaseType int

const (
	FileReleaseRelease FileReleaseType = 1
	FileReleaseBeta    FileReleaseType = 2
	FileReleaseAlpha   FileReleaseType = 3
)

// FileStatus mirrors CurseForge's numeric file-status enum.
type FileStatus int

const (
	FileStatusApproved FileStatus = 4
	FileStatusReleased FileStatus = 10
)

// HashAlgo identifies which digest algorithm a FileHash entry carries.
type HashAlgo int

const (
	HashAlgoSHA1 HashAlgo = 1
	HashAlgoMD5  HashAlgo = 2
)

// FileRelationType mirrors CurseForge's numeric dependency-relation enum.
type FileRelationType int

const (
	RelationEmbeddedLibrary    FileRelationType = 1
	RelationOptionalDependency FileRelationType = 2
	RelationRequiredDependency FileRelationType = 3
	RelationTool               FileRelationType = 4
	RelationIncompatible       FileRelationType = 5
	RelationInclude            FileRelationType = 6
)

// Mod is a CurseForge mod project record.
type Mod struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// FileHash is one hash entry attached to a File.
type FileHash struct {
	Value string   `json:"value"`
	Algo  HashAlgo `json:"algo"`
}

// FileDependency is one dependency entry attached to a File.
type FileDependency struct {
	ModID        int              `json:"modId"`
	RelationType FileRelationType `json:"relationType"`
}

// File is one downloadable artifact belonging to a Mod.
type File struct {
	ID           int              `json:"id"`
	ModID        int              `json:"modId"`
	DisplayName  string           `json:"displayName"`
	FileName     string           `json:"fileName"`
	ReleaseType  FileReleaseType  `json:"releaseType"`
	FileStatus   FileStatus       `json:"fileStatus"`
	DownloadURL  string           `json:"downloadUrl"`
	GameVersions []string         `json:"gameVersions"`
	Dependencies []FileDependency `json:"dependencies"`
	Hashes       []FileHash       `json:"hashes"`
	FileDate     string           `json:"fileDate"`
}

// Pagination describes one page of a paginated CurseForge response. It
// is absent on some endpoints, hence *Pagination in Wrapper.
type Pagination struct {
	Index       int `json:"index"`
	PageSize    int `json:"pageSize"`
	ResultCount int `json:"resultCount"`
	TotalCount  int `json:"totalCount"`
}

// Wrapper is the common envelope every CurseForge response shares.
type Wrapper[T any] struct {
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type getModFilesRequest struct {
	FileIDs []int `json:"fileIds"`
}

// ErrEmpty is returned when a search that must yield exactly one result
// returns none.
var ErrEmpty = fmt.Errorf("curseforge: empty result")

// ErrPagination is returned when a paginated endpoint's response is
// missing its pagination envelope.
var ErrPagination = fmt.Errorf("curseforge: missing pagination")

// Client is a CurseForge API client, constructed either with an API key
// (official API) or against an anonymous proxy.
type Client struct {
	http *httpclient.Client
}

// NewWithAPIKey builds a Client against the official CurseForge API,
// attaching key as the x-api-key header on every request.
func NewWithAPIKey(key string) *Client {
	return &Client{http: httpclient.NewBuilder(requestsPerMinute, baseURL).
		WithMiddleware(func(req *http.Request) {
			req.Header.Set("x-api-key", key)
		}).
		Build(),
	}
}

// NewWithProxy builds a Client against an anonymous proxy service that
// does not require an API key.
func NewWithProxy(proxyURL string) *Client {
	return &Client{http: httpclient.NewBuilder(requestsPerMinute, proxyURL).Build()}
}

// FindModBySlug searches gameId=432 (Minecraft) class=6 (Mods) for slug,
// expecting exactly one result.
func (c *Client) FindModBySlug(ctx context.Context, slug string) (Mod, error) {
	q := url.Values{}
	q.Set("gameId", gameIDMinecraft)
	q.Set("classesId", classIDMods)
	q.Set("slug", slug)

	resp, err := c.http.Get(ctx, "/mods/search", q)
	if err != nil {
		return Mod{}, fmt.Errorf("curseforge: find mod by slug %s: %w", slug, err)
	}
	defer resp.Body.Close()

	var wrapper Wrapper[[]Mod]
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return Mod{}, fmt.Errorf("curseforge: decode search for %s: %w", slug, err)
	}
	if len(wrapper.Data) == 0 {
		return Mod{}, ErrEmpty
	}
	return wrapper.Data[len(wrapper.Data)-1], nil
}

// FindModByID fetches a mod by its numeric id.
func (c *Client) FindModByID(ctx context.Context, id int) (Mod, error) {
	resp, err := c.http.Get(ctx, fmt.Sprintf("/mods/%d", id), nil)
	if err != nil {
		return Mod{}, fmt.Errorf("curseforge: find mod by id %d: %w", id, err)
	}
	defer resp.Body.Close()

	var wrapper Wrapper[Mod]
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return Mod{}, fmt.Errorf("curseforge: decode mod %d: %w", id, err)
	}
	return wrapper.Data, nil
}

// GetModFiles pages through every file attached to a mod. It
// deliberately reproduces an upstream pagination quirk: the loop only
// stops once a page returns fewer entries than the page size, so a
// total count that is an exact multiple of the page size triggers one
// extra, empty, trailing request.
func (c *Client) GetModFiles(ctx context.Context, id int) ([]File, error) {
	var files []File
	index := 0
	for {
		q := url.Values{}
		q.Set("index", strconv.Itoa(index))

		resp, err := c.http.Get(ctx, fmt.Sprintf("/mods/%d/files", id), q)
		if err != nil {
			return nil, fmt.Errorf("curseforge: get mod files %d: %w", id, err)
		}
		var wrapper Wrapper[[]File]
		decodeErr := json.NewDecoder(resp.Body).Decode(&wrapper)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("curseforge: decode mod files %d: %w", id, decodeErr)
		}

		files = append(files, wrapper.Data...)

		if wrapper.Pagination == nil {
			return nil, ErrPagination
		}
		if wrapper.Pagination.ResultCount < wrapper.Pagination.PageSize {
			break
		}
		index += wrapper.Pagination.PageSize
	}
	return files, nil
}

// GetFilesByIDs fetches multiple files in one request by their ids.
func (c *Client) GetFilesByIDs(ctx context.Context, ids []int) ([]File, error) {
	resp, err := c.http.PostJSON(ctx, "/mods/files", getModFilesRequest{FileIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("curseforge: get files by ids: %w", err)
	}
	defer resp.Body.Close()

	var wrapper Wrapper[[]File]
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("curseforge: decode files by ids: %w", err)
	}
	return wrapper.Data, nil
}

// MatchesVersion reports whether f is eligible for mcVersion and loader,
// per the heuristic spec.md prescribes: the game-versions list must
// contain mcVersion, and either an explicit same-loader tag is present
// or the opposite loader's tag is absent (CurseForge's game_versions
// field does not always enumerate the loader explicitly).
func MatchesVersion(f File, mcVersion, loader string) bool {
	hasVersion := false
	hasLoader := false
	hasOppositeLoader := false

	wantLoader, oppositeLoader := loaderTags(loader)

	for _, gv := range f.GameVersions {
		if gv == mcVersion {
			hasVersion = true
		}
		if wantLoader != "" && gv == wantLoader {
			hasLoader = true
		}
		if oppositeLoader != "" && gv == oppositeLoader {
			hasOppositeLoader = true
		}
	}

	if !hasVersion {
		return false
	}
	if wantLoader == "" {
		return true
	}
	return hasLoader || !hasOppositeLoader
}

func loaderTags(loader string) (want, opposite string) {
	switch loader {
	case "forge":
		return "Forge", "Fabric"
	case "fabric":
		return "Fabric", "Forge"
	default:
		return "", ""
	}
}

// LatestByFileDate sorts files ascending by FileDate and returns the
// last (most recent) one. Returns false if files is empty.
func LatestByFileDate(files []File) (File, bool) {
	if len(files) == 0 {
		return File{}, false
	}
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FileDate < sorted[j].FileDate })
	return sorted[len(sorted)-1], true
}

// MD5 returns the md5 hex digest from a file's hash list, if present.
func MD5(f File) (string, bool) {
	for _, h := range f.Hashes {
		if h.Algo == HashAlgoMD5 {
			return h.Value, true
		}
	}
	return "", false
}
