// Package modrinth implements a client for the Modrinth mod catalog API,
// built atop the shared rate-limited HTTP client.
package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/cuemby/packforge/pkg/httpclient"
)

const (
	baseURL           = "https://api.modrinth.com/v2"
	requestsPerMinute = 285
)

// Sided describes whether a mod is required, optional, unsupported, or
// of unknown necessity on one side of the installation.
type Sided string

const (
	SidedRequired    Sided = "required"
	SidedOptional    Sided = "optional"
	SidedUnsupported Sided = "unsupported"
	SidedUnknown     Sided = "unknown"
)

// Project is a Modrinth project (mod) record.
type Project struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	ClientSide Sided  `json:"client_side"`
	ServerSide Sided  `json:"server_side"`
}

// VersionFile is one downloadable artifact attached to a Version.
type VersionFile struct {
	Hashes struct {
		SHA512 string `json:"sha512"`
		SHA1   string `json:"sha1"`
	} `json:"hashes"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
	Size     int64  `json:"size"`
}

// Version is one release of a Project.
type Version struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	Name          string        `json:"name"`
	VersionNumber string        `json:"version_number"`
	GameVersions  []string      `json:"game_versions"`
	VersionType   string        `json:"version_type"`
	Loaders       []string      `json:"loaders"`
	Files         []VersionFile `json:"files"`
	DatePublished string        `json:"date_published"`
}

// Client is a Modrinth API client sharing one rate-limited HTTP client
// per process.
type Client struct {
	http *httpclient.Client
}

var (
	sharedOnce sync.Once
	sharedHTTP *httpclient.Client
)

// NewClient builds a Modrinth client against the production API. Every
// client it returns shares the same rate-limited HTTP client.
func NewClient() *Client {
	sharedOnce.Do(func() {
		sharedHTTP = httpclient.NewBuilder(requestsPerMinute, baseURL).Build()
	})
	return &Client{http: sharedHTTP}
}

// NewClientWithBaseURL builds a Modrinth client against an arbitrary
// base URL, mirroring curseforge.NewWithProxy — used to point at a
// fake server in tests.
func NewClientWithBaseURL(base string) *Client {
	return &Client{http: httpclient.NewBuilder(requestsPerMinute, base).Build()}
}

// GetProject fetches a project by id or slug.
func (c *Client) GetProject(ctx context.Context, idOrSlug string) (*Project, error) {
	resp, err := c.http.Get(ctx, "/project/"+idOrSlug, nil)
	if err != nil {
		return nil, fmt.Errorf("modrinth: get project %s: %w", idOrSlug, err)
	}
	defer resp.Body.Close()

	var p Project
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("modrinth: decode project %s: %w", idOrSlug, err)
	}
	return &p, nil
}

// GetProjectVersions lists a project's versions, optionally filtered by
// loader and game version. Array filters are sent as the literal JSON
// string form Modrinth's search API expects, e.g. `["fabric"]`.
func (c *Client) GetProjectVersions(ctx context.Context, idOrSlug string, loader, gameVersion string) ([]Version, error) {
	q := url.Values{}
	if loader != "" {
		encoded, _ := json.Marshal([]string{loader})
		q.Set("loaders", string(encoded))
	}
	if gameVersion != "" {
		encoded, _ := json.Marshal([]string{gameVersion})
		q.Set("game_versions", string(encoded))
	}

	resp, err := c.http.Get(ctx, "/project/"+idOrSlug+"/version", q)
	if err != nil {
		return nil, fmt.Errorf("modrinth: list versions for %s: %w", idOrSlug, err)
	}
	defer resp.Body.Close()

	var versions []Version
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, fmt.Errorf("modrinth: decode versions for %s: %w", idOrSlug, err)
	}
	return versions, nil
}

// GetVersion fetches a single version by id.
func (c *Client) GetVersion(ctx context.Context, id string) (*Version, error) {
	resp, err := c.http.Get(ctx, "/version/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("modrinth: get version %s: %w", id, err)
	}
	defer resp.Body.Close()

	var v Version
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("modrinth: decode version %s: %w", id, err)
	}
	return &v, nil
}

// LatestByDatePublished sorts versions ascending by DatePublished and
// returns the last (most recent) one. Returns false if versions is
// empty.
func LatestByDatePublished(versions []Version) (Version, bool) {
	if len(versions) == 0 {
		return Version{}, false
	}
	sorted := make([]Version, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DatePublished < sorted[j].DatePublished })
	return sorted[len(sorted)-1], true
}

// PrimaryFile returns the file marked primary, or the first file if none
// is marked. Returns false if files is empty.
func PrimaryFile(files []VersionFile) (VersionFile, bool) {
	if len(files) == 0 {
		return VersionFile{}, false
	}
	for _, f := range files {
		if f.Primary {
			return f, true
		}
	}
	return files[0], true
}
