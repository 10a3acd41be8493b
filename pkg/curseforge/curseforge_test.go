package curseforge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/packforge/pkg/httpclient"
)

func clientAgainst(url string) *Client {
	return &Client{http: httpclient.NewBuilder(requestsPerMinute, url).Build()}
}

func TestFindModBySlugReturnsLastResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/search", r.URL.Path)
		assert.Equal(t, "432", r.URL.Query().Get("gameId"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []Mod{
				{ID: 1, Name: "old-match", Slug: "appleskin"},
				{ID: 248787, Name: "AppleSkin", Slug: "appleskin"},
			},
		})
	}))
	defer srv.Close()

	c := clientAgainst(srv.URL)
	mod, err := c.FindModBySlug(context.Background(), "appleskin")
	require.NoError(t, err)
	assert.Equal(t, 248787, mod.ID)
}

func TestFindModBySlugEmptyReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []Mod{}})
	}))
	defer srv.Close()

	c := clientAgainst(srv.URL)
	_, err := c.FindModBySlug(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFindModByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/248787", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": Mod{ID: 248787, Name: "AppleSkin", Slug: "appleskin"},
		})
	}))
	defer srv.Close()

	c := clientAgainst(srv.URL)
	mod, err := c.FindModByID(context.Background(), 248787)
	require.NoError(t, err)
	assert.Equal(t, "AppleSkin", mod.Name)
}

// TestGetModFilesExactMultipleTriggersExtraPage locks in the upstream
// pagination quirk: when resultCount never falls below pageSize, the
// loop issues one extra request for an always-empty trailing page.
func TestGetModFilesExactMultipleTriggersExtraPage(t *testing.T) {
	const pageSize = 2
	pages := [][]File{
		{{ID: 1, ModID: 248787}, {ID: 2, ModID: 248787}},
		{{ID: 3, ModID: 248787}, {ID: 4, ModID: 248787}},
		{},
	}
	var requestCount int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := requestCount
		requestCount++
		if idx >= len(pages) {
			t.Fatalf("unexpected extra request beyond fixture pages: %d", idx)
		}
		page := pages[idx]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": page,
			"pagination": Pagination{
				Index:       idx * pageSize,
				PageSize:    pageSize,
				ResultCount: len(page),
				TotalCount:  4,
			},
		})
	}))
	defer srv.Close()

	c := clientAgainst(srv.URL)
	files, err := c.GetModFiles(context.Background(), 248787)
	require.NoError(t, err)
	assert.Len(t, files, 4)
	assert.Equal(t, 3, requestCount, "exact-multiple totals must trigger one extra trailing request")
}

func TestGetModFilesStopsOnShortPage(t *testing.T) {
	const pageSize = 2
	pages := [][]File{
		{{ID: 1, ModID: 1}, {ID: 2, ModID: 1}},
		{{ID: 3, ModID: 1}},
	}
	var requestCount int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := requestCount
		requestCount++
		page := pages[idx]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": page,
			"pagination": Pagination{
				Index:       idx * pageSize,
				PageSize:    pageSize,
				ResultCount: len(page),
				TotalCount:  3,
			},
		})
	}))
	defer srv.Close()

	c := clientAgainst(srv.URL)
	files, err := c.GetModFiles(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Equal(t, 2, requestCount)
}

func TestGetFilesByIDsPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body getModFilesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int{2322922, 3359843}, body.FileIDs)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []File{
				{ID: 2322922, FileName: "appleskin-1.20.jar"},
				{ID: 3359843, FileName: "mousetweaks-1.20.jar"},
			},
		})
	}))
	defer srv.Close()

	c := clientAgainst(srv.URL)
	files, err := c.GetFilesByIDs(context.Background(), []int{2322922, 3359843})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMatchesVersionRequiresGameVersion(t *testing.T) {
	f := File{GameVersions: []string{"1.20.1", "Fabric"}}
	assert.True(t, MatchesVersion(f, "1.20.1", "fabric"))
	assert.False(t, MatchesVersion(f, "1.19.2", "fabric"))
}

func TestMatchesVersionRejectsOppositeLoader(t *testing.T) {
	f := File{GameVersions: []string{"1.20.1", "Forge"}}
	assert.False(t, MatchesVersion(f, "1.20.1", "fabric"))
}

func TestLatestByFileDate(t *testing.T) {
	files := []File{
		{ID: 1, FileDate: "2023-01-01T00:00:00Z"},
		{ID: 3, FileDate: "2023-03-01T00:00:00Z"},
		{ID: 2, FileDate: "2023-02-01T00:00:00Z"},
	}
	latest, ok := LatestByFileDate(files)
	require.True(t, ok)
	assert.Equal(t, 3, latest.ID)
}

func TestMD5FromHashes(t *testing.T) {
	f := File{Hashes: []FileHash{
		{Value: "deadbeef", Algo: HashAlgoSHA1},
		{Value: "cafebabe", Algo: HashAlgoMD5},
	}}
	md5, ok := MD5(f)
	require.True(t, ok)
	assert.Equal(t, "cafebabe", md5)
}

func TestAPIKeyMiddlewareAttachesHeader(t *testing.T) {
	var sawHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("x-api-key")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": Mod{ID: 1}})
	}))
	defer srv.Close()

	c := &Client{http: httpclient.NewBuilder(requestsPerMinute, srv.URL).
		WithMiddleware(func(req *http.Request) { req.Header.Set("x-api-key", "secret-key") }).
		Build(),
	}

	_, err := c.FindModByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", sawHeader)
}

func TestProxyClientHasNoAuthHeader(t *testing.T) {
	var sawHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("x-api-key")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": Mod{ID: 1}})
	}))
	defer srv.Close()

	c := NewWithProxy(srv.URL)
	_, err := c.FindModByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, sawHeader)
}

func TestGetModFilesMissingPaginationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []File{}})
	}))
	defer srv.Close()

	c := clientAgainst(srv.URL)
	_, err := c.GetModFiles(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPagination)
}
