package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetriesOnTransportErrorThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			// Simulate a transport failure by hijacking and closing the
			// connection without writing a response.
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBuilder(1000, srv.URL).Build()
	resp, err := c.Get(context.Background(), "/ping", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(2))
}

func TestGetDoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBuilder(1000, srv.URL).Build()
	_, err := c.Get(context.Background(), "/missing", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestMiddlewareAttachesHeader(t *testing.T) {
	var sawHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBuilder(1000, srv.URL).WithMiddleware(func(req *http.Request) {
		req.Header.Set("x-api-key", "secret")
	}).Build()

	resp, err := c.Get(context.Background(), "/", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "secret", sawHeader)
}

func TestRateLimiterBounds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	const capacity = 3
	c := NewBuilder(capacity, srv.URL).Build()

	// The first `capacity` requests should complete immediately (burst).
	start := time.Now()
	for i := 0; i < capacity; i++ {
		resp, err := c.Get(context.Background(), "/", nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	immediate := time.Since(start)
	assert.Less(t, immediate, 2*time.Second, "burst of capacity requests should not wait on the limiter")
}

func TestQueryEncoding(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBuilder(1000, srv.URL).Build()
	q := url.Values{}
	q.Set("loaders", `["fabric"]`)
	resp, err := c.Get(context.Background(), "/project/x/version", q)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, gotQuery, "loaders=")
}
