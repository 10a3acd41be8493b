// Package httpclient implements the shared rate-limited HTTP client that
// sits beneath every remote API call: a token-bucket limiter, bounded
// GET retries, and a middleware hook for auth headers.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/metrics"
)

// UserAgent identifies this software to remote catalogs.
const UserAgent = "packforge/1.0 (+https://github.com/cuemby/packforge)"

// ErrRequest wraps any non-2xx response or transport failure.
type ErrRequest struct {
	Method string
	URL    string
	Status int
	Err    error
}

func (e *ErrRequest) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("httpclient: %s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("httpclient: %s %s: status %d", e.Method, e.URL, e.Status)
}

func (e *ErrRequest) Unwrap() error { return e.Err }

// Middleware mutates a request before it is sent, e.g. to attach an
// API-key header.
type Middleware func(*http.Request)

// Client wraps *http.Client with a token-bucket rate limiter. Each
// Builder.Build call gets its own independent limiter — one per
// upstream API, per the builder below.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	baseURL    string
	host       string
	middleware []Middleware
}

// Builder configures a Client before construction.
type Builder struct {
	requestsPerMinute int
	baseURL           string
	middleware        []Middleware
}

// NewBuilder starts building a Client with a token bucket of capacity
// requestsPerMinute tokens refilled every 60 seconds (burst ceiling
// equal to the same capacity), and the given base URL prefixed onto
// every path.
func NewBuilder(requestsPerMinute int, baseURL string) *Builder {
	return &Builder{requestsPerMinute: requestsPerMinute, baseURL: baseURL}
}

// WithMiddleware attaches a request-mutating hook, e.g. for an API-key
// header. Middlewares run in registration order.
func (b *Builder) WithMiddleware(m Middleware) *Builder {
	b.middleware = append(b.middleware, m)
	return b
}

// Build constructs the Client.
func (b *Builder) Build() *Client {
	perSecond := float64(b.requestsPerMinute) / 60.0
	host := b.baseURL
	if u, err := url.Parse(b.baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Client{
		http:       &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), b.requestsPerMinute),
		baseURL:    b.baseURL,
		host:       host,
		middleware: b.middleware,
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) waitForToken(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RateLimiterWaitDuration, c.host)
	return c.limiter.Wait(ctx)
}

func (c *Client) apply(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	for _, m := range c.middleware {
		m(req)
	}
}

// Get issues a GET to path with the given query parameters. It retries
// up to twice on transport error (three attempts total); it does not
// retry on a non-2xx HTTP status.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	fullURL := c.buildURL(path, query)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := c.waitForToken(ctx); err != nil {
			return nil, &ErrRequest{Method: "GET", URL: fullURL, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, &ErrRequest{Method: "GET", URL: fullURL, Err: err}
		}
		c.apply(req)

		timer := metrics.NewTimer()
		resp, err := c.http.Do(req)
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, c.host)
		if err != nil {
			lastErr = err
			log.Debug(fmt.Sprintf("GET %s attempt %d/3 transport error: %v", fullURL, attempt+1, err))
			continue
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.host, strconv.Itoa(resp.StatusCode)).Inc()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &ErrRequest{Method: "GET", URL: fullURL, Status: resp.StatusCode, Err: fmt.Errorf("%s", string(body))}
		}
		return resp, nil
	}
	return nil, &ErrRequest{Method: "GET", URL: fullURL, Err: lastErr}
}

// PostJSON issues a POST of body (JSON-encoded) to path. POST is never
// retried.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	fullURL := c.buildURL(path, nil)

	if err := c.waitForToken(ctx); err != nil {
		return nil, &ErrRequest{Method: "POST", URL: fullURL, Err: err}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &ErrRequest{Method: "POST", URL: fullURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, &ErrRequest{Method: "POST", URL: fullURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.apply(req)

	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.HTTPRequestDuration, c.host)
	if err != nil {
		return nil, &ErrRequest{Method: "POST", URL: fullURL, Err: err}
	}
	metrics.HTTPRequestsTotal.WithLabelValues(c.host, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &ErrRequest{Method: "POST", URL: fullURL, Status: resp.StatusCode, Err: fmt.Errorf("%s", string(respBody))}
	}
	return resp, nil
}

// DownloadArchive fetches url directly, bypassing the rate limiter —
// used by ArchiveDownloader, which needs no throttling since it is a
// one-shot download outside the catalog APIs.
func DownloadArchive(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ErrRequest{Method: "GET", URL: url, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &ErrRequest{Method: "GET", URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ErrRequest{Method: "GET", URL: url, Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
