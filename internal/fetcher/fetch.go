package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voyagen/lulutv/internal/metrics"
)

// ErrUpstream marks failures of a remote manifest or index fetch.
var ErrUpstream = errors.New("upstream fetch failed")

type bypassKey struct{}

// WithoutCache marks ctx so caching Sources skip their stored copy, fetch
// upstream and store the new text.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// CacheBypassed reports whether ctx was marked by WithoutCache.
func CacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}

// Source fetches raw manifest text from a URL.
type Source interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPSource is a Source backed by net/http.
type HTTPSource struct {
	client    *http.Client
	userAgent string
}

// NewHTTPSource returns a Source that sends userAgent (when set) and gives up after timeout.
func NewHTTPSource(userAgent string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch GETs url and returns the body. Transport failures and non-2xx
// statuses are wrapped in ErrUpstream.
func (s *HTTPSource) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.IncManifestFetch("failure")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncManifestFetch("failure")
		return "", fmt.Errorf("%w: %s: HTTP %d", ErrUpstream, url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncManifestFetch("failure")
		return "", fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	metrics.IncManifestFetch("success")
	return string(body), nil
}
