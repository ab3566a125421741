package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voyagen/lulutv/internal/metrics"
	"github.com/voyagen/lulutv/internal/models"
)

// SampleSize is the number of body bytes read by the GET fallback.
const SampleSize = 4096

// DefaultTimeout bounds each probe attempt when none is configured.
const DefaultTimeout = 12 * time.Second

// Doer is the subset of *http.Client used by the Prober.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober probes stream URLs: HEAD first, then a GET reading a short sample.
type Prober struct {
	client    Doer
	userAgent string
	timeout   time.Duration
	now       func() time.Time
}

// New returns a Prober. A nil client means a default *http.Client, which
// follows redirects. timeout applies to each attempt separately.
func New(client Doer, userAgent string, timeout time.Duration) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{client: client, userAgent: userAgent, timeout: timeout, now: time.Now}
}

// Probe checks url without per-stream request hints.
func (p *Prober) Probe(ctx context.Context, url string) (models.ValidationResult, error) {
	return p.probe(ctx, url, nil)
}

// ProbeChannel checks rec.URL, sending the record's own request hints.
func (p *Prober) ProbeChannel(ctx context.Context, rec models.ChannelRecord) (models.ValidationResult, error) {
	return p.probe(ctx, rec.URL, rec.Headers)
}

// probe returns an error only when no request could be built for url;
// network and HTTP failures are reported in the result.
func (p *Prober) probe(ctx context.Context, url string, hints *models.StreamHeaders) (models.ValidationResult, error) {
	started := p.now()
	if _, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil); err != nil {
		metrics.ObserveProbe("error", 0)
		return models.ValidationResult{}, fmt.Errorf("probe %q: %w", url, err)
	}

	res := p.attempt(ctx, url, hints)
	res.CheckedAt = p.now().UTC()

	outcome := "down"
	switch {
	case res.HLSCompatible:
		outcome = "hls"
	case res.Working:
		outcome = "working"
	}
	metrics.ObserveProbe(outcome, res.CheckedAt.Sub(started))
	return res, nil
}

func (p *Prober) attempt(ctx context.Context, url string, hints *models.StreamHeaders) models.ValidationResult {
	var notes []string

	status, header, _, err := p.do(ctx, http.MethodHead, url, hints)
	switch {
	case err != nil:
		notes = append(notes, "HEAD failed: "+err.Error())
	case is2xx(status):
		return classified(header, nil, notes)
	}

	status, header, sample, err := p.do(ctx, http.MethodGet, url, hints)
	switch {
	case err != nil:
		return models.ValidationResult{Detail: "fetch error: " + err.Error()}
	case !is2xx(status):
		return models.ValidationResult{Detail: fmt.Sprintf("HTTP status %d", status)}
	}
	return classified(header, sample, notes)
}

func classified(h http.Header, sample []byte, notes []string) models.ValidationResult {
	hls, reason := Classify(h, sample)
	if reason != "" {
		notes = append(notes, reason)
	}
	return models.ValidationResult{
		Working:       true,
		HLSCompatible: hls,
		Detail:        strings.Join(notes, "; "),
	}
}

// do performs one attempt under its own timeout. For GET it returns up to
// SampleSize body bytes.
func (p *Prober) do(ctx context.Context, method, url string, hints *models.StreamHeaders) (int, http.Header, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	p.applyHeaders(req, hints)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	var sample []byte
	if method == http.MethodGet && is2xx(resp.StatusCode) {
		// A short or interrupted read still yields a usable sample.
		sample, _ = io.ReadAll(io.LimitReader(resp.Body, SampleSize))
	}
	return resp.StatusCode, resp.Header, sample, nil
}

func (p *Prober) applyHeaders(req *http.Request, hints *models.StreamHeaders) {
	ua := p.userAgent
	if hints != nil {
		if hints.UserAgent != "" {
			ua = hints.UserAgent
		}
		if hints.Referrer != "" {
			req.Header.Set("Referer", hints.Referrer)
		}
		if hints.HTTPOrigin != "" {
			req.Header.Set("Origin", hints.HTTPOrigin)
		}
	}
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
}

func is2xx(status int) bool { return status >= 200 && status <= 299 }
