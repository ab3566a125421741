package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voyagen/lulutv/internal/cache"
	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/models"
)

type fakeLoader struct {
	mu      sync.Mutex
	snap    *cache.Snapshot
	current *cache.Snapshot
	err     error
	forced  atomic.Int32
}

func newFakeLoader(records ...models.ChannelRecord) *fakeLoader {
	s := &cache.Snapshot{Records: records, LoadedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	return &fakeLoader{snap: s, current: s}
}

func (l *fakeLoader) Load(_ context.Context, force bool) (*cache.Snapshot, error) {
	if force {
		l.forced.Add(1)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.snap, nil
}

func (l *fakeLoader) Current() *cache.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// fakeProber answers from fn; when block is set every probe waits on it.
type fakeProber struct {
	block    chan struct{}
	fn       func(rec models.ChannelRecord) (models.ValidationResult, error)
	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32

	mu   sync.Mutex
	seen []string
}

func (p *fakeProber) ProbeChannel(ctx context.Context, rec models.ChannelRecord) (models.ValidationResult, error) {
	p.calls.Add(1)
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	p.mu.Lock()
	p.seen = append(p.seen, rec.URL)
	p.mu.Unlock()

	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return models.ValidationResult{CheckedAt: time.Now(), Detail: "fetch error: " + ctx.Err().Error()}, nil
		}
	}
	if p.fn != nil {
		return p.fn(rec)
	}
	return models.ValidationResult{Working: true, CheckedAt: time.Now()}, nil
}

func (p *fakeProber) probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

type mapSource struct {
	mu       sync.Mutex
	texts    map[string]string
	calls    map[string]int
	uncached map[string]int
}

func newMapSource(texts map[string]string) *mapSource {
	return &mapSource{texts: texts, calls: map[string]int{}, uncached: map[string]int{}}
}

func (s *mapSource) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[url]++
	if fetcher.CacheBypassed(ctx) {
		s.uncached[url]++
	}
	text, ok := s.texts[url]
	if !ok {
		return "", fmt.Errorf("%w: %s: HTTP 404", fetcher.ErrUpstream, url)
	}
	return text, nil
}

func (s *mapSource) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func (s *mapSource) uncachedCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uncached[url]
}

func records(n int) []models.ChannelRecord {
	out := make([]models.ChannelRecord, n)
	for i := range out {
		out[i] = models.ChannelRecord{Name: fmt.Sprintf("Channel %d", i), URL: fmt.Sprintf("http://s/%d.m3u8", i)}
	}
	return out
}
