package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/metrics"
	"github.com/voyagen/lulutv/internal/models"
)

// Snapshot is one parsed channel set. It is never mutated after Load returns it.
type Snapshot struct {
	Records  []models.ChannelRecord
	LoadedAt time.Time
}

// ChannelCache holds the last parsed channel index and refreshes it when it
// is older than ttl. At most one refresh runs at a time.
type ChannelCache struct {
	src fetcher.Source
	url string
	ttl time.Duration
	now func() time.Time

	refresh    sync.Mutex
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
}

func NewChannelCache(src fetcher.Source, indexURL string, ttl time.Duration) *ChannelCache {
	return &ChannelCache{src: src, url: indexURL, ttl: ttl, now: time.Now}
}

// Load returns the cached snapshot while it is fresh, the identical pointer
// on every call. Otherwise, or when force is set, it fetches and parses the
// index and swaps the snapshot in. Callers that queue behind a running
// refresh get its result instead of fetching again. On failure the previous
// snapshot stays in place and the error wraps fetcher.ErrUpstream.
func (c *ChannelCache) Load(ctx context.Context, force bool) (*Snapshot, error) {
	gen := c.generation.Load()
	if !force {
		if s := c.current.Load(); s != nil && c.fresh(s) {
			return s, nil
		}
	}

	c.refresh.Lock()
	defer c.refresh.Unlock()

	if s := c.current.Load(); s != nil && c.fresh(s) && (!force || c.generation.Load() != gen) {
		return s, nil
	}

	logger := log.WithComponentFromContext(ctx, "channels")
	if force {
		ctx = fetcher.WithoutCache(ctx)
	}
	text, err := c.src.Fetch(ctx, c.url)
	if err != nil {
		if !errors.Is(err, fetcher.ErrUpstream) {
			err = fmt.Errorf("%w: %v", fetcher.ErrUpstream, err)
		}
		logger.Warn().Err(err).Str("event", "channels.load_failed").Str("url", c.url).Msg("channel index fetch failed")
		return nil, fmt.Errorf("load channel index: %w", err)
	}

	snap := &Snapshot{Records: fetcher.Parse(text), LoadedAt: c.now()}
	c.current.Store(snap)
	c.generation.Add(1)
	metrics.SetChannelsLoaded(len(snap.Records))
	logger.Info().
		Str("event", "channels.loaded").
		Int("channels", len(snap.Records)).
		Bool("forced", force).
		Msg("channel index loaded")
	return snap, nil
}

// Current returns the last good snapshot, or nil if none was ever loaded.
func (c *ChannelCache) Current() *Snapshot {
	return c.current.Load()
}

func (c *ChannelCache) fresh(s *Snapshot) bool {
	return c.now().Sub(s.LoadedAt) < c.ttl
}
