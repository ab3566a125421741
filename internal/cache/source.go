package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/metrics"
)

// CachedSource is a fetcher.Source that keeps fetched manifest text in Redis
// for ttl. Redis failures fall through to the inner source. A context marked
// with fetcher.WithoutCache always reaches the inner source.
type CachedSource struct {
	inner fetcher.Source
	r     *Redis
	ttl   time.Duration
}

func NewCachedSource(inner fetcher.Source, r *Redis, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, r: r, ttl: ttl}
}

func (s *CachedSource) Fetch(ctx context.Context, url string) (string, error) {
	logger := log.WithComponentFromContext(ctx, "cache")
	key := manifestKey(url)

	if !fetcher.CacheBypassed(ctx) {
		text, err := s.r.client.Get(ctx, key).Result()
		switch {
		case err == nil:
			metrics.IncManifestFetch("cache_hit")
			return text, nil
		case !errors.Is(err, redis.Nil):
			logger.Warn().Err(err).Str("event", "cache.get_failed").Str("key", key).Msg("manifest cache read failed")
		}
	}

	text, err := s.inner.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if err := s.r.client.Set(ctx, key, text, s.ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("event", "cache.set_failed").Str("key", key).Msg("manifest cache write failed")
	}
	return text, nil
}

func manifestKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return Key("manifest", hex.EncodeToString(sum[:16]))
}
