package store

import (
	"context"
	"time"

	"github.com/voyagen/lulutv/internal/cache"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/models"
)

const ttlSnapshot = time.Hour

// CachedStore serves Load from Redis when possible and invalidates on Save.
// Redis errors are logged and never fail the call.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

func (c *CachedStore) Load(ctx context.Context, kind string) (*models.Document, error) {
	key := snapshotKey(kind)
	if v, err := cache.GetJSON[models.Document](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	doc, err := c.inner.Load(ctx, kind)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.cache, key, doc, ttlSnapshot); err != nil {
		logger := log.WithComponentFromContext(ctx, "store")
		logger.Warn().Err(err).Str("event", "cache.set_failed").Str("key", key).Msg("snapshot cache write failed")
	}
	return doc, nil
}

func (c *CachedStore) Save(ctx context.Context, kind string, doc *models.Document) error {
	if err := c.inner.Save(ctx, kind, doc); err != nil {
		return err
	}
	if err := cache.Del(ctx, c.cache, snapshotKey(kind)); err != nil {
		logger := log.WithComponentFromContext(ctx, "store")
		logger.Warn().Err(err).Str("event", "cache.invalidate_failed").Str("kind", kind).Msg("snapshot cache invalidation failed")
	}
	return nil
}

func snapshotKey(kind string) string {
	return cache.Key("taxonomy", kind)
}
