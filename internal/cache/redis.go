package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "lulutv:"

// Redis wraps a go-redis client with JSON helpers and the service key namespace.
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0"). Call Ping to verify
// the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(c *redis.Client) *Redis {
	return &Redis{client: c}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Key joins parts under KeyPrefix: Key("taxonomy", "languages") -> "lulutv:taxonomy:languages".
func Key(parts ...string) string {
	return KeyPrefix + strings.Join(parts, ":")
}

// GetJSON fetches key and decodes it. A missing key returns redis.Nil.
func GetJSON[T any](ctx context.Context, r *Redis, key string) (T, error) {
	var v T
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("cache unmarshal %s: %w", key, err)
	}
	return v, nil
}

// SetJSON encodes v and stores it under key. A zero ttl means no expiry.
func SetJSON(ctx context.Context, r *Redis, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Del removes keys; missing keys are not an error.
func Del(ctx context.Context, r *Redis, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
