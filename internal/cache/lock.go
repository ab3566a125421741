package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagen/lulutv/internal/log"
)

// ErrLocked is returned by TryLock when another holder owns the key.
var ErrLocked = errors.New("lock is already held")

// ErrLockLost is returned by Extend when the lock expired or changed hands.
var ErrLockLost = errors.New("lock no longer held")

var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// Lock is a held SET NX lock. Only the holder's token can release or extend it.
type Lock struct {
	r     *Redis
	key   string
	token string
}

// TryLock takes key for ttl, or returns ErrLocked.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (*Lock, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{r: r, key: key, token: token}, nil
}

// Extend resets the lock's ttl if it is still held.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.r.client, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("cache extend %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// Release deletes the key if it is still ours. It ignores the caller's
// cancellation so a shutdown still frees the lock.
func (l *Lock) Release(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return releaseScript.Run(ctx, l.r.client, []string{l.key}, l.token).Err()
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// JobLock guards a long-running job across replicas. While held, its lease
// is extended every ttl/3 so a job may outlive ttl; a crashed holder frees
// the key after at most ttl.
type JobLock struct {
	r   *Redis
	key string
	ttl time.Duration
}

func NewJobLock(r *Redis, key string, ttl time.Duration) *JobLock {
	return &JobLock{r: r, key: key, ttl: ttl}
}

// TryAcquire takes the lock or returns ErrLocked. The returned release func
// stops the lease renewal and frees the key; it is safe to call twice.
func (j *JobLock) TryAcquire(ctx context.Context) (func(), error) {
	l, err := TryLock(ctx, j.r, j.key, j.ttl)
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(j.ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := l.Extend(context.Background(), j.ttl); err != nil {
					logger := log.WithComponent("cache")
					logger.Warn().Err(err).Str("event", "lock.extend_failed").Str("key", j.key).Msg("job lock renewal failed")
					if errors.Is(err, ErrLockLost) {
						return
					}
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			_ = l.Release(context.Background())
		})
	}, nil
}
