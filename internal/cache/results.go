package cache

import (
	"sync"
	"time"

	"github.com/voyagen/lulutv/internal/models"
)

// ResultCache maps stream URL to its last validation result. Entries are
// replaced whole and never evicted.
type ResultCache struct {
	mu      sync.RWMutex
	results map[string]models.ValidationResult
	now     func() time.Time
}

func NewResultCache() *ResultCache {
	return &ResultCache{
		results: make(map[string]models.ValidationResult),
		now:     time.Now,
	}
}

func (c *ResultCache) Get(url string) (models.ValidationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[url]
	return r, ok
}

func (c *ResultCache) Put(url string, r models.ValidationResult) {
	c.mu.Lock()
	c.results[url] = r
	c.mu.Unlock()
}

// IsStale reports whether url has no result or one checked at least ttl ago.
func (c *ResultCache) IsStale(url string, ttl time.Duration) bool {
	r, ok := c.Get(url)
	if !ok {
		return true
	}
	return c.now().Sub(r.CheckedAt) >= ttl
}

func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// WorkingCount is the number of URLs whose last result was working.
func (c *ResultCache) WorkingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, r := range c.results {
		if r.Working {
			n++
		}
	}
	return n
}
