package cache

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/config"
	goCache "github.com/patrickmn/go-cache"
)

const (
	defaultTTL      = 30 * time.Second
	cleanupInterval = 5 * time.Minute
)

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache.
// A disabled cache misses on every read and ignores every write.
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

// NewInMemoryCache creates the process local cache described by the ledger config section
func NewInMemoryCache(cfg *config.Configuration) Cache {
	ttl := cfg.Ledger.BalanceCacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &InMemoryCache{
		cache:   goCache.New(ttl, cleanupInterval),
		enabled: cfg.Ledger.BalanceCacheEnabled,
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) Incr(_ context.Context, key string) int64 {
	if !c.enabled {
		return 0
	}
	// Add is a no-op once the counter exists
	_ = c.cache.Add(key, int64(0), goCache.NoExpiration)
	n, err := c.cache.IncrementInt64(key, 1)
	if err != nil {
		// the counter was overwritten with another type, start over
		c.cache.Set(key, int64(1), goCache.NoExpiration)
		return 1
	}
	return n
}
