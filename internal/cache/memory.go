package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements in-memory expiring caching
type MemoryCache struct {
	cache      *gocache.Cache
	maxEntries int
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a verdict from the cache
func (c *MemoryCache) Get(key string) (bool, bool) {
	if val, found := c.cache.Get(key); found {
		verdict, ok := val.(bool)
		return verdict, ok
	}
	return false, false
}

// WithMaxEntries caps the number of stored verdicts; 0 means unbounded
func (c *MemoryCache) WithMaxEntries(n int) *MemoryCache {
	if n < 0 {
		n = 0
	}
	c.maxEntries = n
	return c
}

// Set stores a verdict; a zero ttl uses the cache default.
// When the cache is full, expired entries are swept and the verdict is
// dropped if there is still no room. Concurrent writers may overshoot the
// cap by at most one entry each.
func (c *MemoryCache) Set(key string, verdict bool, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	if c.maxEntries > 0 && c.cache.ItemCount() >= c.maxEntries {
		if _, found := c.cache.Get(key); !found {
			c.cache.DeleteExpired()
			if c.cache.ItemCount() >= c.maxEntries {
				return
			}
		}
	}
	c.cache.Set(key, verdict, ttl)
}

// Delete removes a verdict from the cache
func (c *MemoryCache) Delete(key string) {
	c.cache.Delete(key)
}

// Clear removes all verdicts
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}

// Len returns the number of cached entries, including expired ones not yet cleaned up
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
