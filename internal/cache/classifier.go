package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jerometseng/requestlog/internal/docpath"
)

// CachedClassifier puts a verdict cache in front of a docpath.Classifier.
// The classifier can be swapped at runtime; swapping clears the cache and no
// verdict computed by the previous classifier is stored afterwards.
type CachedClassifier struct {
	classifier atomic.Pointer[docpath.Classifier]
	cache      Cache
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64

	// swapMu orders cache writes against Swap; generation changes on every Swap
	swapMu     sync.RWMutex
	generation atomic.Uint64
}

// NewCachedClassifier wraps c. A nil cache disables memoization.
func NewCachedClassifier(c *docpath.Classifier, cache Cache, ttl time.Duration) *CachedClassifier {
	if c == nil {
		c = docpath.Default()
	}
	cc := &CachedClassifier{
		cache: cache,
		ttl:   ttl,
	}
	cc.classifier.Store(c)
	return cc
}

// IsDocumentationResource classifies path, consulting the cache first
func (cc *CachedClassifier) IsDocumentationResource(path string) bool {
	gen := cc.generation.Load()
	c := cc.classifier.Load()
	if cc.cache == nil || path == "" {
		return c.IsDocumentationResource(path)
	}

	key := Key(path)
	if verdict, found := cc.cache.Get(key); found {
		cc.hits.Add(1)
		return verdict
	}

	cc.misses.Add(1)
	verdict := c.IsDocumentationResource(path)

	cc.swapMu.RLock()
	if cc.generation.Load() == gen {
		cc.cache.Set(key, verdict, cc.ttl)
	}
	cc.swapMu.RUnlock()

	return verdict
}

// Swap replaces the underlying classifier and drops cached verdicts
func (cc *CachedClassifier) Swap(c *docpath.Classifier) {
	if c == nil {
		return
	}

	cc.swapMu.Lock()
	defer cc.swapMu.Unlock()

	cc.classifier.Store(c)
	cc.generation.Add(1)
	if cc.cache != nil {
		cc.cache.Clear()
	}
}

// Classifier returns the current underlying classifier
func (cc *CachedClassifier) Classifier() *docpath.Classifier {
	return cc.classifier.Load()
}

// Stats returns cache hit and miss counts
func (cc *CachedClassifier) Stats() (hits, misses int64) {
	return cc.hits.Load(), cc.misses.Load()
}
