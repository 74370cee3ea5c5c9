// Package cache memoizes documentation-path verdicts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// maxRawKey is the longest path stored verbatim; longer paths are hashed
const maxRawKey = 256

// Cache defines the interface for verdict caching
type Cache interface {
	Get(key string) (verdict bool, found bool)
	Set(key string, verdict bool, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// Key generates a cache key from a request path
func Key(path string) string {
	if len(path) <= maxRawKey {
		return "requestlog:v1:" + path
	}
	hash := sha256.Sum256([]byte(path))
	return "requestlog:v1:sha256:" + hex.EncodeToString(hash[:])
}
