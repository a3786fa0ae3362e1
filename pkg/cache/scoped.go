package cache

import (
	"context"
	"time"
)

// ScopedCache wraps a Cache and prepends a prefix to every key.
// This is useful when a Redis or Mongo instance is shared with other
// applications and depscope entries need their own namespace.
//
// Example usage:
//
//	shared, _ := cache.Open(ctx, "redis://cache:6379/0", "")
//	c := cache.Scoped(shared, "depscope:")
type ScopedCache struct {
	inner  Cache
	prefix string
}

// Scoped creates a cache whose keys are all prefixed with prefix.
// An empty prefix returns inner unchanged.
func Scoped(inner Cache, prefix string) Cache {
	if prefix == "" {
		return inner
	}
	return &ScopedCache{inner: inner, prefix: prefix}
}

// Get retrieves the prefixed key from the inner cache.
func (c *ScopedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

// Set stores the prefixed key in the inner cache.
func (c *ScopedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

// Delete removes the prefixed key from the inner cache.
func (c *ScopedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close closes the inner cache.
func (c *ScopedCache) Close() error {
	return c.inner.Close()
}

var _ Cache = (*ScopedCache)(nil)
