package cache

import (
	"context"
	"time"
)

// WriteOnlyCache always misses on Get but forwards writes to the inner cache.
// It implements --refresh: every request goes to the network and the fresh
// response replaces whatever was cached before.
type WriteOnlyCache struct {
	inner Cache
}

// WriteOnly wraps inner so that reads always miss.
func WriteOnly(inner Cache) Cache {
	return &WriteOnlyCache{inner: inner}
}

// Get always returns a cache miss.
func (c *WriteOnlyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set stores data in the inner cache.
func (c *WriteOnlyCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, key, data, ttl)
}

// Delete removes key from the inner cache.
func (c *WriteOnlyCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Close closes the inner cache.
func (c *WriteOnlyCache) Close() error {
	return c.inner.Close()
}

var _ Cache = (*WriteOnlyCache)(nil)
