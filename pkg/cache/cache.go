// Package cache provides the byte-level response cache that fronts every
// network fetch in depscope.
//
// A [Cache] stores opaque payloads under string keys with a time-to-live.
// Entries past their expiry are reported as misses and never returned.
// Backends:
//   - [FileCache]: one file per key under a directory (the CLI default)
//   - [NullCache]: stores nothing (--no-cache)
//   - [RedisCache] and [MongoCache]: shared caches for the HTTP server
//
// [WriteOnly] turns any backend into a refresh cache: reads always miss but
// fresh responses are still stored. [Scoped] prefixes keys so several tools
// can share one Redis or Mongo instance.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value store for raw response bodies.
//
// Implementations must be safe for concurrent use. A Get that finds an
// expired or unreadable entry reports a miss rather than an error.
type Cache interface {
	// Get returns the payload stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Key joins a namespace and a key into a single cache key.
//
//	Key("crates", "serde") == "crates:serde"
func Key(namespace, key string) string {
	return namespace + ":" + key
}
