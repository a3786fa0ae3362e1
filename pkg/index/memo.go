package index

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultMemoSize is the number of decoded repository databases a [Memo]
// keeps in memory.
const DefaultMemoSize = 32

// Memo keeps recently decoded package lists in memory, keyed by the URL they
// were decoded from. Concurrent loads of the same key share one decode.
//
// The byte-level cache already avoids the network round trip; Memo avoids
// decompressing and parsing a multi-megabyte database on every Fetch when a
// backend serves many lookups in one process (the HTTP server, the outdated
// differ).
type Memo struct {
	lru   *lru.Cache[string, []PackageMeta]
	group singleflight.Group
}

// NewMemo creates a memo holding up to size entries.
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	c, err := lru.New[string, []PackageMeta](size)
	if err != nil {
		panic(err) // only fails for size <= 0
	}
	return &Memo{lru: c}
}

// Get returns the memoized value for key or runs load and remembers its
// result. Failed loads are not remembered.
func (m *Memo) Get(ctx context.Context, key string, load func(ctx context.Context) ([]PackageMeta, error)) ([]PackageMeta, error) {
	if m == nil {
		return load(ctx)
	}
	if v, ok := m.lru.Get(key); ok {
		return v, nil
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.lru.Get(key); ok {
			return v, nil
		}
		pkgs, err := load(ctx)
		if err != nil {
			return nil, err
		}
		m.lru.Add(key, pkgs)
		return pkgs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]PackageMeta), nil
}

// Purge drops every memoized entry.
func (m *Memo) Purge() {
	if m != nil {
		m.lru.Purge()
	}
}

// Len reports the number of memoized entries.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return m.lru.Len()
}
