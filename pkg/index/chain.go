package index

import (
	"context"
	"strings"

	"github.com/matzehuels/depscope/pkg/errors"
)

// Chain is a PackageIndex that consults several indexes in order.
//
// Fetch and FetchVersions return the first answer; a NOT_FOUND from one
// member moves on to the next, any other error is remembered and reported
// only when no member answers. Search merges the results of every member,
// skipping members that fail. FetchAll is supported only when every member
// supports it.
type Chain struct {
	name    string
	members []PackageIndex
}

// NewChain builds a chain named name over members, consulted in order.
func NewChain(name string, members ...PackageIndex) *Chain {
	return &Chain{name: name, members: members}
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Members returns the underlying indexes in lookup order.
func (c *Chain) Members() []PackageIndex { return c.members }

// Fetch returns the first member's answer for name.
func (c *Chain) Fetch(ctx context.Context, name string) (*PackageMeta, error) {
	var lastErr error
	for _, m := range c.members {
		meta, err := m.Fetch(ctx, name)
		if err == nil {
			return meta, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, errors.ErrCodeNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotFound(c.name, name)
}

// FetchVersions returns the first member's version list for name.
func (c *Chain) FetchVersions(ctx context.Context, name string) ([]VersionMeta, error) {
	var lastErr error
	for _, m := range c.members {
		vs, err := m.FetchVersions(ctx, name)
		if err == nil {
			return vs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, errors.ErrCodeNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotFound(c.name, name)
}

// Search merges member results, dropping later duplicates by name.
// It fails only if every member fails.
func (c *Chain) Search(ctx context.Context, query string) ([]PackageMeta, error) {
	var (
		out     []PackageMeta
		seen    = make(map[string]bool)
		lastErr error
		ok      bool
	)
	for _, m := range c.members {
		res, err := m.Search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		ok = true
		for _, p := range res {
			key := strings.ToLower(p.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	if !ok && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// FetchAll concatenates every member's catalog.
func (c *Chain) FetchAll(ctx context.Context) ([]PackageMeta, error) {
	if !c.SupportsFetchAll() {
		return nil, ErrFetchAllUnsupported(c.name)
	}
	var out []PackageMeta
	for _, m := range c.members {
		pkgs, err := m.FetchAll(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, pkgs...)
	}
	return out, nil
}

// SupportsFetchAll reports whether every member can enumerate its catalog.
func (c *Chain) SupportsFetchAll() bool {
	if len(c.members) == 0 {
		return false
	}
	for _, m := range c.members {
		if !m.SupportsFetchAll() {
			return false
		}
	}
	return true
}

var _ PackageIndex = (*Chain)(nil)
