package index

import (
	"context"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depscope/pkg/observability"
)

// Source is one unit of work for [Load]: typically a single repository
// database of a distribution mirror.
type Source struct {
	// Name identifies the source in logs, e.g. "extra" or "tumbleweed-oss".
	Name string
	// Load fetches and decodes the source.
	Load func(ctx context.Context) ([]PackageMeta, error)
}

// Loader runs sources in parallel and merges what succeeds.
type Loader struct {
	// Logger receives one warning per failed source. Nil uses log.Default().
	Logger *log.Logger
	// Concurrency bounds the worker pool. Zero uses runtime.NumCPU().
	Concurrency int
}

// Load runs every source on a bounded worker pool and concatenates the
// packages of the sources that succeeded, in source order.
//
// A failing source is logged at warn level and excluded; it never fails the
// call. The only error Load returns is the context's, when ctx is cancelled
// before all sources finish.
func (l Loader) Load(ctx context.Context, sources []Source) ([]PackageMeta, error) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	limit := l.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([][]PackageMeta, len(sources))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, src := range sources {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			observability.Loader().OnRepoStart(ctx, src.Name)
			start := time.Now()

			pkgs, err := src.Load(ctx)
			observability.Loader().OnRepoComplete(ctx, src.Name, len(pkgs), time.Since(start), err)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("repository load failed", "repo", src.Name, "err", err)
				}
				return nil
			}
			logger.Debug("repository loaded", "repo", src.Name, "packages", len(pkgs))
			results[i] = pkgs
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]PackageMeta, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// Load is shorthand for Loader{Logger: logger}.Load(ctx, sources).
func Load(ctx context.Context, logger *log.Logger, sources []Source) ([]PackageMeta, error) {
	return Loader{Logger: logger}.Load(ctx, sources)
}
