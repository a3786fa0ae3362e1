package deps

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/depscope/pkg/index"
)

const workers = 20

// Crawl builds the registry view of a package's dependencies: it fetches
// root from idx, then every dependency it names, breadth first on a pool of
// workers, until the graph is closed or opts.MaxNodes packages were fetched.
//
// The returned graph is keyed by package name, each entry holding the latest
// version the index reports. Materialize it with [LockGraph.Materialize].
// Only a failure to fetch root is returned; other failures are logged and
// leave that package as a leaf.
func Crawl(ctx context.Context, idx index.PackageIndex, root string, opts Options) (LockGraph, error) {
	c := &crawler{
		ctx:     ctx,
		opts:    opts.WithDefaults(),
		fetch:   idx.Fetch,
		g:       make(LockGraph),
		visited: make(map[string]bool),
		jobs:    make(chan job, workers*2),
		results: make(chan result, workers*2),
		done:    make(chan struct{}),
	}
	return c.run(root)
}

type crawler struct {
	ctx   context.Context
	opts  Options
	fetch func(context.Context, string) (*index.PackageMeta, error)

	g LockGraph

	jobs    chan job
	results chan result
	done    chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	visited   map[string]bool
	pending   int64
	nodeCount int32
}

type job struct {
	name  string
	depth int
}

type result struct {
	job
	pkg *index.PackageMeta
	err error
}

func (c *crawler) run(root string) (LockGraph, error) {
	for range workers {
		c.wg.Add(1)
		go c.worker()
	}

	c.enqueue(job{name: root})
	err := c.collect(root)
	close(c.done)
	c.wg.Wait()
	if err != nil {
		return nil, err
	}
	c.fillLeaves()
	return c.g, nil
}

// fillLeaves adds an entry for every dependency that was never fetched, so
// registry names such as "npm:@types/node" are not split as lock keys.
func (c *crawler) fillLeaves() {
	for _, e := range c.g {
		for _, dep := range e.Deps {
			if _, ok := c.g[dep]; !ok {
				c.g[dep] = LockEntry{Name: dep}
			}
		}
	}
}

func (c *crawler) worker() {
	defer c.wg.Done()
	for {
		var j job
		select {
		case j = <-c.jobs:
		case <-c.done:
			return
		}
		r := result{job: j}
		if r.err = c.ctx.Err(); r.err == nil {
			r.pkg, r.err = c.fetch(c.ctx, j.name)
		}
		select {
		case c.results <- r:
		case <-c.done:
			return
		}
	}
}

func (c *crawler) enqueue(j job) {
	c.mu.Lock()
	if c.visited[j.name] {
		c.mu.Unlock()
		return
	}
	c.visited[j.name] = true
	c.mu.Unlock()

	atomic.AddInt64(&c.pending, 1)
	go func() {
		select {
		case c.jobs <- j:
		case <-c.done:
		}
	}()
}

// collect is the only goroutine writing c.g.
func (c *crawler) collect(root string) error {
	for {
		select {
		case r := <-c.results:
			if err := c.handle(r, root); err != nil {
				return err
			}
			if atomic.AddInt64(&c.pending, -1) == 0 {
				return nil
			}
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}

func (c *crawler) handle(r result, root string) error {
	if r.err != nil {
		if r.name == root {
			return r.err
		}
		c.opts.Logger.Warn("fetch failed", "package", r.name, "err", r.err)
		return nil
	}

	count := atomic.AddInt32(&c.nodeCount, 1)
	entry := LockEntry{Name: r.pkg.Name, Version: r.pkg.Version, Deps: r.pkg.Dependencies}
	c.g[r.name] = entry

	if r.depth+1 >= c.opts.MaxDepth {
		return nil
	}
	for _, dep := range r.pkg.Dependencies {
		if int(count) >= c.opts.MaxNodes {
			break
		}
		c.enqueue(job{name: dep, depth: r.depth + 1})
	}
	return nil
}
