package pacman

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depscope/pkg/archive"
	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/integrations"
)

// Config configures a [Backend].
type Config struct {
	// Name is the index name, also used as the cache namespace.
	Name string
	// Repos are consulted in order.
	Repos []Repo
	// ArchwebURL enables the archweb package search fallback.
	ArchwebURL string
	// AURURL enables the AUR RPC fallback.
	AURURL string
	// Logger receives warnings for repositories that fail to load.
	Logger *log.Logger
	// Memo holds decoded databases. Nil allocates a private one.
	Memo *index.Memo
}

// Backend is a Package Index over a set of pacman repository databases.
type Backend struct {
	*integrations.Client
	name       string
	repos      []Repo
	archwebURL string
	aurURL     string
	logger     *log.Logger
	memo       *index.Memo
}

// NewBackend creates a backend from cfg.
func NewBackend(backend cache.Cache, cacheTTL time.Duration, cfg Config) *Backend {
	memo := cfg.Memo
	if memo == nil {
		memo = index.NewMemo(index.DefaultMemoSize)
	}
	return &Backend{
		Client:     integrations.NewClient(backend, cfg.Name, cacheTTL, integrations.DefaultHeaders()),
		name:       cfg.Name,
		repos:      cfg.Repos,
		archwebURL: cfg.ArchwebURL,
		aurURL:     cfg.AURURL,
		logger:     cfg.Logger,
		memo:       memo,
	}
}

// Name returns the configured index name.
func (b *Backend) Name() string { return b.name }

// Repos returns the configured repositories in lookup order.
func (b *Backend) Repos() []Repo { return b.repos }

// FetchAll loads every configured repository in parallel and returns their
// packages in repository order. Repositories that fail are logged and
// skipped.
func (b *Backend) FetchAll(ctx context.Context) ([]index.PackageMeta, error) {
	sources := make([]index.Source, 0, len(b.repos))
	for _, r := range b.repos {
		sources = append(sources, index.Source{
			Name: r.Name,
			Load: func(ctx context.Context) ([]index.PackageMeta, error) {
				return b.loadRepo(ctx, r)
			},
		})
	}
	return index.Load(ctx, b.logger, sources)
}

// SupportsFetchAll returns true.
func (b *Backend) SupportsFetchAll() bool { return true }

// Fetch returns name from the first repository that carries it, then tries
// archweb and the AUR when configured.
func (b *Backend) Fetch(ctx context.Context, name string) (*index.PackageMeta, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}

	all, err := b.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if meta, ok := index.Find(all, name); ok {
		return meta, nil
	}

	for _, fallback := range b.fallbacks() {
		meta, err := fallback.fetch(ctx, name)
		if err == nil {
			return meta, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, errors.ErrCodeNotFound) {
			b.log().Warn("package lookup failed", "source", fallback.name, "package", name, "err", err)
		}
	}
	return nil, index.ErrNotFound(b.name, name)
}

// FetchVersions lists the version each repository carries, in repository
// order. When no repository has the package, the fallback sources are asked
// for their single current version.
func (b *Backend) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}

	all, err := b.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if found := index.FindAll(all, name); len(found) > 0 {
		return index.Versions(found), nil
	}

	meta, err := b.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return []index.VersionMeta{{Version: meta.Version, Released: meta.Published}}, nil
}

// Search filters the repository databases by name and description. When the
// AUR is configured its matches are appended after the repository matches.
func (b *Backend) Search(ctx context.Context, query string) ([]index.PackageMeta, error) {
	all, err := b.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	out := index.Filter(all, query)

	if b.aurURL == "" {
		return out, nil
	}
	aur, err := b.searchAUR(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.log().Warn("aur search failed", "query", query, "err", err)
		return out, nil
	}

	seen := make(map[string]bool, len(out))
	for _, p := range out {
		seen[p.Name] = true
	}
	for _, p := range aur {
		if !seen[p.Name] {
			out = append(out, p)
		}
	}
	return out, nil
}

// loadRepo downloads (through the byte cache) and decodes one database.
func (b *Backend) loadRepo(ctx context.Context, r Repo) ([]index.PackageMeta, error) {
	url := r.DBURL()
	return b.memo.Get(ctx, b.name+"|"+url, func(ctx context.Context) ([]index.PackageMeta, error) {
		data, _, err := b.FetchWithCache(ctx, "db/"+url, url)
		if err != nil {
			return nil, err
		}
		return archive.ParseRepoDB(data, r.Name, r.BaseURL)
	})
}

type fallback struct {
	name  string
	fetch func(ctx context.Context, name string) (*index.PackageMeta, error)
}

func (b *Backend) fallbacks() []fallback {
	var out []fallback
	if b.archwebURL != "" {
		out = append(out, fallback{name: "archweb", fetch: b.fetchArchweb})
	}
	if b.aurURL != "" {
		out = append(out, fallback{name: "aur", fetch: b.fetchAUR})
	}
	return out
}

func (b *Backend) log() *log.Logger {
	if b.logger == nil {
		return log.Default()
	}
	return b.logger
}

var _ index.PackageIndex = (*Backend)(nil)
