package void

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depscope/pkg/archive"
	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/integrations"
)

// Name is the registry identifier used by the index registry and cache keys.
const Name = "void"

// DefaultMirror is the Void Linux default repository mirror.
const DefaultMirror = "https://repo-default.voidlinux.org"

// Libc selects the C library flavour of the repositories.
type Libc string

const (
	Glibc Libc = "glibc"
	Musl  Libc = "musl"
)

var allRepos = []string{"main", "nonfree", "multilib", "multilib-nonfree"}

// All returns every repository name.
func All() []string { return slices.Clone(allRepos) }

// Stable returns the repositories available on every architecture.
func Stable() []string { return []string{"main", "nonfree"} }

// WithRepos validates repository names.
func WithRepos(names ...string) ([]string, error) {
	for _, n := range names {
		if !slices.Contains(allRepos, n) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown Void repository %q", n).
				WithHint("known repositories: %s", strings.Join(allRepos, ", "))
		}
	}
	return slices.Clone(names), nil
}

// Repo is one XBPS repository.
type Repo struct {
	Name string
	// URL is the repository directory holding the packages.
	URL string
	// IndexURL is the repodata archive.
	IndexURL string
}

// Options configures a [Client].
type Options struct {
	// Repos selects repositories by name. Empty means Stable().
	Repos []string
	// Arch is the machine architecture. Empty means x86_64.
	Arch string
	// Libc selects glibc or musl repositories. Empty means glibc.
	Libc   Libc
	Mirror string
	Logger *log.Logger
	Memo   *index.Memo
}

// Repos resolves repository names for the architecture and libc in opts.
func Repos(opts Options) ([]Repo, error) {
	names := opts.Repos
	if len(names) == 0 {
		names = Stable()
	}
	names, err := WithRepos(names...)
	if err != nil {
		return nil, err
	}

	arch := opts.Arch
	if arch == "" {
		arch = "x86_64"
	}
	libc := opts.Libc
	if libc == "" {
		libc = Glibc
	}
	if libc != Glibc && libc != Musl {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown libc %q", libc).WithHint("use glibc or musl")
	}
	mirror := strings.TrimRight(opts.Mirror, "/")
	if mirror == "" {
		mirror = DefaultMirror
	}

	// <mirror>/current[/aarch64][/musl]
	base := mirror + "/current"
	if strings.HasPrefix(arch, "aarch64") {
		base += "/aarch64"
	}
	repodata := arch + "-repodata"
	if libc == Musl {
		base += "/musl"
		repodata = arch + "-musl-repodata"
	}

	out := make([]Repo, 0, len(names))
	for _, n := range names {
		dir := base
		switch n {
		case "nonfree":
			dir += "/nonfree"
		case "multilib", "multilib-nonfree":
			if arch != "x86_64" || libc != Glibc {
				return nil, errors.New(errors.ErrCodeInvalidInput, "repository %q only exists for x86_64 glibc", n)
			}
			dir += "/multilib"
			if n == "multilib-nonfree" {
				dir += "/nonfree"
			}
		}
		out = append(out, Repo{Name: n, URL: dir, IndexURL: dir + "/" + repodata})
	}
	return out, nil
}

// Client is a Package Index over Void Linux repositories.
type Client struct {
	*integrations.Client
	repos  []Repo
	logger *log.Logger
	memo   *index.Memo
}

// NewClient creates a Void Linux client.
func NewClient(backend cache.Cache, cacheTTL time.Duration, opts Options) (*Client, error) {
	repos, err := Repos(opts)
	if err != nil {
		return nil, err
	}
	memo := opts.Memo
	if memo == nil {
		memo = index.NewMemo(index.DefaultMemoSize)
	}
	return &Client{
		Client: integrations.NewClient(backend, Name, cacheTTL, integrations.DefaultHeaders()),
		repos:  repos,
		logger: opts.Logger,
		memo:   memo,
	}, nil
}

// Name returns "void".
func (c *Client) Name() string { return Name }

// Repos returns the configured repositories.
func (c *Client) Repos() []Repo { return c.repos }

// FetchAll loads every configured repository in parallel.
func (c *Client) FetchAll(ctx context.Context) ([]index.PackageMeta, error) {
	sources := make([]index.Source, 0, len(c.repos))
	for _, r := range c.repos {
		sources = append(sources, index.Source{
			Name: r.Name,
			Load: func(ctx context.Context) ([]index.PackageMeta, error) {
				return c.memo.Get(ctx, Name+"|"+r.IndexURL, func(ctx context.Context) ([]index.PackageMeta, error) {
					data, _, err := c.FetchWithCache(ctx, "repodata/"+r.IndexURL, r.IndexURL)
					if err != nil {
						return nil, err
					}
					return archive.ParseXBPSIndex(data, r.Name, r.URL)
				})
			},
		})
	}
	return index.Load(ctx, c.logger, sources)
}

// SupportsFetchAll returns true.
func (c *Client) SupportsFetchAll() bool { return true }

// Fetch returns name from the first repository that carries it.
func (c *Client) Fetch(ctx context.Context, name string) (*index.PackageMeta, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	all, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if meta, ok := index.Find(all, name); ok {
		return meta, nil
	}
	return nil, index.ErrNotFound(Name, name)
}

// FetchVersions lists the distinct versions across repositories.
func (c *Client) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	all, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	found := index.FindAll(all, name)
	if len(found) == 0 {
		return nil, index.ErrNotFound(Name, name)
	}
	return index.Versions(found), nil
}

// Search filters the repositories by name and description.
func (c *Client) Search(ctx context.Context, query string) ([]index.PackageMeta, error) {
	all, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return index.Filter(all, query), nil
}

var _ index.PackageIndex = (*Client)(nil)
