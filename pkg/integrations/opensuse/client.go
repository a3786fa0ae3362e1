package opensuse

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
const Name = "opensuse"

// DefaultMirror is the openSUSE download redirector.
const DefaultMirror = "https://download.opensuse.org"

// LeapReleases are the Leap releases with known repository layouts.
var LeapReleases = []string{"15.6", "16.0"}

// Repo is one RPM-MD repository.
type Repo struct {
	Name    string
	BaseURL string
}

// All returns every known repository name.
func All() []string {
	names := []string{"tumbleweed-oss", "tumbleweed-non-oss", "tumbleweed-update"}
	for _, rel := range LeapReleases {
		names = append(names,
			"leap-"+rel+"-oss", "leap-"+rel+"-non-oss",
			"leap-"+rel+"-update", "leap-"+rel+"-update-non-oss")
	}
	return names
}

// Stable returns the Tumbleweed repositories.
func Stable() []string {
	return []string{"tumbleweed-oss", "tumbleweed-non-oss", "tumbleweed-update"}
}

// WithRepos validates repository names.
func WithRepos(names ...string) ([]string, error) {
	known := All()
	for _, n := range names {
		if !slices.Contains(known, n) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown openSUSE repository %q", n).
				WithHint("known repositories: %s", strings.Join(known, ", "))
		}
	}
	return slices.Clone(names), nil
}

// Repos resolves repository names to URLs below mirror.
func Repos(mirror string, names ...string) ([]Repo, error) {
	names, err := WithRepos(names...)
	if err != nil {
		return nil, err
	}
	if mirror == "" {
		mirror = DefaultMirror
	}
	mirror = strings.TrimRight(mirror, "/")

	out := make([]Repo, 0, len(names))
	for _, n := range names {
		out = append(out, Repo{Name: n, BaseURL: mirror + "/" + repoPath(n)})
	}
	return out, nil
}

func repoPath(name string) string {
	switch name {
	case "tumbleweed-oss":
		return "tumbleweed/repo/oss"
	case "tumbleweed-non-oss":
		return "tumbleweed/repo/non-oss"
	case "tumbleweed-update":
		return "update/tumbleweed"
	}
	rest := strings.TrimPrefix(name, "leap-")
	rel, component, _ := strings.Cut(rest, "-")
	switch component {
	case "update":
		return "update/leap/" + rel + "/oss"
	case "update-non-oss":
		return "update/leap/" + rel + "/non-oss"
	default:
		return "distribution/leap/" + rel + "/repo/" + component
	}
}

// Options configures a [Client].
type Options struct {
	// Repos selects repositories by name. Empty means Stable().
	Repos []string
	// Mirror overrides DefaultMirror.
	Mirror string
	Logger *log.Logger
	Memo   *index.Memo
}

// Client is a Package Index over openSUSE RPM-MD repositories.
type Client struct {
	*integrations.Client
	repos  []Repo
	logger *log.Logger
	memo   *index.Memo
}

// NewClient creates an openSUSE client.
func NewClient(backend cache.Cache, cacheTTL time.Duration, opts Options) (*Client, error) {
	names := opts.Repos
	if len(names) == 0 {
		names = Stable()
	}
	repos, err := Repos(opts.Mirror, names...)
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

// Name returns "opensuse".
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
				return c.loadRepo(ctx, r)
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

// FetchVersions lists the distinct versions across repositories. An
// architecture-specific and a noarch build of the same version count once.
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

func (c *Client) loadRepo(ctx context.Context, r Repo) ([]index.PackageMeta, error) {
	return c.memo.Get(ctx, Name+"|"+r.BaseURL, func(ctx context.Context) ([]index.PackageMeta, error) {
		repomdURL := r.BaseURL + "/repodata/repomd.xml"
		data, _, err := c.FetchWithCache(ctx, "repomd/"+repomdURL, repomdURL)
		if err != nil {
			return nil, err
		}
		md, err := archive.ParseRepomd(data)
		if err != nil {
			return nil, err
		}
		href, ok := md.Location("primary")
		if !ok {
			return nil, errors.New(errors.ErrCodeParse, "repomd.xml of %s lists no primary metadata", r.Name)
		}

		primaryURL := r.BaseURL + "/" + strings.TrimPrefix(href, "/")
		data, _, err = c.FetchWithCache(ctx, "primary/"+primaryURL, primaryURL)
		if err != nil {
			return nil, err
		}
		return archive.ParsePrimary(data, r.Name, r.BaseURL)
	})
}

var _ index.PackageIndex = (*Client)(nil)
