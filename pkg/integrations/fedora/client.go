package fedora

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
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
const Name = "fedora"

const (
	defaultMdapiURL  = "https://mdapi.fedoraproject.org"
	defaultSearchURL = "https://apps.fedoraproject.org/packages/fcomm_connector/xapian/query/search_packages"
	searchRows       = 50
)

// DefaultReleases are the branches queried when none are configured, newest
// first.
var DefaultReleases = []string{"rawhide", "f42", "f41", "f40"}

// Client queries mdapi across a fixed list of release branches.
type Client struct {
	*integrations.Client
	mdapiURL  string
	searchURL string
	releases  []string
	logger    *log.Logger
}

// NewClient creates a Fedora client for the given branches. An empty list
// uses [DefaultReleases]. logger receives warnings for failing branches.
func NewClient(backend cache.Cache, cacheTTL time.Duration, logger *log.Logger, releases ...string) *Client {
	if len(releases) == 0 {
		releases = DefaultReleases
	}
	return &Client{
		Client:    integrations.NewClient(backend, Name, cacheTTL, integrations.DefaultHeaders()),
		mdapiURL:  defaultMdapiURL,
		searchURL: defaultSearchURL,
		releases:  append([]string(nil), releases...),
		logger:    logger,
	}
}

// Name returns "fedora".
func (c *Client) Name() string { return Name }

// Releases returns the configured branches in lookup order.
func (c *Client) Releases() []string { return c.releases }

// Fetch returns the package from the first branch that carries it.
func (c *Client) Fetch(ctx context.Context, name string) (*index.PackageMeta, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}

	var lastErr error
	for _, rel := range c.releases {
		meta, err := c.fetchRelease(ctx, rel, name)
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
	return nil, index.ErrNotFound(Name, name)
}

// FetchVersions queries every branch in parallel and returns one entry per
// distinct version in branch order.
func (c *Client) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}

	sources := make([]index.Source, 0, len(c.releases))
	for _, rel := range c.releases {
		sources = append(sources, index.Source{
			Name: rel,
			Load: func(ctx context.Context) ([]index.PackageMeta, error) {
				meta, err := c.fetchRelease(ctx, rel, name)
				if errors.Is(err, errors.ErrCodeNotFound) {
					return nil, nil
				}
				if err != nil {
					return nil, err
				}
				return []index.PackageMeta{*meta}, nil
			},
		})
	}

	pkgs, err := index.Load(ctx, c.logger, sources)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, index.ErrNotFound(Name, name)
	}

	seen := make(map[string]bool)
	var out []index.VersionMeta
	for _, p := range pkgs {
		if seen[p.Version] {
			continue
		}
		seen[p.Version] = true
		out = append(out, index.VersionMeta{Version: p.Version})
	}
	return out, nil
}

// Search queries the Fedora Packages search backend.
func (c *Client) Search(ctx context.Context, query string) ([]index.PackageMeta, error) {
	filter, err := json.Marshal(searchFilter{
		Filters:     map[string]string{"search": query},
		RowsPerPage: searchRows,
	})
	if err != nil {
		return nil, err
	}
	url := c.searchURL + "/" + integrations.PathEscape(string(filter))

	var resp searchResponse
	if err := c.GetJSON(ctx, "search/"+query, url, &resp); err != nil {
		return nil, err
	}

	out := make([]index.PackageMeta, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		meta := index.PackageMeta{
			Name:        stripMarkup(r.Name),
			Description: stripMarkup(r.Summary),
			Homepage:    r.UpstreamURL,
		}
		if r.DevelOwner != "" {
			meta.Maintainers = []string{r.DevelOwner}
		}
		out = append(out, meta)
	}
	return out, nil
}

// FetchAll is not supported by mdapi.
func (c *Client) FetchAll(ctx context.Context) ([]index.PackageMeta, error) {
	return nil, index.ErrFetchAllUnsupported(Name)
}

// SupportsFetchAll returns false.
func (c *Client) SupportsFetchAll() bool { return false }

func (c *Client) fetchRelease(ctx context.Context, release, name string) (*index.PackageMeta, error) {
	url := fmt.Sprintf("%s/%s/pkg/%s", c.mdapiURL, release, integrations.PathEscape(name))
	var p mdapiPackage
	if err := c.GetJSON(ctx, release+"/"+name, url, &p); err != nil {
		return nil, err
	}
	meta := p.toMeta(name)
	meta.SetExtra("release", release)
	return meta, nil
}

var _ index.PackageIndex = (*Client)(nil)

type mdapiPackage struct {
	Basename    string `json:"basename"`
	Arch        string `json:"arch"`
	Epoch       string `json:"epoch"`
	Version     string `json:"version"`
	Release     string `json:"release"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Repo        string `json:"repo"`
	Requires    []struct {
		Name string `json:"name"`
	} `json:"requires"`
	Provides []struct {
		Name string `json:"name"`
	} `json:"provides"`
	CoPackages []string `json:"co-packages"`
}

func (p mdapiPackage) toMeta(name string) *index.PackageMeta {
	meta := &index.PackageMeta{
		Name:        name,
		Version:     archive.RPMVersion(p.Epoch, p.Version, p.Release),
		Description: strings.TrimSpace(p.Summary),
		Homepage:    p.URL,
	}

	seen := make(map[string]bool)
	for _, r := range p.Requires {
		if seen[r.Name] || !archive.IsPackageRequire(r.Name) {
			continue
		}
		seen[r.Name] = true
		meta.Dependencies = append(meta.Dependencies, r.Name)
	}

	if p.Repo != "" {
		meta.SetExtra("repo", p.Repo)
	}
	if p.Arch != "" {
		meta.SetExtra(archive.ExtraArch, p.Arch)
	}
	if len(p.Provides) > 0 {
		provides := make([]string, 0, len(p.Provides))
		for _, pr := range p.Provides {
			provides = append(provides, pr.Name)
		}
		meta.SetExtra(archive.ExtraProvides, provides)
	}
	var co []string
	for _, cp := range p.CoPackages {
		if cp != name {
			co = append(co, cp)
		}
	}
	if len(co) > 0 {
		meta.SetExtra("co_packages", co)
	}
	return meta
}

type searchFilter struct {
	Filters     map[string]string `json:"filters"`
	RowsPerPage int               `json:"rows_per_page"`
	StartRow    int               `json:"start_row"`
}

type searchResponse struct {
	TotalRows int `json:"total_rows"`
	Rows      []struct {
		Name        string `json:"name"`
		Summary     string `json:"summary"`
		UpstreamURL string `json:"upstream_url"`
		DevelOwner  string `json:"devel_owner"`
	} `json:"rows"`
}

var markupRe = regexp.MustCompile(`<[^>]*>`)

// stripMarkup removes the highlight spans the search backend wraps around
// matched terms.
func stripMarkup(s string) string {
	return strings.TrimSpace(markupRe.ReplaceAllString(s, ""))
}
