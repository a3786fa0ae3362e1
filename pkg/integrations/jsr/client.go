package jsr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/integrations"
)

// Name is the registry identifier used by the index registry and cache keys.
const Name = "jsr"

const (
	defaultAPIURL  = "https://api.jsr.io"
	defaultSiteURL = "https://jsr.io"
	searchPageSize = 50
)

// Client provides access to the JSR API.
type Client struct {
	*integrations.Client
	apiURL  string
	siteURL string
}

// NewClient creates a JSR client with the given cache backend.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(backend, Name, cacheTTL, integrations.DefaultHeaders()),
		apiURL:  defaultAPIURL,
		siteURL: defaultSiteURL,
	}
}

// Name returns "jsr".
func (c *Client) Name() string { return Name }

// Fetch retrieves the latest version of "@scope/name".
func (c *Client) Fetch(ctx context.Context, name string) (*index.PackageMeta, error) {
	scope, pkg, err := splitName(name)
	if err != nil {
		return nil, err
	}

	var p packageResponse
	url := fmt.Sprintf("%s/scopes/%s/packages/%s", c.apiURL, scope, pkg)
	if err := c.GetJSON(ctx, "pkg/"+name, url, &p); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, index.ErrNotFound(Name, name)
		}
		return nil, err
	}
	if p.LatestVersion == "" {
		return nil, errors.NotFound("jsr package %s has no published version", name)
	}

	meta := p.toMeta(c.siteURL)
	meta.Dependencies, _ = c.dependencies(ctx, scope, pkg, p.LatestVersion)
	if v, err := c.version(ctx, scope, pkg, p.LatestVersion); err == nil {
		meta.Published = v.CreatedAt
	}
	return meta, nil
}

// FetchVersions lists every published version, newest first as returned by
// the API.
func (c *Client) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	scope, pkg, err := splitName(name)
	if err != nil {
		return nil, err
	}

	var data []versionResponse
	url := fmt.Sprintf("%s/scopes/%s/packages/%s/versions", c.apiURL, scope, pkg)
	if err := c.GetJSON(ctx, "versions/"+name, url, &data); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, index.ErrNotFound(Name, name)
		}
		return nil, err
	}

	out := make([]index.VersionMeta, 0, len(data))
	for _, v := range data {
		out = append(out, index.VersionMeta{Version: v.Version, Released: v.CreatedAt, Yanked: v.Yanked})
	}
	return out, nil
}

// Search queries the package listing endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]index.PackageMeta, error) {
	url := fmt.Sprintf("%s/packages?query=%s&limit=%d", c.apiURL, integrations.URLEncode(query), searchPageSize)

	var data struct {
		Items []packageResponse `json:"items"`
	}
	if err := c.GetJSON(ctx, "search/"+query, url, &data); err != nil {
		return nil, err
	}

	out := make([]index.PackageMeta, 0, len(data.Items))
	for _, p := range data.Items {
		out = append(out, *p.toMeta(c.siteURL))
	}
	return out, nil
}

// FetchAll is not supported by JSR.
func (c *Client) FetchAll(ctx context.Context) ([]index.PackageMeta, error) {
	return nil, index.ErrFetchAllUnsupported(Name)
}

// SupportsFetchAll returns false.
func (c *Client) SupportsFetchAll() bool { return false }

func (c *Client) version(ctx context.Context, scope, pkg, version string) (*versionResponse, error) {
	var v versionResponse
	url := fmt.Sprintf("%s/scopes/%s/packages/%s/versions/%s", c.apiURL, scope, pkg, version)
	if err := c.GetJSON(ctx, fmt.Sprintf("version/@%s/%s/%s", scope, pkg, version), url, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// dependencies returns the unique package names a version depends on.
// npm dependencies keep an "npm:" prefix so they stay distinguishable.
func (c *Client) dependencies(ctx context.Context, scope, pkg, version string) ([]string, error) {
	var data []struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	url := fmt.Sprintf("%s/scopes/%s/packages/%s/versions/%s/dependencies", c.apiURL, scope, pkg, version)
	if err := c.GetJSON(ctx, fmt.Sprintf("deps/@%s/%s/%s", scope, pkg, version), url, &data); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, d := range data {
		name := d.Name
		if d.Kind == "npm" {
			name = "npm:" + name
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// splitName splits "@scope/name" into its parts.
func splitName(name string) (scope, pkg string, err error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "jsr:")
	if strings.HasPrefix(name, "npm:") {
		return "", "", index.ErrNotFound(Name, name)
	}
	if err := errors.ValidateJSRPackageName(name); err != nil {
		return "", "", err
	}
	scope, pkg, _ = strings.Cut(strings.TrimPrefix(name, "@"), "/")
	return scope, pkg, nil
}

var _ index.PackageIndex = (*Client)(nil)

type packageResponse struct {
	Scope            string `json:"scope"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	LatestVersion    string `json:"latestVersion"`
	Score            *int   `json:"score"`
	GithubRepository *struct {
		Owner string `json:"owner"`
		Name  string `json:"name"`
	} `json:"githubRepository"`
	RuntimeCompat map[string]*bool `json:"runtimeCompat"`
	CreatedAt     *time.Time       `json:"createdAt"`
}

func (p packageResponse) toMeta(siteURL string) *index.PackageMeta {
	full := "@" + p.Scope + "/" + p.Name
	meta := &index.PackageMeta{
		Name:        full,
		Version:     p.LatestVersion,
		Description: p.Description,
		Homepage:    siteURL + "/" + full,
	}
	if p.LatestVersion != "" {
		meta.ArchiveURL = siteURL + "/" + full + "/" + p.LatestVersion
	}
	if p.GithubRepository != nil && p.GithubRepository.Owner != "" {
		meta.Repository = "https://github.com/" + p.GithubRepository.Owner + "/" + p.GithubRepository.Name
	}
	if p.Score != nil {
		meta.SetExtra("score", *p.Score)
	}
	var runtimes []string
	for rt, ok := range p.RuntimeCompat {
		if ok != nil && *ok {
			runtimes = append(runtimes, rt)
		}
	}
	if len(runtimes) > 0 {
		sort.Strings(runtimes)
		meta.SetExtra("runtimes", runtimes)
	}
	return meta
}

type versionResponse struct {
	Version   string     `json:"version"`
	Yanked    bool       `json:"yanked"`
	CreatedAt *time.Time `json:"createdAt"`
}
