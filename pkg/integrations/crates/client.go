package crates

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
const Name = "crates"

const (
	defaultBaseURL  = "https://crates.io/api/v1"
	defaultCrateURL = "https://static.crates.io/crates"
	searchPageSize  = 50
)

// Client provides access to the crates.io package registry API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL     string
	downloadURL string
}

// NewClient creates a crates.io client with the given cache backend.
// The client includes a User-Agent header as required by crates.io API policy.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:      integrations.NewClient(backend, Name, cacheTTL, integrations.DefaultHeaders()),
		baseURL:     defaultBaseURL,
		downloadURL: defaultCrateURL,
	}
}

// Name returns "crates".
func (c *Client) Name() string { return Name }

// Fetch retrieves the latest stable version of a crate.
//
// Returns NOT_FOUND if the crate doesn't exist.
func (c *Client) Fetch(ctx context.Context, name string) (*index.PackageMeta, error) {
	data, err := c.crate(ctx, name)
	if err != nil {
		return nil, err
	}

	latest := data.Crate.MaxStableVersion
	if latest == "" {
		latest = data.Crate.MaxVersion
	}

	meta := &index.PackageMeta{
		Name:        data.Crate.Name,
		Version:     latest,
		Description: strings.TrimSpace(data.Crate.Description),
		Homepage:    data.Crate.HomePage,
		Repository:  integrations.NormalizeRepoURL(data.Crate.Repository),
		Keywords:    data.Crate.Keywords,
		Downloads:   data.Crate.Downloads,
		ArchiveURL:  fmt.Sprintf("%s/%s/%s-%s.crate", c.downloadURL, data.Crate.Name, data.Crate.Name, latest),
	}
	if data.Crate.RecentDownloads > 0 {
		meta.SetExtra("recent_downloads", data.Crate.RecentDownloads)
	}

	for _, v := range data.Versions {
		if v.Num != latest {
			continue
		}
		meta.License = v.License
		meta.Published = v.CreatedAt
		meta.Features = v.Features
		if v.Checksum != "" {
			meta.Checksum = "sha256:" + v.Checksum
		}
		if v.RustVersion != "" {
			meta.SetExtra("msrv", v.RustVersion)
		}
		if v.CrateSize > 0 {
			meta.SetExtra("crate_size", v.CrateSize)
		}
		if v.PublishedBy.Login != "" {
			meta.Maintainers = []string{v.PublishedBy.Login}
		}
		break
	}

	meta.Dependencies, _ = c.dependencies(ctx, data.Crate.Name, latest)
	return meta, nil
}

// FetchVersions lists every published version, newest first, with yanked
// versions flagged.
func (c *Client) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	data, err := c.crate(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]index.VersionMeta, 0, len(data.Versions))
	for _, v := range data.Versions {
		out = append(out, index.VersionMeta{Version: v.Num, Released: v.CreatedAt, Yanked: v.Yanked})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Released, out[j].Released
		return a != nil && b != nil && a.After(*b)
	})
	return out, nil
}

// Search queries the crates.io search endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]index.PackageMeta, error) {
	url := fmt.Sprintf("%s/crates?q=%s&per_page=%d", c.baseURL, integrations.URLEncode(query), searchPageSize)

	var data searchResponse
	if err := c.GetJSON(ctx, "search/"+query, url, &data); err != nil {
		return nil, err
	}

	out := make([]index.PackageMeta, 0, len(data.Crates))
	for _, cr := range data.Crates {
		version := cr.MaxStableVersion
		if version == "" {
			version = cr.MaxVersion
		}
		out = append(out, index.PackageMeta{
			Name:        cr.Name,
			Version:     version,
			Description: strings.TrimSpace(cr.Description),
			Homepage:    cr.HomePage,
			Repository:  integrations.NormalizeRepoURL(cr.Repository),
			Downloads:   cr.Downloads,
		})
	}
	return out, nil
}

// FetchAll is not supported by crates.io.
func (c *Client) FetchAll(ctx context.Context) ([]index.PackageMeta, error) {
	return nil, index.ErrFetchAllUnsupported(Name)
}

// SupportsFetchAll returns false.
func (c *Client) SupportsFetchAll() bool { return false }

func (c *Client) crate(ctx context.Context, name string) (*crateResponse, error) {
	if err := errors.ValidateCratesPackageName(name); err != nil {
		return nil, err
	}
	var data crateResponse
	if err := c.GetJSON(ctx, "crate/"+name, c.baseURL+"/crates/"+name, &data); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, index.ErrNotFound(Name, name)
		}
		return nil, err
	}
	return &data, nil
}

func (c *Client) dependencies(ctx context.Context, crate, version string) ([]string, error) {
	url := fmt.Sprintf("%s/crates/%s/%s/dependencies", c.baseURL, crate, version)

	var data depsResponse
	if err := c.GetJSON(ctx, "deps/"+crate+"/"+version, url, &data); err != nil {
		return nil, err
	}

	var deps []string
	for _, d := range data.Dependencies {
		if d.Kind == "normal" && !d.Optional {
			deps = append(deps, d.CrateID)
		}
	}
	return deps, nil
}

var _ index.PackageIndex = (*Client)(nil)

type crateSummary struct {
	Name             string   `json:"name"`
	MaxVersion       string   `json:"max_version"`
	MaxStableVersion string   `json:"max_stable_version"`
	Description      string   `json:"description"`
	Repository       string   `json:"repository"`
	HomePage         string   `json:"homepage"`
	Downloads        uint64   `json:"downloads"`
	RecentDownloads  uint64   `json:"recent_downloads"`
	Keywords         []string `json:"keywords"`
}

type crateResponse struct {
	Crate    crateSummary `json:"crate"`
	Versions []struct {
		Num         string              `json:"num"`
		Yanked      bool                `json:"yanked"`
		License     string              `json:"license"`
		Checksum    string              `json:"checksum"`
		CreatedAt   *time.Time          `json:"created_at"`
		RustVersion string              `json:"rust_version"`
		CrateSize   uint64              `json:"crate_size"`
		Features    map[string][]string `json:"features"`
		PublishedBy struct {
			Login string `json:"login"`
		} `json:"published_by"`
	} `json:"versions"`
}

type searchResponse struct {
	Crates []crateSummary `json:"crates"`
}

type depsResponse struct {
	Dependencies []struct {
		CrateID  string `json:"crate_id"`
		Kind     string `json:"kind"`
		Optional bool   `json:"optional"`
	} `json:"dependencies"`
}
