package npm

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/integrations"
)

// Name is the registry identifier used by the index registry and cache keys.
const Name = "npm"

const (
	defaultBaseURL      = "https://registry.npmjs.org"
	defaultDownloadsURL = "https://api.npmjs.org/downloads/point/last-week"
	searchPageSize      = 50
)

// Client provides access to the npm registry.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL      string
	downloadsURL string
}

// NewClient creates an npm registry client with the given cache backend.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:       integrations.NewClient(backend, Name, cacheTTL, integrations.DefaultHeaders()),
		baseURL:      defaultBaseURL,
		downloadsURL: defaultDownloadsURL,
	}
}

// WithBaseURL points the client at a registry mirror.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// Name returns "npm".
func (c *Client) Name() string { return Name }

// Fetch retrieves the latest version of a package.
//
// Returns NOT_FOUND if the package doesn't exist or has no "latest" tag.
func (c *Client) Fetch(ctx context.Context, name string) (*index.PackageMeta, error) {
	doc, err := c.packument(ctx, name)
	if err != nil {
		return nil, err
	}

	latest := doc.DistTags["latest"]
	v, ok := doc.Versions[latest]
	if !ok {
		return nil, errors.NotFound("npm package %s has no published latest version", name)
	}

	meta := &index.PackageMeta{
		Name:         doc.Name,
		Version:      latest,
		Description:  v.Description,
		Homepage:     extractField(v.HomePage, "url"),
		Repository:   integrations.NormalizeRepoURL(extractField(v.Repository, "url")),
		License:      extractField(v.License, "type"),
		Keywords:     stringList(v.Keywords),
		ArchiveURL:   v.Dist.Tarball,
		Checksum:     checksum(v.Dist.Integrity, v.Dist.Shasum),
		Dependencies: sortedKeys(v.Dependencies),
	}
	for _, m := range v.Maintainers {
		if name := extractField(m, "name"); name != "" {
			meta.Maintainers = append(meta.Maintainers, name)
		}
	}
	if t, ok := doc.Time[latest]; ok {
		meta.Published = &t
	}
	if bins := binNames(doc.Name, v.Bin); len(bins) > 0 {
		meta.SetExtra("bin", bins)
	}
	if engines, ok := v.Engines.(map[string]any); ok && len(engines) > 0 {
		meta.SetExtra("engines", engines)
	}
	if msg := deprecation(v.Deprecated); msg != "" {
		meta.SetExtra("deprecated", msg)
	}

	meta.Downloads, _ = c.weeklyDownloads(ctx, doc.Name)
	return meta, nil
}

// FetchVersions lists every published version, newest first.
func (c *Client) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	doc, err := c.packument(ctx, name)
	if err != nil {
		return nil, err
	}

	out := make([]index.VersionMeta, 0, len(doc.Versions))
	for ver, v := range doc.Versions {
		vm := index.VersionMeta{Version: ver, Yanked: deprecation(v.Deprecated) != ""}
		if t, ok := doc.Time[ver]; ok {
			vm.Released = &t
		}
		out = append(out, vm)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Released, out[j].Released
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case (a == nil) != (b == nil):
			return a != nil
		default:
			return out[i].Version > out[j].Version
		}
	})
	return out, nil
}

// Search queries the registry search endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]index.PackageMeta, error) {
	url := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d", c.baseURL, integrations.URLEncode(query), searchPageSize)

	var data searchResponse
	if err := c.GetJSON(ctx, "search/"+query, url, &data); err != nil {
		return nil, err
	}

	out := make([]index.PackageMeta, 0, len(data.Objects))
	for _, o := range data.Objects {
		p := o.Package
		meta := index.PackageMeta{
			Name:        p.Name,
			Version:     p.Version,
			Description: p.Description,
			Keywords:    p.Keywords,
			Homepage:    p.Links.Homepage,
			Repository:  integrations.NormalizeRepoURL(p.Links.Repository),
			Published:   p.Date,
		}
		if p.Publisher.Username != "" {
			meta.Maintainers = []string{p.Publisher.Username}
		}
		out = append(out, meta)
	}
	return out, nil
}

// FetchAll is not supported by the npm registry.
func (c *Client) FetchAll(ctx context.Context) ([]index.PackageMeta, error) {
	return nil, index.ErrFetchAllUnsupported(Name)
}

// SupportsFetchAll returns false.
func (c *Client) SupportsFetchAll() bool { return false }

// EscapeName escapes a package name for use as a registry path segment.
//
//	EscapeName("@types/node") == "@types%2fnode"
func EscapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name, "/", "%2f", 1)
	}
	return name
}

func (c *Client) packument(ctx context.Context, name string) (*packument, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "npm:")
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}

	var doc packument
	if err := c.GetJSON(ctx, "pkg/"+name, c.baseURL+"/"+EscapeName(name), &doc); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, index.ErrNotFound(Name, name)
		}
		return nil, err
	}
	return &doc, nil
}

func (c *Client) weeklyDownloads(ctx context.Context, name string) (uint64, error) {
	var data struct {
		Downloads uint64 `json:"downloads"`
	}
	if err := c.GetJSON(ctx, "downloads/"+name, c.downloadsURL+"/"+name, &data); err != nil {
		return 0, err
	}
	return data.Downloads, nil
}

// checksum converts an SRI integrity string or a legacy shasum into the
// "<algo>:<hex>" form.
func checksum(integrity, shasum string) string {
	if algo, b64, ok := strings.Cut(integrity, "-"); ok {
		if raw, err := base64.StdEncoding.DecodeString(b64); err == nil {
			return algo + ":" + hex.EncodeToString(raw)
		}
	}
	if shasum != "" {
		return "sha1:" + shasum
	}
	return ""
}

func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

// stringList accepts the array form and the (invalid but common) string
// form of "keywords".
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return strings.Fields(strings.ReplaceAll(val, ",", " "))
	case []any:
		out := make([]string, 0, len(val))
		for _, x := range val {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// binNames returns the executables of a "bin" field, which is either a
// path (executable named after the package) or a name-to-path map.
func binNames(pkg string, v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		if _, after, ok := strings.Cut(pkg, "/"); ok {
			return []string{after}
		}
		return []string{pkg}
	case map[string]any:
		return slices.Sorted(maps.Keys(val))
	}
	return nil
}

// deprecation normalizes the "deprecated" field, which registries emit as
// either a message string or a boolean.
func deprecation(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "deprecated"
		}
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(m))
}

var _ index.PackageIndex = (*Client)(nil)

type packument struct {
	Name     string                    `json:"name"`
	DistTags map[string]string         `json:"dist-tags"`
	Versions map[string]versionDetails `json:"versions"`
	Time     map[string]time.Time      `json:"time"`
}

type versionDetails struct {
	Description  string            `json:"description"`
	License      any               `json:"license"`
	Repository   any               `json:"repository"`
	HomePage     any               `json:"homepage"`
	Keywords     any               `json:"keywords"`
	Maintainers  []any             `json:"maintainers"`
	Dependencies map[string]string `json:"dependencies"`
	Engines      any               `json:"engines"`
	Bin          any               `json:"bin"`
	Deprecated   any               `json:"deprecated"`
	Dist         struct {
		Tarball   string `json:"tarball"`
		Integrity string `json:"integrity"`
		Shasum    string `json:"shasum"`
	} `json:"dist"`
}

type searchResponse struct {
	Objects []struct {
		Package struct {
			Name        string     `json:"name"`
			Version     string     `json:"version"`
			Description string     `json:"description"`
			Keywords    []string   `json:"keywords"`
			Date        *time.Time `json:"date"`
			Links       struct {
				Homepage   string `json:"homepage"`
				Repository string `json:"repository"`
			} `json:"links"`
			Publisher struct {
				Username string `json:"username"`
			} `json:"publisher"`
		} `json:"package"`
	} `json:"objects"`
}
