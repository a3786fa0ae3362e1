package maven

import (
	"context"
	"encoding/xml"
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
const Name = "maven"

const (
	defaultSearchURL = "https://search.maven.org/solrsearch/select"
	searchRows       = 50
	versionRows      = 200
)

// CentralURL is the Maven Central repository root.
const CentralURL = "https://repo1.maven.org/maven2"

// Client provides access to Maven repositories.
//
// Lookups first ask the Central search API, which knows release dates and
// the latest version in one call. When search has no answer, each configured
// repository is probed for maven-metadata.xml in order.
type Client struct {
	*integrations.Client
	searchURL string
	central   string // repository that serves search hits
	repos     []string
}

// NewClient creates a Maven client. repos are repository roots probed after
// Central search; when empty, only Maven Central is used.
func NewClient(backend cache.Cache, cacheTTL time.Duration, repos ...string) *Client {
	if len(repos) == 0 {
		repos = []string{CentralURL}
	}
	roots := make([]string, len(repos))
	for i, r := range repos {
		roots[i] = strings.TrimRight(r, "/")
	}
	return &Client{
		Client:    integrations.NewClient(backend, Name, cacheTTL, integrations.DefaultHeaders()),
		searchURL: defaultSearchURL,
		central:   CentralURL,
		repos:     roots,
	}
}

// Name returns "maven".
func (c *Client) Name() string { return Name }

// Repositories returns the repository roots probed by this client.
func (c *Client) Repositories() []string { return c.repos }

// Fetch retrieves the latest version of the artifact "groupId:artifactId"
// together with its compile-scope dependencies from the POM.
func (c *Client) Fetch(ctx context.Context, name string) (*index.PackageMeta, error) {
	groupID, artifactID, err := parseCoordinate(name)
	if err != nil {
		return nil, err
	}

	version, published, repo, err := c.latest(ctx, groupID, artifactID)
	if err != nil {
		return nil, err
	}

	meta := &index.PackageMeta{
		Name:      groupID + ":" + artifactID,
		Version:   version,
		Published: published,
	}
	meta.SetExtra("group_id", groupID)
	meta.SetExtra("artifact_id", artifactID)
	meta.SetExtra(extraRepository, repo)

	packaging := "jar"
	if pom, err := c.pom(ctx, repo, groupID, artifactID, version); err == nil {
		meta.Description = strings.TrimSpace(pom.Description)
		meta.Homepage = pom.URL
		meta.Repository = pom.SCM.URL
		meta.Dependencies = extractDeps(pom)
		var licenses []string
		for _, l := range pom.Licenses {
			if l.Name != "" {
				licenses = append(licenses, l.Name)
			}
		}
		meta.License = strings.Join(licenses, " OR ")
		for _, d := range pom.Developers {
			if d.Name != "" {
				meta.Maintainers = append(meta.Maintainers, d.Name)
			} else if d.ID != "" {
				meta.Maintainers = append(meta.Maintainers, d.ID)
			}
		}
		if pom.Packaging != "" {
			packaging = pom.Packaging
		}
		if pom.Name != "" {
			meta.SetExtra("display_name", pom.Name)
		}
	}
	meta.SetExtra("packaging", packaging)
	meta.ArchiveURL = artifactURL(repo, groupID, artifactID, version, archiveExt(packaging))
	return meta, nil
}

// FetchVersions lists known versions, newest first. Central search provides
// release timestamps; the maven-metadata.xml fallback does not.
func (c *Client) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	groupID, artifactID, err := parseCoordinate(name)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("g:%q AND a:%q", groupID, artifactID)
	url := fmt.Sprintf("%s?q=%s&core=gav&rows=%d&wt=json", c.searchURL, integrations.URLEncode(q), versionRows)
	var resp searchResponse
	if err := c.GetJSON(ctx, "gav/"+name, url, &resp); err == nil && len(resp.Response.Docs) > 0 {
		out := make([]index.VersionMeta, 0, len(resp.Response.Docs))
		for _, d := range resp.Response.Docs {
			out = append(out, index.VersionMeta{Version: d.Version, Released: d.released()})
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Released == nil || out[j].Released == nil {
				return false
			}
			return out[i].Released.After(*out[j].Released)
		})
		return out, nil
	}

	md, _, err := c.probe(ctx, groupID, artifactID)
	if err != nil {
		return nil, err
	}
	out := make([]index.VersionMeta, 0, len(md.Versioning.Versions))
	for i := len(md.Versioning.Versions) - 1; i >= 0; i-- {
		out = append(out, index.VersionMeta{Version: md.Versioning.Versions[i]})
	}
	return out, nil
}

// Search runs a free-text query against Central search.
func (c *Client) Search(ctx context.Context, query string) ([]index.PackageMeta, error) {
	url := fmt.Sprintf("%s?q=%s&rows=%d&wt=json", c.searchURL, integrations.URLEncode(query), searchRows)
	var resp searchResponse
	if err := c.GetJSON(ctx, "search/"+query, url, &resp); err != nil {
		return nil, err
	}

	out := make([]index.PackageMeta, 0, len(resp.Response.Docs))
	for _, d := range resp.Response.Docs {
		meta := index.PackageMeta{
			Name:      d.GroupID + ":" + d.ArtifactID,
			Version:   d.latest(),
			Published: d.released(),
		}
		if d.Packaging != "" {
			meta.SetExtra("packaging", d.Packaging)
		}
		out = append(out, meta)
	}
	return out, nil
}

// FetchAll is not supported; Maven repositories have no catalog endpoint.
func (c *Client) FetchAll(ctx context.Context) ([]index.PackageMeta, error) {
	return nil, index.ErrFetchAllUnsupported(Name)
}

// SupportsFetchAll returns false.
func (c *Client) SupportsFetchAll() bool { return false }

const extraRepository = "repository"

// latest resolves the newest version, trying Central search before probing
// repositories. It also reports which repository serves the artifact:
// Central for search hits, the answering repository otherwise.
func (c *Client) latest(ctx context.Context, groupID, artifactID string) (string, *time.Time, string, error) {
	q := fmt.Sprintf("g:%q AND a:%q", groupID, artifactID)
	url := fmt.Sprintf("%s?q=%s&rows=1&wt=json", c.searchURL, integrations.URLEncode(q))

	var resp searchResponse
	if err := c.GetJSON(ctx, "ga/"+groupID+":"+artifactID, url, &resp); err == nil && len(resp.Response.Docs) > 0 {
		d := resp.Response.Docs[0]
		if v := d.latest(); v != "" {
			return v, d.released(), c.central, nil
		}
	} else if ctx.Err() != nil {
		return "", nil, "", ctx.Err()
	}

	md, repo, err := c.probe(ctx, groupID, artifactID)
	if err != nil {
		return "", nil, "", err
	}
	return md.latest(), md.lastUpdated(), repo, nil
}

// probe asks each repository for maven-metadata.xml and returns the first
// one that answers.
func (c *Client) probe(ctx context.Context, groupID, artifactID string) (*metadata, string, error) {
	var lastErr error
	for _, repo := range c.repos {
		url := fmt.Sprintf("%s/%s/%s/maven-metadata.xml", repo, groupPath(groupID), artifactID)
		body, err := c.GetText(ctx, "metadata/"+url, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			if !errors.Is(err, errors.ErrCodeNotFound) {
				lastErr = err
			}
			continue
		}
		var md metadata
		if err := xml.Unmarshal([]byte(body), &md); err != nil {
			lastErr = errors.Parse(err, "decode %s", url)
			continue
		}
		if md.latest() == "" {
			continue
		}
		return &md, repo, nil
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", index.ErrNotFound(Name, groupID+":"+artifactID)
}

func (c *Client) pom(ctx context.Context, repo, groupID, artifactID, version string) (*pomProject, error) {
	url := artifactURL(repo, groupID, artifactID, version, "pom")
	body, err := c.GetText(ctx, "pom/"+url, url)
	if err != nil {
		return nil, err
	}
	var pom pomProject
	if err := xml.Unmarshal([]byte(body), &pom); err != nil {
		return nil, errors.Parse(err, "decode %s", url)
	}
	return &pom, nil
}

// extractDeps returns compile and runtime dependency coordinates. Test,
// provided, system, import and optional dependencies are excluded, as are
// coordinates with unresolved ${...} properties.
func extractDeps(pom *pomProject) []string {
	var deps []string
	seen := make(map[string]bool)

	for _, dep := range pom.Dependencies {
		switch dep.Scope {
		case "test", "provided", "system", "import":
			continue
		}
		if strings.TrimSpace(dep.Optional) == "true" {
			continue
		}
		if strings.Contains(dep.GroupID, "${") || strings.Contains(dep.ArtifactID, "${") {
			continue
		}
		coord := dep.GroupID + ":" + dep.ArtifactID
		if !seen[coord] {
			seen[coord] = true
			deps = append(deps, coord)
		}
	}
	return deps
}

func parseCoordinate(coord string) (groupID, artifactID string, err error) {
	coord = strings.TrimSpace(coord)
	if err := errors.ValidateMavenCoordinate(coord); err != nil {
		return "", "", err
	}
	groupID, artifactID, _ = strings.Cut(coord, ":")
	return groupID, artifactID, nil
}

func groupPath(groupID string) string {
	return strings.ReplaceAll(groupID, ".", "/")
}

func artifactURL(repo, groupID, artifactID, version, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s-%s.%s", repo, groupPath(groupID), artifactID, version, artifactID, version, ext)
}

func archiveExt(packaging string) string {
	switch packaging {
	case "pom", "war", "ear", "aar":
		return packaging
	default:
		return "jar"
	}
}

var _ index.PackageIndex = (*Client)(nil)

type searchResponse struct {
	Response struct {
		NumFound int         `json:"numFound"`
		Docs     []searchDoc `json:"docs"`
	} `json:"response"`
}

type searchDoc struct {
	GroupID       string `json:"g"`
	ArtifactID    string `json:"a"`
	Version       string `json:"v"`
	LatestVersion string `json:"latestVersion"`
	Packaging     string `json:"p"`
	Timestamp     int64  `json:"timestamp"`
}

func (d searchDoc) latest() string {
	if d.LatestVersion != "" {
		return d.LatestVersion
	}
	return d.Version
}

func (d searchDoc) released() *time.Time {
	if d.Timestamp <= 0 {
		return nil
	}
	t := time.UnixMilli(d.Timestamp).UTC()
	return &t
}

type metadata struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Versioning struct {
		Latest      string   `xml:"latest"`
		Release     string   `xml:"release"`
		Versions    []string `xml:"versions>version"`
		LastUpdated string   `xml:"lastUpdated"`
	} `xml:"versioning"`
}

// latest prefers <release>, then <latest>, then the last listed version.
func (m *metadata) latest() string {
	v := m.Versioning
	switch {
	case v.Release != "":
		return v.Release
	case v.Latest != "":
		return v.Latest
	case len(v.Versions) > 0:
		return v.Versions[len(v.Versions)-1]
	}
	return ""
}

func (m *metadata) lastUpdated() *time.Time {
	t, err := time.Parse("20060102150405", m.Versioning.LastUpdated)
	if err != nil {
		return nil
	}
	return &t
}

type pomProject struct {
	GroupID     string `xml:"groupId"`
	ArtifactID  string `xml:"artifactId"`
	Version     string `xml:"version"`
	Packaging   string `xml:"packaging"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
	URL         string `xml:"url"`
	Licenses    []struct {
		Name string `xml:"name"`
	} `xml:"licenses>license"`
	Developers []struct {
		ID   string `xml:"id"`
		Name string `xml:"name"`
	} `xml:"developers>developer"`
	SCM struct {
		URL string `xml:"url"`
	} `xml:"scm"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}
