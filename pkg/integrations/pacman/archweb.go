package pacman

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/depscope/pkg/archive"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/integrations"
)

// SourceAUR is the source_repo value of records that came from the AUR.
const SourceAUR = "aur"

type archwebResponse struct {
	Valid   bool             `json:"valid"`
	Results []archwebPackage `json:"results"`
}

type archwebPackage struct {
	Name           string     `json:"pkgname"`
	Base           string     `json:"pkgbase"`
	Repo           string     `json:"repo"`
	Arch           string     `json:"arch"`
	Version        string     `json:"pkgver"`
	Release        string     `json:"pkgrel"`
	Epoch          int        `json:"epoch"`
	Description    string     `json:"pkgdesc"`
	URL            string     `json:"url"`
	CompressedSize uint64     `json:"compressed_size"`
	InstalledSize  uint64     `json:"installed_size"`
	BuildDate      *time.Time `json:"build_date"`
	Packager       string     `json:"packager"`
	Licenses       []string   `json:"licenses"`
	Groups         []string   `json:"groups"`
	Provides       []string   `json:"provides"`
	Depends        []string   `json:"depends"`
}

// fetchArchweb asks the archweb package search for an exact name match.
// It finds packages in repositories the backend was not configured with.
func (b *Backend) fetchArchweb(ctx context.Context, name string) (*index.PackageMeta, error) {
	url := fmt.Sprintf("%s/packages/search/json/?name=%s", b.archwebURL, integrations.URLEncode(name))
	var resp archwebResponse
	if err := b.GetJSON(ctx, "archweb/"+name, url, &resp); err != nil {
		return nil, err
	}
	for _, p := range resp.Results {
		if p.Name == name {
			return p.toMeta(b.archwebURL), nil
		}
	}
	return nil, errors.NotFound("package %q not found on archweb", name)
}

func (p archwebPackage) toMeta(archwebURL string) *index.PackageMeta {
	version := p.Version + "-" + p.Release
	if p.Epoch > 0 {
		version = fmt.Sprintf("%d:%s", p.Epoch, version)
	}
	meta := &index.PackageMeta{
		Name:         p.Name,
		Version:      version,
		Description:  p.Description,
		Homepage:     p.URL,
		License:      strings.Join(p.Licenses, " AND "),
		Published:    p.BuildDate,
		Keywords:     p.Groups,
		Dependencies: archive.StripConstraints(p.Depends),
		ArchiveURL:   fmt.Sprintf("%s/packages/%s/%s/%s/download/", archwebURL, p.Repo, p.Arch, p.Name),
	}
	if p.Packager != "" {
		meta.Maintainers = []string{p.Packager}
	}
	meta.SetExtra(archive.ExtraSourceRepo, p.Repo)
	meta.SetExtra(archive.ExtraArch, p.Arch)
	if p.Base != "" && p.Base != p.Name {
		meta.SetExtra(archive.ExtraPackageBase, p.Base)
	}
	if p.CompressedSize > 0 {
		meta.SetExtra(archive.ExtraCompressedSize, p.CompressedSize)
	}
	if p.InstalledSize > 0 {
		meta.SetExtra(archive.ExtraInstalledSize, p.InstalledSize)
	}
	if len(p.Provides) > 0 {
		meta.SetExtra(archive.ExtraProvides, p.Provides)
	}
	return meta
}

type aurResponse struct {
	Type        string       `json:"type"`
	Error       string       `json:"error"`
	ResultCount int          `json:"resultcount"`
	Results     []aurPackage `json:"results"`
}

type aurPackage struct {
	Name         string   `json:"Name"`
	PackageBase  string   `json:"PackageBase"`
	Version      string   `json:"Version"`
	Description  string   `json:"Description"`
	URL          string   `json:"URL"`
	URLPath      string   `json:"URLPath"`
	Maintainer   string   `json:"Maintainer"`
	NumVotes     int      `json:"NumVotes"`
	Popularity   float64  `json:"Popularity"`
	OutOfDate    *int64   `json:"OutOfDate"`
	LastModified int64    `json:"LastModified"`
	Depends      []string `json:"Depends"`
	License      []string `json:"License"`
	Keywords     []string `json:"Keywords"`
}

// fetchAUR queries the AUR RPC v5 info endpoint.
func (b *Backend) fetchAUR(ctx context.Context, name string) (*index.PackageMeta, error) {
	url := fmt.Sprintf("%s/rpc/v5/info?arg[]=%s", b.aurURL, integrations.URLEncode(name))
	resp, err := b.aur(ctx, "aur/info/"+name, url)
	if err != nil {
		return nil, err
	}
	for _, p := range resp.Results {
		if p.Name == name {
			return p.toMeta(b.aurURL), nil
		}
	}
	return nil, errors.NotFound("package %q not found in the AUR", name)
}

func (b *Backend) searchAUR(ctx context.Context, query string) ([]index.PackageMeta, error) {
	url := fmt.Sprintf("%s/rpc/v5/search/%s?by=name-desc", b.aurURL, integrations.PathEscape(query))
	resp, err := b.aur(ctx, "aur/search/"+query, url)
	if err != nil {
		return nil, err
	}
	out := make([]index.PackageMeta, 0, len(resp.Results))
	for _, p := range resp.Results {
		out = append(out, *p.toMeta(b.aurURL))
	}
	return out, nil
}

func (b *Backend) aur(ctx context.Context, key, url string) (*aurResponse, error) {
	var resp aurResponse
	if err := b.GetJSON(ctx, key, url, &resp); err != nil {
		return nil, err
	}
	if resp.Type == "error" {
		return nil, errors.New(errors.ErrCodeNetwork, "aur: %s", resp.Error)
	}
	return &resp, nil
}

func (p aurPackage) toMeta(aurURL string) *index.PackageMeta {
	meta := &index.PackageMeta{
		Name:         p.Name,
		Version:      p.Version,
		Description:  p.Description,
		Homepage:     p.URL,
		License:      strings.Join(p.License, " AND "),
		Keywords:     p.Keywords,
		Dependencies: archive.StripConstraints(p.Depends),
	}
	if p.URLPath != "" {
		meta.ArchiveURL = aurURL + p.URLPath
	}
	if p.Maintainer != "" {
		meta.Maintainers = []string{p.Maintainer}
	}
	if p.LastModified > 0 {
		t := time.Unix(p.LastModified, 0).UTC()
		meta.Published = &t
	}
	meta.SetExtra(archive.ExtraSourceRepo, SourceAUR)
	meta.SetExtra("votes", p.NumVotes)
	meta.SetExtra("popularity", p.Popularity)
	if p.OutOfDate != nil {
		meta.SetExtra("out_of_date", true)
	}
	if p.PackageBase != "" && p.PackageBase != p.Name {
		meta.SetExtra(archive.ExtraPackageBase, p.PackageBase)
	}
	return meta
}
