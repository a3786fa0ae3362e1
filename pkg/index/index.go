// Package index defines the remote view of a package ecosystem: the
// [PackageIndex] interface implemented by every registry and distribution
// backend, the records it returns, and the shared machinery backends are
// built from.
//
// # Records
//
// [PackageMeta] is the normalized description of one package at one version.
// Fields a backend cannot fill stay at their zero value. Backend-specific
// data goes into Extra under a key owned by that backend (for example
// "source_repo" for distribution mirrors); no other component depends on
// Extra keys being present.
//
// # Loading
//
// Distribution backends enumerate several repository databases at once.
// [Load] fans those fetches out over a bounded worker pool, keeps whatever
// succeeded and logs the rest, so one unreachable mirror never hides the
// packages of the others.
package index

import (
	"context"
	"time"

	"github.com/matzehuels/depscope/pkg/errors"
)

// PackageMeta is the metadata of a single package version.
type PackageMeta struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Description  string              `json:"description,omitempty"`
	Homepage     string              `json:"homepage,omitempty"`
	Repository   string              `json:"repository,omitempty"`
	License      string              `json:"license,omitempty"`
	Keywords     []string            `json:"keywords,omitempty"`
	Maintainers  []string            `json:"maintainers,omitempty"`
	Published    *time.Time          `json:"published,omitempty"`
	Downloads    uint64              `json:"downloads,omitempty"`
	ArchiveURL   string              `json:"archive_url,omitempty"`
	Checksum     string              `json:"checksum,omitempty"` // "sha256:<hex>", "sha512:<hex>", "md5:<hex>"
	Features     map[string][]string `json:"features,omitempty"`
	Dependencies []string            `json:"dependencies,omitempty"`
	Extra        map[string]any      `json:"extra,omitempty"`
}

// SetExtra stores v under key, allocating Extra on first use.
func (m *PackageMeta) SetExtra(key string, v any) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[key] = v
}

// ExtraString returns Extra[key] if it holds a string.
func (m *PackageMeta) ExtraString(key string) string {
	s, _ := m.Extra[key].(string)
	return s
}

// VersionMeta describes one published version of a package.
type VersionMeta struct {
	Version  string     `json:"version"`
	Released *time.Time `json:"released,omitempty"`
	Yanked   bool       `json:"yanked,omitempty"`
}

// PackageIndex is the remote view of an ecosystem.
//
// Fetch returns the latest version's metadata or a NOT_FOUND error.
// FetchAll enumerates the whole catalog and is only offered by bounded
// catalogs such as distribution repositories; callers must check
// SupportsFetchAll first, and unbounded registries return UNSUPPORTED.
type PackageIndex interface {
	Name() string
	Fetch(ctx context.Context, name string) (*PackageMeta, error)
	FetchVersions(ctx context.Context, name string) ([]VersionMeta, error)
	Search(ctx context.Context, query string) ([]PackageMeta, error)
	FetchAll(ctx context.Context) ([]PackageMeta, error)
	SupportsFetchAll() bool
}

// ErrFetchAllUnsupported is returned by FetchAll on registries whose catalog
// cannot be enumerated.
func ErrFetchAllUnsupported(index string) error {
	return errors.New(errors.ErrCodeUnsupported, "%s does not support listing every package", index).
		WithHint("use search instead")
}

// ErrNotFound builds the NOT_FOUND error returned when no source knows name.
func ErrNotFound(index, name string) error {
	return errors.NotFound("package %q not found in %s", name, index).
		WithHint("try `depscope search --index %s %s`", index, name)
}
