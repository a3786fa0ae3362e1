// Package indexes is the static registry of every Package Index backend.
//
// Backends are selected by name and configured through [Options]; nothing
// here holds global mutable state.
//
//	idx, err := indexes.Open("arch", indexes.Options{Cache: c, Channel: "all"})
//	meta, err := idx.Fetch(ctx, "ripgrep")
package indexes

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/integrations/crates"
	"github.com/matzehuels/depscope/pkg/integrations/fedora"
	"github.com/matzehuels/depscope/pkg/integrations/jsr"
	"github.com/matzehuels/depscope/pkg/integrations/maven"
	"github.com/matzehuels/depscope/pkg/integrations/npm"
	"github.com/matzehuels/depscope/pkg/integrations/opensuse"
	"github.com/matzehuels/depscope/pkg/integrations/pacman"
	"github.com/matzehuels/depscope/pkg/integrations/void"
)

// Deno is the name of the JSR-then-npm chain used for Deno projects.
const Deno = "deno"

// DefaultTTL is the cache lifetime used when Options.TTL is zero.
const DefaultTTL = 24 * time.Hour

// Options configures a backend.
type Options struct {
	// Cache stores raw HTTP responses. Nil disables caching.
	Cache cache.Cache
	// TTL is the lifetime of cached responses.
	TTL time.Duration
	// Logger receives per-repository warnings.
	Logger *log.Logger
	// Channel selects repositories for distribution backends: "" or
	// "stable", "all", or a comma-separated list of repository names. For
	// fedora it lists release branches.
	Channel string
	// Mirror overrides the default mirror. For maven it is a comma-separated
	// list of repository roots probed after Central search.
	Mirror string
	// Arch selects the architecture where a backend supports several.
	Arch string
	// Libc selects glibc or musl repositories (void only).
	Libc string
	// Memo shares decoded repository databases between backends.
	Memo *index.Memo
}

func (o Options) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

type opener func(Options) (index.PackageIndex, error)

var registry = map[string]opener{
	crates.Name: func(o Options) (index.PackageIndex, error) {
		return crates.NewClient(o.Cache, o.ttl()), nil
	},
	npm.Name: func(o Options) (index.PackageIndex, error) {
		return npm.NewClient(o.Cache, o.ttl()), nil
	},
	jsr.Name: func(o Options) (index.PackageIndex, error) {
		return jsr.NewClient(o.Cache, o.ttl()), nil
	},
	Deno: func(o Options) (index.PackageIndex, error) {
		return index.NewChain(Deno, jsr.NewClient(o.Cache, o.ttl()), npm.NewClient(o.Cache, o.ttl())), nil
	},
	maven.Name: func(o Options) (index.PackageIndex, error) {
		return maven.NewClient(o.Cache, o.ttl(), splitList(o.Mirror)...), nil
	},
	fedora.Name: func(o Options) (index.PackageIndex, error) {
		var releases []string
		if ch := strings.TrimSpace(o.Channel); ch != "" && ch != "stable" && ch != "all" {
			releases = splitList(ch)
		}
		return fedora.NewClient(o.Cache, o.ttl(), o.Logger, releases...), nil
	},
	opensuse.Name: func(o Options) (index.PackageIndex, error) {
		repos, err := selectRepos(o.Channel, opensuse.All, opensuse.Stable)
		if err != nil {
			return nil, err
		}
		return opensuse.NewClient(o.Cache, o.ttl(), opensuse.Options{
			Repos: repos, Mirror: o.Mirror, Logger: o.Logger, Memo: o.Memo,
		})
	},
	void.Name: func(o Options) (index.PackageIndex, error) {
		repos, err := selectRepos(o.Channel, void.All, void.Stable)
		if err != nil {
			return nil, err
		}
		return void.NewClient(o.Cache, o.ttl(), void.Options{
			Repos: repos, Arch: o.Arch, Libc: void.Libc(o.Libc), Mirror: o.Mirror, Logger: o.Logger, Memo: o.Memo,
		})
	},
}

func init() {
	for _, d := range pacman.Distros {
		registry[d.Name] = func(o Options) (index.PackageIndex, error) {
			distro := d
			repos, err := selectRepos(o.Channel, distro.All, distro.Stable)
			if err != nil {
				return nil, err
			}
			if o.Arch != "" {
				distro.Arch = o.Arch
			}
			return distro.New(o.Cache, o.ttl(), pacman.Options{
				Repos: repos, Mirror: o.Mirror, Logger: o.Logger, Memo: o.Memo,
			})
		}
	}
}

// Open returns the backend registered under name.
func Open(name string, opts Options) (index.PackageIndex, error) {
	open, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown package index %q", name).
			WithHint("available: %s", strings.Join(Names(), ", "))
	}
	return open(opts)
}

// Names lists the registered backends in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForEcosystem returns the index that serves packages of a local ecosystem
// ("cargo", "node", "deno"), or "" when there is none.
func ForEcosystem(ecosystem string) string {
	switch ecosystem {
	case "cargo", "rust":
		return crates.Name
	case "node", "npm", "pnpm", "yarn", "bun", "javascript":
		return npm.Name
	case "deno":
		return Deno
	}
	return ""
}

// SupportsFetchAll reports whether the named backend can enumerate its
// catalog, without constructing it.
func SupportsFetchAll(name string) bool {
	switch name {
	case opensuse.Name, void.Name:
		return true
	}
	for _, d := range pacman.Distros {
		if d.Name == name {
			return true
		}
	}
	return false
}

// selectRepos maps a channel string to repository names.
func selectRepos(channel string, all, stable func() []string) ([]string, error) {
	switch ch := strings.TrimSpace(channel); ch {
	case "", "stable":
		return stable(), nil
	case "all":
		return all(), nil
	default:
		return splitList(ch), nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
