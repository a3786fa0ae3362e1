package pacman

import (
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
)

// Repo is one repository database on a mirror.
type Repo struct {
	// Name labels the repository in logs and in Extra["source_repo"].
	Name string
	// BaseURL is the directory holding the database and the package files.
	BaseURL string
	// DB is the database file stem ("core" for core.db). Empty means Name.
	DB string
}

// DBURL returns the URL of the repository database.
func (r Repo) DBURL() string {
	db := r.DB
	if db == "" {
		db = r.Name
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + db + ".db"
}

// Distro describes a pacman-based distribution: its mirror layout, the
// repositories it publishes and which of them are considered stable.
type Distro struct {
	// Name is the index name ("arch", "manjaro", ...).
	Name string
	// Mirror is the default mirror root.
	Mirror string
	// Arch is the default architecture.
	Arch string

	repos  []string
	stable []string
	layout func(mirror, arch, repo string) Repo

	archwebURL string
	aurURL     string
}

// All returns every repository of the distribution in lookup order.
func (d Distro) All() []string { return slices.Clone(d.repos) }

// Stable returns the repositories of the stable channel.
func (d Distro) Stable() []string { return slices.Clone(d.stable) }

// WithRepos validates names against the distribution's repositories and
// returns them unchanged.
func (d Distro) WithRepos(names ...string) ([]string, error) {
	for _, n := range names {
		if !slices.Contains(d.repos, n) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown %s repository %q", d.Name, n).
				WithHint("known repositories: %s", strings.Join(d.repos, ", "))
		}
	}
	return slices.Clone(names), nil
}

// Repos resolves repository names to their locations on mirror.
func (d Distro) Repos(mirror string, names ...string) ([]Repo, error) {
	names, err := d.WithRepos(names...)
	if err != nil {
		return nil, err
	}
	if mirror == "" {
		mirror = d.Mirror
	}
	mirror = strings.TrimRight(mirror, "/")

	out := make([]Repo, 0, len(names))
	for _, n := range names {
		out = append(out, d.layout(mirror, d.Arch, n))
	}
	return out, nil
}

// Options configures a backend built from a [Distro].
type Options struct {
	// Repos selects repositories by name. Empty means Stable().
	Repos []string
	// Mirror overrides the distribution's default mirror.
	Mirror string
	// Logger receives warnings for repositories that fail to load.
	Logger *log.Logger
	// Memo shares decoded databases between backends. Nil allocates one.
	Memo *index.Memo
}

// New builds a backend for the distribution.
func (d Distro) New(backend cache.Cache, cacheTTL time.Duration, opts Options) (*Backend, error) {
	names := opts.Repos
	if len(names) == 0 {
		names = d.stable
	}
	repos, err := d.Repos(opts.Mirror, names...)
	if err != nil {
		return nil, err
	}
	return NewBackend(backend, cacheTTL, Config{
		Name:       d.Name,
		Repos:      repos,
		ArchwebURL: d.archwebURL,
		AURURL:     d.aurURL,
		Logger:     opts.Logger,
		Memo:       opts.Memo,
	}), nil
}

// osLayout is the <mirror>/<repo>/os/<arch> layout used by Arch and Artix.
func osLayout(mirror, arch, repo string) Repo {
	return Repo{Name: repo, BaseURL: mirror + "/" + repo + "/os/" + arch}
}

// Arch is Arch Linux. Lookups fall back to archweb and the AUR.
var Arch = Distro{
	Name:   "arch",
	Mirror: "https://geo.mirror.pkgbuild.com",
	Arch:   "x86_64",
	repos: []string{
		"core", "extra", "multilib",
		"core-testing", "extra-testing", "multilib-testing",
		"core-staging", "extra-staging", "multilib-staging",
	},
	stable:     []string{"core", "extra", "multilib"},
	layout:     osLayout,
	archwebURL: "https://archlinux.org",
	aurURL:     "https://aur.archlinux.org",
}

// Artix is Artix Linux. gremlins is its testing tier, goblins its staging
// tier.
var Artix = Distro{
	Name:   "artix",
	Mirror: "https://mirrors.dotsrc.org/artix-linux/repos",
	Arch:   "x86_64",
	repos: []string{
		"system", "world", "galaxy", "lib32",
		"system-gremlins", "world-gremlins", "galaxy-gremlins", "lib32-gremlins",
		"system-goblins", "world-goblins", "galaxy-goblins", "lib32-goblins",
	},
	stable: []string{"system", "world", "galaxy", "lib32"},
	layout: osLayout,
}

// CachyOS publishes generic x86_64 packages plus rebuilds for the x86-64-v3
// and x86-64-v4 microarchitecture levels.
var CachyOS = Distro{
	Name:   "cachyos",
	Mirror: "https://mirror.cachyos.org/repo",
	Arch:   "x86_64",
	repos: []string{
		"cachyos",
		"cachyos-v3", "cachyos-core-v3", "cachyos-extra-v3",
		"cachyos-v4", "cachyos-core-v4", "cachyos-extra-v4",
	},
	stable: []string{"cachyos", "cachyos-v3", "cachyos-core-v3", "cachyos-extra-v3"},
	layout: func(mirror, arch, repo string) Repo {
		switch {
		case strings.HasSuffix(repo, "-v3"):
			arch += "_v3"
		case strings.HasSuffix(repo, "-v4"):
			arch += "_v4"
		}
		return Repo{Name: repo, BaseURL: mirror + "/" + arch + "/" + repo}
	},
}

// EndeavourOS ships one repository on top of Arch Linux.
var EndeavourOS = Distro{
	Name:   "endeavouros",
	Mirror: "https://mirror.alpix.eu/endeavouros/repo",
	Arch:   "x86_64",
	repos:  []string{"endeavouros"},
	stable: []string{"endeavouros"},
	layout: func(mirror, arch, repo string) Repo {
		return Repo{Name: repo, BaseURL: mirror + "/" + repo + "/" + arch}
	},
}

// Manjaro publishes each repository on three branches. Repository names
// are "<branch>/<repo>", for example "testing/extra".
var Manjaro = Distro{
	Name:   "manjaro",
	Mirror: "https://mirror.manjaro.org/repo",
	Arch:   "x86_64",
	repos:  branchRepos([]string{"stable", "testing", "unstable"}, []string{"core", "extra", "multilib"}),
	stable: branchRepos([]string{"stable"}, []string{"core", "extra", "multilib"}),
	layout: func(mirror, arch, repo string) Repo {
		branch, name, _ := strings.Cut(repo, "/")
		return Repo{Name: repo, BaseURL: mirror + "/" + branch + "/" + name + "/" + arch, DB: name}
	},
}

func branchRepos(branches, repos []string) []string {
	out := make([]string, 0, len(branches)*len(repos))
	for _, b := range branches {
		for _, r := range repos {
			out = append(out, b+"/"+r)
		}
	}
	return out
}

// Distros lists every supported distribution.
var Distros = []Distro{Arch, Artix, CachyOS, EndeavourOS, Manjaro}
