package deno

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

// Name is the ecosystem identifier.
const Name = "deno"

var (
	manifestFiles = []string{"deno.json", "deno.jsonc"}
	lockfiles     = []deps.LockfileManager{{Filename: "deno.lock", Manager: deps.ManagerDeno}}
)

// Ecosystem reads Deno projects.
type Ecosystem struct {
	opts deps.Options
}

func New(opts deps.Options) *Ecosystem {
	return &Ecosystem{opts: opts.WithDefaults()}
}

func (e *Ecosystem) Name() string                      { return Name }
func (e *Ecosystem) ManifestFiles() []string           { return manifestFiles }
func (e *Ecosystem) Lockfiles() []deps.LockfileManager { return lockfiles }

// ListDependencies returns the packages named by the import map.
func (e *Ecosystem) ListDependencies(root string) ([]deps.Dependency, error) {
	cfg, err := readConfig(root)
	if err != nil {
		return nil, err
	}
	return cfg.dependencies(), nil
}

// InstalledVersion returns the locked version of name. Names without a
// scheme are looked up as jsr: and then npm: packages.
func (e *Ecosystem) InstalledVersion(root, name string) (string, error) {
	lf, err := e.readLock(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return "", nil
		}
		return "", err
	}
	requested, err := requestedImports(root)
	if err != nil {
		return "", err
	}
	roots := lf.roots(requested)
	for _, candidate := range []string{name, "jsr:" + name, "npm:" + name} {
		if v := lf.graph.VersionFrom(roots, candidate); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// DependencyTree builds one tree per import-map target from deno.lock.
func (e *Ecosystem) DependencyTree(root string) (*deps.DependencyTree, error) {
	lf, err := e.readLock(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, deps.ErrNoLockfile(Name, root, lockfiles)
		}
		return nil, err
	}

	requested, err := requestedImports(root)
	if err != nil {
		return nil, err
	}

	return &deps.DependencyTree{
		Ecosystem: Name,
		Lockfile:  "deno.lock",
		Roots:     lf.graph.Materialize(lf.roots(requested), e.opts.MaxDepth),
	}, nil
}

// requestedImports returns the import-map targets of deno.json in alias
// order. A project without a config has none.
func requestedImports(root string) ([]string, error) {
	cfg, err := readConfig(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	aliases := make([]string, 0, len(cfg.Imports))
	for a := range cfg.Imports {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	requested := make([]string, 0, len(aliases))
	for _, a := range aliases {
		requested = append(requested, cfg.Imports[a])
	}
	return requested, nil
}

// Audit returns an empty result: Deno has no vulnerability database.
func (e *Ecosystem) Audit(context.Context, string) (*deps.AuditResult, error) {
	return &deps.AuditResult{Vulnerabilities: []deps.Vulnerability{}}, nil
}

func (e *Ecosystem) readLock(root string) (*lockfile, error) {
	data, err := deps.ReadFile(filepath.Join(root, "deno.lock"))
	if err != nil {
		return nil, err
	}
	return parseLock(data)
}
