package rust

import (
	"path/filepath"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

// Name is the ecosystem identifier.
const Name = "cargo"

var lockfiles = []deps.LockfileManager{{Filename: "Cargo.lock", Manager: deps.ManagerCargo}}

// Ecosystem reads Cargo projects and workspaces.
type Ecosystem struct {
	opts   deps.Options
	runner deps.Runner
}

// New returns the Cargo ecosystem. A nil runner executes tools with
// [deps.ExecRunner].
func New(opts deps.Options, runner deps.Runner) *Ecosystem {
	if runner == nil {
		runner = deps.ExecRunner
	}
	return &Ecosystem{opts: opts.WithDefaults(), runner: runner}
}

func (e *Ecosystem) Name() string                      { return Name }
func (e *Ecosystem) ManifestFiles() []string           { return []string{"Cargo.toml"} }
func (e *Ecosystem) Lockfiles() []deps.LockfileManager { return lockfiles }

// ListDependencies returns the dependencies of the root package and of every
// workspace member, deduplicated by name and requirement.
func (e *Ecosystem) ListDependencies(root string) ([]deps.Dependency, error) {
	cf, err := readCargoToml(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return nil, err
	}
	manifests, err := cf.members(root)
	if err != nil {
		return nil, err
	}

	var out []deps.Dependency
	seen := make(map[deps.Dependency]bool)
	for _, path := range manifests {
		member := cf
		if path != filepath.Join(root, "Cargo.toml") {
			if member, err = readCargoToml(path); err != nil {
				e.opts.Logger.Warn("skipping workspace member", "manifest", path, "err", err)
				continue
			}
		}
		for _, d := range member.dependencies(cf.Workspace.Dependencies) {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// InstalledVersion returns the locked version of name, or "" when the
// project has no Cargo.lock or does not lock name. When several versions
// are locked, the one a workspace package depends on wins.
func (e *Ecosystem) InstalledVersion(root, name string) (string, error) {
	lf, err := e.readLock(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return "", nil
		}
		return "", err
	}
	return lf.graph.VersionFrom(lf.local, name), nil
}

// DependencyTree builds one tree per workspace member from Cargo.lock.
func (e *Ecosystem) DependencyTree(root string) (*deps.DependencyTree, error) {
	lf, err := e.readLock(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, deps.ErrNoLockfile(Name, root, lockfiles)
		}
		return nil, err
	}

	var members []string
	if cf, err := readCargoToml(filepath.Join(root, "Cargo.toml")); err == nil {
		manifests, _ := cf.members(root)
		for _, path := range manifests {
			if m, err := readCargoToml(path); err == nil && m.Package.Name != "" {
				members = append(members, m.Package.Name)
			}
		}
	}

	return &deps.DependencyTree{
		Ecosystem: Name,
		Lockfile:  "Cargo.lock",
		Roots:     lf.graph.Materialize(lf.roots(members), e.opts.MaxDepth),
	}, nil
}

func (e *Ecosystem) readLock(root string) (*lockfile, error) {
	data, err := deps.ReadFile(filepath.Join(root, "Cargo.lock"))
	if err != nil {
		return nil, err
	}
	return parseLock(data)
}
