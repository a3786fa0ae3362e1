package deps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/depscope/pkg/errors"
)

// Manager identifies the tool that owns a lockfile.
type Manager string

const (
	ManagerCargo Manager = "cargo"
	ManagerPnpm  Manager = "pnpm"
	ManagerYarn  Manager = "yarn"
	ManagerNpm   Manager = "npm"
	ManagerBun   Manager = "bun"
	ManagerDeno  Manager = "deno"
)

// LockfileManager maps a lockfile name to the tool that writes it.
type LockfileManager struct {
	Filename string
	Manager  Manager
}

// Lockfiles is the static table of every lockfile understood, in the
// preference order used when a project carries several.
var Lockfiles = []LockfileManager{
	{"Cargo.lock", ManagerCargo},
	{"pnpm-lock.yaml", ManagerPnpm},
	{"yarn.lock", ManagerYarn},
	{"npm-shrinkwrap.json", ManagerNpm},
	{"package-lock.json", ManagerNpm},
	{"bun.lock", ManagerBun},
	{"bun.lockb", ManagerBun},
	{"deno.lock", ManagerDeno},
}

// LockfilesOf returns the rows of Lockfiles owned by managers, keeping the
// table's preference order.
func LockfilesOf(managers ...Manager) []LockfileManager {
	var out []LockfileManager
	for _, l := range Lockfiles {
		for _, m := range managers {
			if l.Manager == m {
				out = append(out, l)
				break
			}
		}
	}
	return out
}

// ManagerFor returns the manager owning the lockfile filename.
func ManagerFor(filename string) (Manager, bool) {
	base := filepath.Base(filename)
	for _, l := range Lockfiles {
		if l.Filename == base {
			return l.Manager, true
		}
	}
	return "", false
}

// Ecosystem is the local view of a project for one family of package
// managers.
//
// ListDependencies reads only the manifest. InstalledVersion and
// DependencyTree consult the lockfiles in the order Lockfiles returns them
// and use the first one that is present and usable.
type Ecosystem interface {
	// Name returns the ecosystem identifier ("cargo", "node", "deno").
	Name() string
	// ManifestFiles lists the manifest filenames that identify a project.
	ManifestFiles() []string
	// Lockfiles lists supported lockfiles in preference order.
	Lockfiles() []LockfileManager
	// ListDependencies returns the dependencies the manifest declares.
	ListDependencies(root string) ([]Dependency, error)
	// InstalledVersion returns the locked version of name, or "" when no
	// lockfile lists it.
	InstalledVersion(root, name string) (string, error)
	// DependencyTree builds the tree from the first usable lockfile. It
	// fails with PARSE_ERROR when there is none.
	DependencyTree(root string) (*DependencyTree, error)
	// Audit runs the ecosystem's vulnerability scanner. Ecosystems without
	// one return an empty result.
	Audit(ctx context.Context, root string) (*AuditResult, error)
}

// FindLockfile returns the first lockfile of candidates present in root.
func FindLockfile(root string, candidates []LockfileManager) (LockfileManager, string, bool) {
	for _, l := range candidates {
		path := filepath.Join(root, l.Filename)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return l, path, true
		}
	}
	return LockfileManager{}, "", false
}

// HasManifest reports whether root contains one of the manifest files.
func HasManifest(root string, manifests []string) bool {
	for _, m := range manifests {
		if fi, err := os.Stat(filepath.Join(root, m)); err == nil && !fi.IsDir() {
			return true
		}
	}
	return false
}

// ReadFile reads an authoritative project file. A missing file is NOT_FOUND,
// any other failure IO_ERROR.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "%s not found", filepath.Base(path))
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	return data, nil
}

// ErrNoLockfile is returned by DependencyTree when a project has no usable
// lockfile.
func ErrNoLockfile(ecosystem, root string, candidates []LockfileManager) error {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Filename)
	}
	return errors.New(errors.ErrCodeParse, "no %s lockfile found in %s (looked for %v)", ecosystem, root, names).
		WithHint("run the package manager's install command to create one")
}
