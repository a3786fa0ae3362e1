package javascript

import (
	"context"
	"path/filepath"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

// Name is the ecosystem identifier.
const Name = "node"

// lockfiles is the preference order when a project carries several:
// pnpm, then yarn, then npm, then bun.
var lockfiles = deps.LockfilesOf(deps.ManagerPnpm, deps.ManagerYarn, deps.ManagerNpm, deps.ManagerBun)

// Ecosystem reads Node projects managed by npm, pnpm, yarn or bun.
type Ecosystem struct {
	opts   deps.Options
	runner deps.Runner
}

// New returns the Node ecosystem. A nil runner executes tools with
// [deps.ExecRunner].
func New(opts deps.Options, runner deps.Runner) *Ecosystem {
	if runner == nil {
		runner = deps.ExecRunner
	}
	return &Ecosystem{opts: opts.WithDefaults(), runner: runner}
}

func (e *Ecosystem) Name() string                      { return Name }
func (e *Ecosystem) ManifestFiles() []string           { return []string{"package.json"} }
func (e *Ecosystem) Lockfiles() []deps.LockfileManager { return lockfiles }

func (e *Ecosystem) ListDependencies(root string) ([]deps.Dependency, error) {
	pkg, err := readPackageJSON(root)
	if err != nil {
		return nil, err
	}
	return pkg.dependencies(), nil
}

// InstalledVersion returns the version the first usable lockfile resolves
// name to, or "" when there is no lockfile or it does not list name.
func (e *Ecosystem) InstalledVersion(root, name string) (string, error) {
	lf, _, err := e.load(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return "", nil
		}
		return "", err
	}
	return lf.installed(name), nil
}

// DependencyTree builds one tree per direct dependency of package.json from
// the first usable lockfile.
func (e *Ecosystem) DependencyTree(root string) (*deps.DependencyTree, error) {
	pkg, err := readPackageJSON(root)
	if err != nil {
		return nil, err
	}
	lf, used, err := e.load(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, deps.ErrNoLockfile(Name, root, lockfiles)
		}
		return nil, err
	}
	return &deps.DependencyTree{
		Ecosystem: Name,
		Lockfile:  used.Filename,
		Roots:     lf.tree(pkg.dependencies(), e.opts.MaxDepth),
	}, nil
}

// load parses the first lockfile that is present and decodes. Lockfiles that
// fail to decode are logged and skipped; if none decodes, the first failure
// is returned. NOT_FOUND means no lockfile is present at all.
func (e *Ecosystem) load(root string) (*lockfile, deps.LockfileManager, error) {
	var firstErr error
	for _, l := range lockfiles {
		data, err := deps.ReadFile(filepath.Join(root, l.Filename))
		if errors.Is(err, errors.ErrCodeNotFound) {
			continue
		}
		var lf *lockfile
		if err == nil {
			lf, err = parseLockfile(root, l.Filename, data)
		}
		if err != nil {
			e.opts.Logger.Warn("skipping lockfile", "lockfile", l.Filename, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return lf, l, nil
	}
	if firstErr != nil {
		return nil, deps.LockfileManager{}, firstErr
	}
	return nil, deps.LockfileManager{}, errors.NotFound("no lockfile in %s", root)
}

func parseLockfile(root, filename string, data []byte) (*lockfile, error) {
	switch filename {
	case "pnpm-lock.yaml":
		return parsePnpm(data)
	case "yarn.lock":
		return parseYarn(data)
	case "package-lock.json", "npm-shrinkwrap.json":
		return parseNpmLock(data, filename)
	case "bun.lock":
		return parseBun(data)
	case "bun.lockb":
		return nil, errBunBinary(root)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unsupported lockfile %s", filename)
}

// Audit runs the audit command of the package manager that owns the
// project's lockfile. bun has no audit source and yields an empty result.
func (e *Ecosystem) Audit(ctx context.Context, root string) (*deps.AuditResult, error) {
	l, _, ok := deps.FindLockfile(root, lockfiles)
	if !ok {
		return nil, deps.ErrNoLockfile(Name, root, lockfiles)
	}

	res := &deps.AuditResult{Tool: string(l.Manager), Vulnerabilities: []deps.Vulnerability{}}
	var (
		vulns []deps.Vulnerability
		err   error
	)
	switch l.Manager {
	case deps.ManagerPnpm:
		var out []byte
		if out, err = deps.RunAudit(ctx, e.runner, root, "pnpm", "audit", "--json"); err == nil {
			vulns, err = parsePnpmAudit(out)
		}
	case deps.ManagerYarn:
		var out []byte
		if out, err = deps.RunAudit(ctx, e.runner, root, "yarn", "audit", "--json"); err == nil {
			vulns, err = parseYarnAudit(out)
		}
	case deps.ManagerNpm:
		var out []byte
		if out, err = deps.RunAudit(ctx, e.runner, root, "npm", "audit", "--json"); err == nil {
			var installed func(string) string
			if lf, _, lerr := e.load(root); lerr == nil {
				installed = lf.installed
			}
			vulns, err = parseNpmAudit(out, installed)
		}
	default:
		e.opts.Logger.Debug("no audit source", "manager", l.Manager)
		res.Tool = ""
	}
	if err != nil {
		return nil, err
	}
	res.Vulnerabilities = append(res.Vulnerabilities, vulns...)
	return res, nil
}
