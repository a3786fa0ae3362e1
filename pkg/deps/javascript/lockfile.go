package javascript

import (
	"github.com/matzehuels/depscope/pkg/deps"
)

// lockfile is the common form every Node lockfile decodes into.
type lockfile struct {
	graph deps.LockGraph
	// direct maps a direct dependency name to its key, for formats that
	// record the root project's resolutions.
	direct map[string]string
	// specs maps "name@range" descriptors to keys, for formats keyed by the
	// requested range (yarn).
	specs map[string]string
}

func newLockfile() *lockfile {
	return &lockfile{
		graph:  make(deps.LockGraph),
		direct: make(map[string]string),
		specs:  make(map[string]string),
	}
}

// merge adds an entry, unioning dependencies when the key already exists.
func (l *lockfile) merge(key, name, version string, depKeys []string) {
	e, ok := l.graph[key]
	if !ok {
		l.graph[key] = deps.LockEntry{Name: name, Version: version, Deps: depKeys}
		return
	}
	have := make(map[string]bool, len(e.Deps))
	for _, d := range e.Deps {
		have[d] = true
	}
	for _, d := range depKeys {
		if !have[d] {
			have[d] = true
			e.Deps = append(e.Deps, d)
		}
	}
	l.graph[key] = e
}

// rootKey resolves a manifest dependency to its lock key.
func (l *lockfile) rootKey(d deps.Dependency) string {
	if k, ok := l.direct[d.Name]; ok {
		return k
	}
	for _, spec := range []string{d.Name + "@" + d.VersionReq, d.Name + "@npm:" + d.VersionReq} {
		if k, ok := l.specs[spec]; ok {
			return k
		}
	}
	if keys := l.graph.ByName()[d.Name]; len(keys) > 0 {
		return keys[len(keys)-1]
	}
	return d.Name
}

// installed returns the version the root project resolves name to. Without
// a direct resolution the hoisted copy, the one with the shortest key, wins.
func (l *lockfile) installed(name string) string {
	if k, ok := l.direct[name]; ok {
		return l.graph[k].Version
	}
	best := ""
	for _, k := range l.graph.ByName()[name] {
		if best == "" || len(k) < len(best) {
			best = k
		}
	}
	if best == "" {
		return ""
	}
	return l.graph[best].Version
}

func (l *lockfile) tree(direct []deps.Dependency, maxDepth int) []deps.TreeNode {
	roots := make([]string, 0, len(direct))
	for _, d := range direct {
		roots = append(roots, l.rootKey(d))
	}
	return l.graph.Materialize(roots, maxDepth)
}
