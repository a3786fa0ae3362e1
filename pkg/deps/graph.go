package deps

import "sort"

// LockEntry is one resolved package in a lockfile: its version and the keys
// of the packages it depends on.
type LockEntry struct {
	Name    string
	Version string
	Deps    []string
}

// LockGraph is the flat form every lockfile reader produces: package key to
// resolved entry. Keys are whatever the format uses to identify a resolved
// package (usually [Key]); dependency keys must use the same scheme.
//
// A LockGraph is owned by the call that built it and is never shared.
type LockGraph map[string]LockEntry

// Key is the canonical "name@version" lock key.
func Key(name, version string) string {
	if version == "" {
		return name
	}
	return name + "@" + version
}

// Add records an entry under Key(name, version) and returns the key.
func (g LockGraph) Add(name, version string, deps ...string) string {
	k := Key(name, version)
	g[k] = LockEntry{Name: name, Version: version, Deps: deps}
	return k
}

// Materialize expands each root key into a tree.
//
// The traversal is depth-first with a visited set that holds only the keys
// on the current path: a key already on the path is emitted as a leaf
// instead of being expanded, so cycles terminate, while a package reached
// through two branches is expanded under both. Nodes deeper than maxDepth
// are emitted without children. Keys missing from the graph become leaves
// named after the key.
func (g LockGraph) Materialize(roots []string, maxDepth int) []TreeNode {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	onPath := make(map[string]bool)
	out := make([]TreeNode, 0, len(roots))
	for _, k := range roots {
		out = append(out, g.materialize(k, onPath, maxDepth))
	}
	return out
}

func (g LockGraph) materialize(key string, onPath map[string]bool, depth int) TreeNode {
	entry, ok := g[key]
	if !ok {
		name, version := SplitNameVersion(key)
		return TreeNode{Name: name, Version: version}
	}
	node := TreeNode{Name: entry.Name, Version: entry.Version}
	if onPath[key] || depth <= 1 {
		return node
	}

	onPath[key] = true
	for _, dep := range entry.Deps {
		node.Dependencies = append(node.Dependencies, g.materialize(dep, onPath, depth-1))
	}
	delete(onPath, key)
	return node
}

// ByName indexes the graph by package name. When a name resolves to several
// versions the keys are kept in sorted order.
func (g LockGraph) ByName() map[string][]string {
	out := make(map[string][]string)
	for k, e := range g {
		out[e.Name] = append(out[e.Name], k)
	}
	for _, keys := range out {
		sort.Strings(keys)
	}
	return out
}

// Version returns the version of the first entry named name, or "".
func (g LockGraph) Version(name string) string {
	keys := g.ByName()[name]
	if len(keys) == 0 {
		return ""
	}
	return g[keys[0]].Version
}

// VersionFrom returns the version of name as the given roots see it: a root
// named name wins, then a direct dependency of a root, in root order. Only
// when neither matches does it fall back to [LockGraph.Version].
func (g LockGraph) VersionFrom(roots []string, name string) string {
	for _, k := range roots {
		if e, ok := g[k]; ok && e.Name == name {
			return e.Version
		}
	}
	for _, k := range roots {
		for _, d := range g[k].Deps {
			if e, ok := g[d]; ok && e.Name == name {
				return e.Version
			}
		}
	}
	return g.Version(name)
}

// SortTree orders every level of the forest by name, then version.
func SortTree(nodes []TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].Version < nodes[j].Version
	})
	for i := range nodes {
		SortTree(nodes[i].Dependencies)
	}
}
