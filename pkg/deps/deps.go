package deps

import (
	"github.com/charmbracelet/log"
)

const (
	DefaultMaxDepth = 50   // Default maximum tree depth
	DefaultMaxNodes = 5000 // Default maximum packages to fetch when crawling a registry
)

// Dependency is a requirement declared in a manifest, not yet resolved.
type Dependency struct {
	Name       string `json:"name"`
	VersionReq string `json:"version_req,omitempty"` // "^1.0", "workspace:*", "" when unconstrained
	Optional   bool   `json:"optional,omitempty"`
	Dev        bool   `json:"dev,omitempty"`
}

// TreeNode is one resolved package and the packages it depends on.
//
// Trees are materialized per root: a package reachable along two branches
// appears under both, and a package that closes a cycle appears once more as
// a leaf.
type TreeNode struct {
	Name         string     `json:"name"`
	Version      string     `json:"version"`
	Dependencies []TreeNode `json:"dependencies,omitempty"`
}

// Count returns the number of nodes in the subtree rooted at n.
func (n TreeNode) Count() int {
	total := 1
	for _, d := range n.Dependencies {
		total += d.Count()
	}
	return total
}

// Walk calls fn for every node in depth-first order with its depth below the
// root (0 for n itself). Returning false skips the node's children.
func (n TreeNode) Walk(fn func(node TreeNode, depth int) bool) {
	n.walk(fn, 0)
}

func (n TreeNode) walk(fn func(TreeNode, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, d := range n.Dependencies {
		d.walk(fn, depth+1)
	}
}

// DependencyTree is the resolved dependency forest of a project. Roots are
// the workspace members or the declared direct dependencies, depending on
// the ecosystem.
type DependencyTree struct {
	Ecosystem string     `json:"ecosystem"`
	Lockfile  string     `json:"lockfile,omitempty"`
	Roots     []TreeNode `json:"roots"`
}

// Vulnerability is one advisory affecting an installed package.
type Vulnerability struct {
	Package  string `json:"package"`
	Version  string `json:"version,omitempty"`
	Severity string `json:"severity,omitempty"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	CVE      string `json:"cve,omitempty"`
	FixedIn  string `json:"fixed_in,omitempty"`
}

// AuditResult is the outcome of a vulnerability audit.
type AuditResult struct {
	Tool            string          `json:"tool,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// Options configures tree materialization and registry crawling.
type Options struct {
	MaxDepth int         // Maximum depth to traverse (default: 50)
	MaxNodes int         // Maximum packages to fetch when crawling (default: 5000)
	Logger   *log.Logger // Receives warnings for packages that fail to fetch
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return opts
}
