// Package deps models a project's dependencies as its package managers see
// them locally.
//
// # Ecosystems
//
// An [Ecosystem] reads one family of projects: manifests for the declared
// [Dependency] list, lockfiles for resolved versions and trees, and an
// external audit tool for vulnerabilities. Implementations live in the
// rust, javascript and deno subpackages; package ecosystems selects one by
// name or by sniffing manifests.
//
// # Trees
//
// Every lockfile reader produces a flat [LockGraph], key to resolved entry,
// and [LockGraph.Materialize] expands it into [TreeNode] values. Expansion
// tracks only the current root-to-leaf path, so a cycle ends in a leaf that
// repeats an ancestor while a package shared by two branches is expanded
// under both. Depth is capped at [DefaultMaxDepth] unless configured.
//
//	g := make(deps.LockGraph)
//	a := g.Add("a", "1.0.0", "b@1.0.0")
//	g.Add("b", "1.0.0", a)
//	roots := g.Materialize([]string{a}, 0) // a -> b -> a (leaf)
//
// [Crawl] builds the same graph from a remote package index instead of a
// lockfile, for packages that are not installed locally.
//
// # Errors
//
// Reading a manifest or lockfile is authoritative: a missing file is
// NOT_FOUND and an undecodable one is PARSE_ERROR. A project without a
// lockfile cannot produce a tree and fails with PARSE_ERROR and a hint to
// run the package manager. Audit tools that are missing or print garbage
// fail with TOOL_FAILED.
package deps
