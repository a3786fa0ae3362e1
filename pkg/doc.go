// Package pkg holds the depscope libraries.
//
// Depscope has two views of a dependency. The local view reads a project's
// manifest and lockfile:
//
//   - [deps]: shared types, lockfile graphs and the Ecosystem interface
//   - [deps/rust], [deps/javascript], [deps/deno]: Cargo, Node and Deno
//   - [deps/ecosystems]: registry and project detection
//
// The remote view asks a package index what is published:
//
//   - [index]: the PackageIndex interface, the parallel repository loader,
//     fallback chains and the decoded database memo
//   - [integrations]: registry and distribution backends on a cached HTTP client
//   - [archive]: decoders for pacman, RPM-MD and XBPS repository databases
//   - [index/indexes]: the backend registry
//
// [outdated] joins both views. [cache], [errors], [observability] and
// [render/dot] support the rest.
//
//	eco, _ := ecosystems.Detect(".", deps.Options{}, nil)
//	idx, _ := indexes.Open(indexes.ForEcosystem(eco.Name()), indexes.Options{})
//	list, _ := eco.ListDependencies(".")
//	report, _ := outdated.Check(ctx, eco, idx, ".", list, outdated.Options{})
//
// [deps]: github.com/matzehuels/depscope/pkg/deps
// [deps/rust]: github.com/matzehuels/depscope/pkg/deps/rust
// [deps/javascript]: github.com/matzehuels/depscope/pkg/deps/javascript
// [deps/deno]: github.com/matzehuels/depscope/pkg/deps/deno
// [deps/ecosystems]: github.com/matzehuels/depscope/pkg/deps/ecosystems
// [index]: github.com/matzehuels/depscope/pkg/index
// [integrations]: github.com/matzehuels/depscope/pkg/integrations
// [archive]: github.com/matzehuels/depscope/pkg/archive
// [index/indexes]: github.com/matzehuels/depscope/pkg/index/indexes
// [outdated]: github.com/matzehuels/depscope/pkg/outdated
// [cache]: github.com/matzehuels/depscope/pkg/cache
// [errors]: github.com/matzehuels/depscope/pkg/errors
// [observability]: github.com/matzehuels/depscope/pkg/observability
// [render/dot]: github.com/matzehuels/depscope/pkg/render/dot
package pkg
