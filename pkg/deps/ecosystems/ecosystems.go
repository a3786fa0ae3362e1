// Package ecosystems is the static registry of [deps.Ecosystem]
// implementations and detects which one a project directory belongs to.
package ecosystems

import (
	"sort"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/deps/deno"
	"github.com/matzehuels/depscope/pkg/deps/javascript"
	"github.com/matzehuels/depscope/pkg/deps/rust"
	"github.com/matzehuels/depscope/pkg/errors"
)

type opener func(opts deps.Options, runner deps.Runner) deps.Ecosystem

var registry = map[string]opener{
	rust.Name:       func(o deps.Options, r deps.Runner) deps.Ecosystem { return rust.New(o, r) },
	javascript.Name: func(o deps.Options, r deps.Runner) deps.Ecosystem { return javascript.New(o, r) },
	deno.Name:       func(o deps.Options, _ deps.Runner) deps.Ecosystem { return deno.New(o) },
}

// detectOrder decides between ecosystems whose manifests coexist: a Deno
// project may carry a package.json for npm interop.
var detectOrder = []string{rust.Name, deno.Name, javascript.Name}

// Names returns the registered ecosystem names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open returns the named ecosystem. A nil runner executes tools on the
// host.
func Open(name string, opts deps.Options, runner deps.Runner) (deps.Ecosystem, error) {
	open, ok := registry[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown ecosystem %q", name).
			WithHint("available: %v", Names())
	}
	return open(opts, runner), nil
}

// Detect returns the ecosystem whose manifest is present in root.
func Detect(root string, opts deps.Options, runner deps.Runner) (deps.Ecosystem, error) {
	for _, name := range detectOrder {
		eco := registry[name](opts, runner)
		if deps.HasManifest(root, eco.ManifestFiles()) {
			return eco, nil
		}
	}
	return nil, errors.NotFound("no Cargo.toml, deno.json or package.json in %s", root).
		WithHint("run depscope from a project directory or pass --dir")
}

// Manager returns the package manager that owns root's lockfile, or "" when
// the project has none.
func Manager(eco deps.Ecosystem, root string) deps.Manager {
	if l, _, ok := deps.FindLockfile(root, eco.Lockfiles()); ok {
		return l.Manager
	}
	return ""
}
