package javascript

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

type pnpmLock struct {
	LockfileVersion any                     `yaml:"lockfileVersion"`
	Importers       map[string]pnpmImporter `yaml:"importers"`
	pnpmImporter    `yaml:",inline"`
	Packages        map[string]pnpmPackage `yaml:"packages"`
	Snapshots       map[string]pnpmPackage `yaml:"snapshots"`
}

// pnpmImporter lists one workspace project's direct resolutions. Before v9
// a single-project lockfile keeps them at the top level.
type pnpmImporter struct {
	Dependencies         map[string]pnpmRef `yaml:"dependencies"`
	DevDependencies      map[string]pnpmRef `yaml:"devDependencies"`
	OptionalDependencies map[string]pnpmRef `yaml:"optionalDependencies"`
}

// pnpmRef is "1.2.3" (v5) or {specifier: ^1.2.0, version: 1.2.3} (v6+).
type pnpmRef struct {
	Specifier string
	Version   string
}

func (r *pnpmRef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		r.Version = n.Value
		return nil
	}
	var m struct {
		Specifier string `yaml:"specifier"`
		Version   string `yaml:"version"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	r.Specifier, r.Version = m.Specifier, m.Version
	return nil
}

type pnpmPackage struct {
	Name                 string            `yaml:"name"`
	Version              string            `yaml:"version"`
	Dependencies         map[string]string `yaml:"dependencies"`
	OptionalDependencies map[string]string `yaml:"optionalDependencies"`
}

// parsePnpm decodes pnpm-lock.yaml. Keys are normalized to "name@version":
// the leading '/' of v5 and v6 keys and the "(peer@x)" or "_peer@x"
// suffixes are dropped, so every peer variant of a package folds into one
// entry. Optional dependencies are folded into the dependency list.
func parsePnpm(data []byte) (*lockfile, error) {
	var pl pnpmLock
	if err := yaml.Unmarshal(data, &pl); err != nil {
		return nil, errors.Parse(err, "parse pnpm-lock.yaml")
	}
	v5 := pnpmMajor(pl.LockfileVersion) < 6

	lf := newLockfile()
	add := func(raw string, p pnpmPackage) {
		key := pnpmKey(raw, v5)
		name, version := deps.SplitNameVersion(key)
		if p.Name != "" {
			name = p.Name
		}
		if p.Version != "" && !strings.ContainsAny(p.Version, "/:") {
			version = p.Version
		}
		var depKeys []string
		for _, section := range []map[string]string{p.Dependencies, p.OptionalDependencies} {
			for _, dep := range sortedKeys(section) {
				depKeys = append(depKeys, pnpmDepKey(dep, section[dep], v5))
			}
		}
		lf.merge(key, name, version, depKeys)
	}

	for _, raw := range sortedKeys(pl.Snapshots) {
		add(raw, pl.Snapshots[raw])
	}
	for _, raw := range sortedKeys(pl.Packages) {
		p := pl.Packages[raw]
		if len(pl.Snapshots) > 0 {
			// v9 keeps resolution metadata in packages and edges in snapshots.
			p.Dependencies, p.OptionalDependencies = nil, nil
		}
		add(raw, p)
	}

	root := pl.pnpmImporter
	if imp, ok := pl.Importers["."]; ok {
		root = imp
	}
	for _, section := range []map[string]pnpmRef{root.Dependencies, root.OptionalDependencies, root.DevDependencies} {
		for name, ref := range section {
			if _, ok := lf.direct[name]; !ok {
				lf.direct[name] = pnpmDepKey(name, ref.Version, v5)
			}
		}
	}
	return lf, nil
}

func pnpmMajor(v any) int {
	f, err := strconv.ParseFloat(strings.Trim(fmt.Sprint(v), `'"`), 64)
	if err != nil {
		return 9
	}
	return int(f)
}

// pnpmKey normalizes a packages or snapshots key.
//
//	"/react@18.2.0"                       -> "react@18.2.0"        (v6)
//	"vitepress@1.6.4(@algolia/x@5.0.0)"   -> "vitepress@1.6.4"     (v9)
//	"/@babel/core/7.23.0_supports-color@5" -> "@babel/core@7.23.0" (v5)
func pnpmKey(raw string, v5 bool) string {
	raw = strings.TrimPrefix(raw, "/")
	if !v5 {
		return deps.Key(deps.SplitLockKey(raw))
	}
	i := strings.LastIndexByte(raw, '/')
	if i < 0 {
		return raw
	}
	return deps.Key(raw[:i], stripV5Peers(raw[i+1:]))
}

// pnpmDepKey resolves a dependency reference to a key. A reference is a bare
// version, a version with peer suffixes, or for aliased packages a full
// key ("/string-width@4.2.3" or "string-width@4.2.3").
func pnpmDepKey(name, ref string, v5 bool) string {
	switch {
	case strings.HasPrefix(ref, "link:"), strings.HasPrefix(ref, "file:"):
		return deps.Key(name, ref)
	case strings.HasPrefix(ref, "/"):
		return pnpmKey(ref, v5)
	case v5:
		return deps.Key(name, stripV5Peers(ref))
	}
	ref = deps.StripPeerSuffix(ref)
	if strings.Contains(ref, "@") {
		return deps.Key(deps.SplitNameVersion(ref))
	}
	return deps.Key(name, ref)
}

func stripV5Peers(v string) string {
	if i := strings.IndexByte(v, '_'); i >= 0 {
		v = v[:i]
	}
	return deps.StripPeerSuffix(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
