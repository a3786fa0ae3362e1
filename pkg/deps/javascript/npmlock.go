package javascript

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/matzehuels/depscope/pkg/errors"
)

const nodeModules = "node_modules/"

type npmLock struct {
	LockfileVersion int                       `json:"lockfileVersion"`
	Packages        map[string]npmLockPackage `json:"packages"`
	Dependencies    map[string]npmLockV1      `json:"dependencies"`
}

type npmLockPackage struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Link                 bool              `json:"link"`
	Resolved             string            `json:"resolved"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
}

type npmLockV1 struct {
	Version      string               `json:"version"`
	Requires     map[string]string    `json:"requires"`
	Dependencies map[string]npmLockV1 `json:"dependencies"`
}

// parseNpmLock decodes package-lock.json or npm-shrinkwrap.json.
//
// Lockfile v2 and v3 list every installed copy under its node_modules path;
// keys in the graph are those paths, and a dependency resolves the way Node
// does, from the nearest node_modules directory up to the root. Lockfile v1
// nests copies under "dependencies" and is flattened to the same paths.
func parseNpmLock(data []byte, filename string) (*lockfile, error) {
	var nl npmLock
	if err := json.Unmarshal(data, &nl); err != nil {
		return nil, errors.Parse(err, "parse %s", filename)
	}

	pkgs := nl.Packages
	if len(pkgs) == 0 && len(nl.Dependencies) > 0 {
		pkgs = flattenV1(nl.Dependencies)
	}

	lf := newLockfile()
	for _, p := range sortedKeys(pkgs) {
		if p == "" {
			continue
		}
		entry, from := followLink(pkgs, p)
		name := entry.Name
		if name == "" || pkgs[p].Link {
			name = packageNameFromPath(p)
		}

		var depKeys []string
		for _, section := range []map[string]string{entry.Dependencies, entry.OptionalDependencies} {
			for _, dep := range sortedKeys(section) {
				if k, ok := resolveNodePath(pkgs, from, dep); ok {
					depKeys = append(depKeys, k)
				}
			}
		}
		lf.merge(p, name, entry.Version, depKeys)
	}

	root := pkgs[""]
	for _, section := range []map[string]string{root.Dependencies, root.OptionalDependencies, root.DevDependencies} {
		for dep := range section {
			if k, ok := resolveNodePath(pkgs, "", dep); ok {
				lf.direct[dep] = k
			}
		}
	}
	// v1 lockfiles carry no root entry; top-level copies are the direct ones.
	if len(root.Dependencies)+len(root.DevDependencies)+len(root.OptionalDependencies) == 0 {
		for p := range pkgs {
			if name := packageNameFromPath(p); p == nodeModules+name {
				lf.direct[name] = p
			}
		}
	}
	return lf, nil
}

// followLink returns the package a workspace link points at and the path
// its own dependencies resolve from.
func followLink(pkgs map[string]npmLockPackage, p string) (npmLockPackage, string) {
	entry := pkgs[p]
	if entry.Link && entry.Resolved != "" {
		if target, ok := pkgs[entry.Resolved]; ok {
			return target, entry.Resolved
		}
	}
	return entry, p
}

// resolveNodePath finds the copy of dep visible from the package at from:
// from/node_modules/dep, then each ancestor's node_modules, then the root.
func resolveNodePath(pkgs map[string]npmLockPackage, from, dep string) (string, bool) {
	dir := from
	for {
		candidate := nodeModules + dep
		if dir != "" {
			candidate = dir + "/" + nodeModules + dep
		}
		if _, ok := pkgs[candidate]; ok {
			return candidate, true
		}
		if dir == "" {
			return "", false
		}
		i := strings.LastIndex(dir, "/"+nodeModules)
		if i < 0 {
			dir = ""
		} else {
			dir = dir[:i]
		}
	}
}

// packageNameFromPath returns the package name a node_modules path installs:
// "node_modules/a/node_modules/@types/node" -> "@types/node".
func packageNameFromPath(p string) string {
	if i := strings.LastIndex(p, nodeModules); i >= 0 {
		return p[i+len(nodeModules):]
	}
	return path.Base(p)
}

func flattenV1(top map[string]npmLockV1) map[string]npmLockPackage {
	out := map[string]npmLockPackage{}
	var walk func(prefix string, m map[string]npmLockV1)
	walk = func(prefix string, m map[string]npmLockV1) {
		for name, d := range m {
			p := prefix + nodeModules + name
			out[p] = npmLockPackage{Name: name, Version: d.Version, Dependencies: d.Requires}
			walk(p+"/", d.Dependencies)
		}
	}
	walk("", top)
	return out
}
