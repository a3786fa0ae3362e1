package rust

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

type cargoLock struct {
	Version  int `toml:"version"`
	Packages []struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Source       string   `toml:"source"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"package"`
}

// lockfile is a decoded Cargo.lock.
type lockfile struct {
	graph deps.LockGraph
	local []string // keys of packages without a source, in file order
}

// parseLock decodes Cargo.lock into a graph keyed by "name@version".
//
// Dependency entries are "name", "name version" or "name version (source)";
// the bare form is only written when a single version of name is locked.
func parseLock(data []byte) (*lockfile, error) {
	var cl cargoLock
	if err := toml.Unmarshal(data, &cl); err != nil {
		return nil, errors.Parse(err, "parse Cargo.lock")
	}

	versions := make(map[string][]string)
	for _, p := range cl.Packages {
		versions[p.Name] = append(versions[p.Name], p.Version)
	}

	lf := &lockfile{graph: make(deps.LockGraph, len(cl.Packages))}
	for _, p := range cl.Packages {
		if p.Name == "" || p.Version == "" {
			continue
		}
		keys := make([]string, 0, len(p.Dependencies))
		for _, d := range p.Dependencies {
			keys = append(keys, lockDepKey(d, versions))
		}
		k := lf.graph.Add(p.Name, p.Version, keys...)
		if p.Source == "" {
			lf.local = append(lf.local, k)
		}
	}
	return lf, nil
}

func lockDepKey(entry string, versions map[string][]string) string {
	fields := strings.Fields(entry)
	switch {
	case len(fields) == 0:
		return ""
	case len(fields) >= 2:
		return deps.Key(fields[0], fields[1])
	case len(versions[fields[0]]) == 1:
		return deps.Key(fields[0], versions[fields[0]][0])
	default:
		return fields[0]
	}
}

// roots returns the lock keys of the named workspace members, falling back
// to every local package when none of the names is locked.
func (lf *lockfile) roots(members []string) []string {
	want := make(map[string]bool, len(members))
	for _, m := range members {
		want[m] = true
	}
	var roots []string
	for _, k := range lf.local {
		if want[lf.graph[k].Name] {
			roots = append(roots, k)
		}
	}
	if len(roots) == 0 {
		return lf.local
	}
	return roots
}
