package javascript

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

type packageFile struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	PackageManager       string            `json:"packageManager"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

func readPackageJSON(root string) (*packageFile, error) {
	path := filepath.Join(root, "package.json")
	data, err := deps.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg packageFile
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.Parse(err, "parse %s", path)
	}
	return &pkg, nil
}

// dependencies returns the declared dependencies: regular, then optional,
// then dev, each section sorted by name. A name listed in several sections
// is reported once, from the first. Peer dependencies are requirements on
// the consumer and are not listed.
func (p *packageFile) dependencies() []deps.Dependency {
	var out []deps.Dependency
	seen := make(map[string]bool)
	add := func(section map[string]string, optional, dev bool) {
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, deps.Dependency{Name: name, VersionReq: section[name], Optional: optional, Dev: dev})
		}
	}
	add(p.Dependencies, false, false)
	add(p.OptionalDependencies, true, false)
	add(p.DevDependencies, false, true)
	return out
}
