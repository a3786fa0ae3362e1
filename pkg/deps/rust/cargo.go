package rust

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

type cargoFile struct {
	Package struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"` // string, or {workspace = true}
	} `toml:"package"`
	Workspace struct {
		Members      []string       `toml:"members"`
		Exclude      []string       `toml:"exclude"`
		Dependencies map[string]any `toml:"dependencies"`
	} `toml:"workspace"`
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
	Target            map[string]struct {
		Dependencies      map[string]any `toml:"dependencies"`
		DevDependencies   map[string]any `toml:"dev-dependencies"`
		BuildDependencies map[string]any `toml:"build-dependencies"`
	} `toml:"target"`
}

func readCargoToml(path string) (*cargoFile, error) {
	data, err := deps.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf cargoFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return nil, errors.Parse(err, "parse %s", path)
	}
	return &cf, nil
}

// members returns the manifests of the workspace rooted at root: root itself
// when it declares a package, then each member directory in glob order.
func (cf *cargoFile) members(root string) ([]string, error) {
	var paths []string
	if cf.Package.Name != "" {
		paths = append(paths, filepath.Join(root, "Cargo.toml"))
	}

	excluded := make(map[string]bool)
	for _, e := range cf.Workspace.Exclude {
		excluded[filepath.Clean(filepath.Join(root, e))] = true
	}
	for _, pattern := range cf.Workspace.Members {
		dirs, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, errors.Parse(err, "workspace member pattern %q", pattern)
		}
		sort.Strings(dirs)
		for _, dir := range dirs {
			if excluded[filepath.Clean(dir)] {
				continue
			}
			manifest := filepath.Join(dir, "Cargo.toml")
			if manifest == filepath.Join(root, "Cargo.toml") {
				continue
			}
			paths = append(paths, manifest)
		}
	}
	return paths, nil
}

// dependencies flattens every dependency section, normal ones first.
func (cf *cargoFile) dependencies(workspace map[string]any) []deps.Dependency {
	var out []deps.Dependency
	add := func(section map[string]any, dev bool) {
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, cargoDependency(name, section[name], workspace, dev))
		}
	}

	add(cf.Dependencies, false)
	add(cf.BuildDependencies, false)
	targets := make([]string, 0, len(cf.Target))
	for t := range cf.Target {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, t := range targets {
		add(cf.Target[t].Dependencies, false)
		add(cf.Target[t].BuildDependencies, false)
	}
	add(cf.DevDependencies, true)
	for _, t := range targets {
		add(cf.Target[t].DevDependencies, true)
	}
	return out
}

// cargoDependency decodes one entry: `serde = "1"` or
// `serde = { version = "1", optional = true, package = "serde_real" }`.
// `{ workspace = true }` inherits the requirement from [workspace.dependencies].
func cargoDependency(key string, v any, workspace map[string]any, dev bool) deps.Dependency {
	dep := deps.Dependency{Name: key, Dev: dev}
	switch val := v.(type) {
	case string:
		dep.VersionReq = val
	case map[string]any:
		if pkg, ok := val["package"].(string); ok && pkg != "" {
			dep.Name = pkg
		}
		if s, ok := val["version"].(string); ok {
			dep.VersionReq = s
		}
		if b, ok := val["optional"].(bool); ok {
			dep.Optional = b
		}
		if b, ok := val["workspace"].(bool); ok && b {
			inherited := cargoDependency(key, workspace[key], nil, dev)
			dep.Name = inherited.Name
			dep.VersionReq = inherited.VersionReq
		}
		if dep.VersionReq == "" {
			switch {
			case val["path"] != nil:
				dep.VersionReq = "path:" + stringOf(val["path"])
			case val["git"] != nil:
				dep.VersionReq = "git:" + stringOf(val["git"])
			}
		}
	}
	return dep
}

func stringOf(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
