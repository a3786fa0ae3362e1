package deno

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/tidwall/jsonc"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

type denoConfig struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Imports map[string]string `json:"imports"`
}

// readConfig reads deno.json, falling back to deno.jsonc. Both may carry
// comments and trailing commas.
func readConfig(root string) (*denoConfig, error) {
	var lastErr error
	for _, name := range manifestFiles {
		path := filepath.Join(root, name)
		data, err := deps.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		var cfg denoConfig
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, errors.Parse(err, "parse %s", path)
		}
		return &cfg, nil
	}
	return nil, lastErr
}

// remoteModule matches deno.land URLs that pin a version:
// https://deno.land/std@0.200.0/path/mod.ts and https://deno.land/x/oak@v12.6.1/mod.ts.
var remoteModule = regexp.MustCompile(`^https://deno\.land/(?:(std)|x/([^/@]+))@([^/]+)/`)

// dependencies turns the import map into dependencies. jsr: and npm:
// targets keep their scheme in the name ("jsr:@std/path"); pinned
// deno.land modules are named "deno.land/std" or "deno.land/x/<module>".
// Local paths and other URLs are not packages and are skipped.
func (c *denoConfig) dependencies() []deps.Dependency {
	aliases := make([]string, 0, len(c.Imports))
	for a := range c.Imports {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	var out []deps.Dependency
	seen := make(map[string]bool)
	for _, alias := range aliases {
		d, ok := importDependency(c.Imports[alias])
		if !ok || seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}

func importDependency(target string) (deps.Dependency, bool) {
	if m := remoteModule.FindStringSubmatch(target); m != nil {
		name := "deno.land/std"
		if m[2] != "" {
			name = "deno.land/x/" + m[2]
		}
		return deps.Dependency{Name: name, VersionReq: m[3]}, true
	}
	spec := deps.ParseSpecifier(target)
	if spec.Scheme == "" {
		return deps.Dependency{}, false
	}
	return deps.Dependency{Name: spec.Scheme + ":" + spec.Name, VersionReq: spec.Version}, true
}
