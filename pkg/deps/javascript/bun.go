package javascript

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/matzehuels/depscope/pkg/errors"
)

type bunLock struct {
	LockfileVersion int                        `json:"lockfileVersion"`
	Workspaces      map[string]bunWorkspace    `json:"workspaces"`
	Packages        map[string]json.RawMessage `json:"packages"`
}

type bunWorkspace struct {
	Name                 string            `json:"name"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

type bunMeta struct {
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// parseBun decodes the text lockfile bun.lock (JSON with trailing commas).
//
// Package keys are install paths: "react" for the hoisted copy and
// "parent/dep" for a copy nested under parent. Each value is an array whose
// first element is the "name@version" resolution and whose metadata object
// lists the package's own dependencies.
func parseBun(data []byte) (*lockfile, error) {
	var bl bunLock
	if err := json.Unmarshal(jsonc.ToJSON(data), &bl); err != nil {
		return nil, errors.Parse(err, "parse bun.lock")
	}

	lf := newLockfile()
	for _, p := range sortedKeys(bl.Packages) {
		var fields []json.RawMessage
		if err := json.Unmarshal(bl.Packages[p], &fields); err != nil || len(fields) == 0 {
			return nil, errors.Parse(err, "parse bun.lock package %q", p)
		}
		var resolution string
		if err := json.Unmarshal(fields[0], &resolution); err != nil {
			return nil, errors.Parse(err, "parse bun.lock package %q", p)
		}
		name, version := splitDescriptor(resolution)
		if i := strings.LastIndexByte(version, '@'); strings.HasPrefix(version, "npm:") && i >= 0 {
			version = version[i+1:]
		}

		var meta bunMeta
		for _, f := range fields[1:] {
			if len(f) > 0 && f[0] == '{' {
				if err := json.Unmarshal(f, &meta); err != nil {
					return nil, errors.Parse(err, "parse bun.lock package %q metadata", p)
				}
				break
			}
		}
		var depKeys []string
		for _, section := range []map[string]string{meta.Dependencies, meta.OptionalDependencies} {
			for _, dep := range sortedKeys(section) {
				if k, ok := resolveBunPath(bl.Packages, p, dep); ok {
					depKeys = append(depKeys, k)
				}
			}
		}
		lf.merge(p, name, version, depKeys)
	}

	root := bl.Workspaces[""]
	for _, section := range []map[string]string{root.Dependencies, root.OptionalDependencies, root.DevDependencies} {
		for dep := range section {
			if _, ok := bl.Packages[dep]; ok {
				lf.direct[dep] = dep
			}
		}
	}
	return lf, nil
}

// resolveBunPath finds dep as seen from the package installed at from:
// from/dep, then each ancestor, then the hoisted copy.
func resolveBunPath(pkgs map[string]json.RawMessage, from, dep string) (string, bool) {
	segs := bunSegments(from)
	for i := len(segs); i >= 0; i-- {
		candidate := strings.Join(append(segs[:i:i], dep), "/")
		if _, ok := pkgs[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// bunSegments splits an install path into package names, keeping scoped
// names whole: "@babel/core/semver" -> ["@babel/core", "semver"].
func bunSegments(p string) []string {
	parts := strings.Split(p, "/")
	var segs []string
	for i := 0; i < len(parts); i++ {
		if strings.HasPrefix(parts[i], "@") && i+1 < len(parts) {
			segs = append(segs, parts[i]+"/"+parts[i+1])
			i++
			continue
		}
		segs = append(segs, parts[i])
	}
	return segs
}

// errBunBinary is returned for projects that only carry bun.lockb.
func errBunBinary(root string) error {
	return errors.New(errors.ErrCodeParse, "bun.lockb in %s is a binary lockfile", root).
		WithHint("run `bun install --save-text-lockfile` to write bun.lock")
}
