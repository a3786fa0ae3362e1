package deno

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

type rawLock struct {
	Version    string                 `json:"version"`
	Specifiers map[string]string      `json:"specifiers"`
	JSR        map[string]lockPackage `json:"jsr"`
	NPM        json.RawMessage        `json:"npm"`
	Packages   *rawPackages           `json:"packages"`
	Remote     map[string]string      `json:"remote"`
	Workspace  rawWorkspace           `json:"workspace"`
}

type rawWorkspace struct {
	Dependencies []string `json:"dependencies"`
}

// rawPackages is the v3 "packages" section.
type rawPackages struct {
	Specifiers map[string]string      `json:"specifiers"`
	JSR        map[string]lockPackage `json:"jsr"`
	NPM        map[string]lockPackage `json:"npm"`
}

// lockPackage dependencies are a list of specifiers (jsr, npm in v4) or a
// map of name to resolved key (npm in v2 and v3).
type lockPackage struct {
	Dependencies json.RawMessage `json:"dependencies"`
}

func (p lockPackage) refs() []string {
	if len(p.Dependencies) == 0 {
		return nil
	}
	var list []string
	if json.Unmarshal(p.Dependencies, &list) == nil {
		return list
	}
	var m map[string]string
	if json.Unmarshal(p.Dependencies, &m) == nil {
		out := make([]string, 0, len(m))
		for _, k := range sortedKeys(m) {
			out = append(out, m[k])
		}
		return out
	}
	return nil
}

// lockfile is a decoded deno.lock. Graph keys are "jsr:name@version",
// "npm:name@version" or, for v2 remote modules, "deno.land/x/name@version".
type lockfile struct {
	graph      deps.LockGraph
	specifiers map[string]string // requested specifier -> key
	workspace  []string          // workspace dependency specifiers
	remote     []string          // keys of deno.land modules
}

// parseLock decodes deno.lock versions 2 to 4.
func parseLock(data []byte) (*lockfile, error) {
	var raw rawLock
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Parse(err, "parse deno.lock")
	}
	version, _ := strconv.Atoi(raw.Version)

	lf := &lockfile{
		graph:      make(deps.LockGraph),
		specifiers: make(map[string]string),
		workspace:  raw.Workspace.Dependencies,
	}

	jsr, npm, specifiers := raw.JSR, map[string]lockPackage{}, raw.Specifiers
	switch {
	case raw.Packages != nil: // v3
		jsr, npm, specifiers = raw.Packages.JSR, raw.Packages.NPM, raw.Packages.Specifiers
	case version >= 4:
		if len(raw.NPM) > 0 {
			if err := json.Unmarshal(raw.NPM, &npm); err != nil {
				return nil, errors.Parse(err, "parse deno.lock npm section")
			}
		}
	case len(raw.NPM) > 0: // v2: {"specifiers": {...}, "packages": {...}}
		var v2 struct {
			Specifiers map[string]string      `json:"specifiers"`
			Packages   map[string]lockPackage `json:"packages"`
		}
		if err := json.Unmarshal(raw.NPM, &v2); err != nil {
			return nil, errors.Parse(err, "parse deno.lock npm section")
		}
		npm = v2.Packages
		specifiers = make(map[string]string, len(v2.Specifiers))
		for k, v := range v2.Specifiers {
			specifiers["npm:"+k] = "npm:" + v
		}
	}

	versions := make(map[string][]string)
	for _, k := range sortedKeys(jsr) {
		name, v := deps.SplitNameVersion(k)
		versions["jsr:"+name] = append(versions["jsr:"+name], v)
	}
	for _, k := range sortedKeys(npm) {
		name, v := deps.SplitNameVersion(npmBase(k))
		versions["npm:"+name] = append(versions["npm:"+name], v)
	}

	for spec, resolved := range specifiers {
		lf.specifiers[spec] = resolveSpecifier(spec, resolved)
	}
	for _, k := range sortedKeys(jsr) {
		lf.add("jsr", k, jsr[k].refs(), versions)
	}
	for _, k := range sortedKeys(npm) {
		lf.add("npm", k, npm[k].refs(), versions)
	}
	lf.addRemote(raw.Remote)
	lf.fillLeaves()
	return lf, nil
}

func (lf *lockfile) add(scheme, rawKey string, depRefs []string, versions map[string][]string) {
	name, version := deps.SplitNameVersion(npmBase(rawKey))
	keys := make([]string, 0, len(depRefs))
	for _, ref := range depRefs {
		keys = append(keys, lf.resolveDep(scheme, ref, versions))
	}
	lf.graph.Add(scheme+":"+name, version, keys...)
}

// resolveDep maps a dependency reference to a key. References are full
// specifiers ("jsr:@std/internal@^1.0.5", looked up in the specifier
// table), resolved npm keys ("ansi-styles@6.2.1"), or bare names that
// resolve to the single locked version.
func (lf *lockfile) resolveDep(scheme, ref string, versions map[string][]string) string {
	if k, ok := lf.specifiers[ref]; ok {
		return k
	}
	spec := deps.ParseSpecifier(ref)
	if spec.Scheme == "" {
		spec.Scheme = scheme
		spec.Name, spec.Version = deps.SplitNameVersion(npmBase(ref))
	}
	name := spec.Scheme + ":" + spec.Name
	if spec.Version != "" && isExact(spec.Version) {
		return deps.Key(name, spec.Version)
	}
	if vs := versions[name]; len(vs) > 0 {
		return deps.Key(name, vs[len(vs)-1])
	}
	return deps.Key(name, spec.Version)
}

// resolveSpecifier turns a specifier table entry into a key. v4 stores the
// bare resolved version, v3 the full resolved specifier.
func resolveSpecifier(spec, resolved string) string {
	if scheme, rest, ok := strings.Cut(resolved, ":"); ok && (scheme == "jsr" || scheme == "npm") {
		name, version := deps.SplitNameVersion(npmBase(rest))
		return deps.Key(scheme+":"+name, version)
	}
	s := deps.ParseSpecifier(spec)
	return deps.Key(s.Scheme+":"+s.Name, stripPeers(resolved))
}

// addRemote records pinned deno.land modules from the v2 remote map, one
// entry per module name; the highest-sorting version wins.
func (lf *lockfile) addRemote(remote map[string]string) {
	best := make(map[string]string)
	for url := range remote {
		d, ok := importDependency(url)
		if !ok {
			continue
		}
		if v, seen := best[d.Name]; !seen || d.VersionReq > v {
			best[d.Name] = d.VersionReq
		}
	}
	for _, name := range sortedKeys(best) {
		lf.remote = append(lf.remote, lf.graph.Add(name, best[name]))
	}
}

// fillLeaves adds entries for dependency keys that are not locked
// themselves, so keys with a scheme are never split as "name@version".
func (lf *lockfile) fillLeaves() {
	var missing []string
	for _, e := range lf.graph {
		for _, k := range e.Deps {
			if _, ok := lf.graph[k]; !ok {
				missing = append(missing, k)
			}
		}
	}
	for _, k := range missing {
		lf.ensure(k)
	}
}

// roots resolves requested import targets to keys: jsr: and npm:
// specifiers through the specifier table, pinned deno.land URLs by module
// name. Other targets are skipped. Without any, the lockfile's own
// workspace dependencies are used, and v2 lockfiles fall back to the remote
// modules and npm specifiers.
func (lf *lockfile) roots(requested []string) []string {
	if len(requested) == 0 {
		requested = lf.workspace
	}
	var out []string
	for _, target := range requested {
		if k, ok := lf.specifiers[target]; ok {
			lf.ensure(k)
			out = append(out, k)
			continue
		}
		d, ok := importDependency(target)
		if !ok {
			continue
		}
		version := d.VersionReq
		if !isExact(version) {
			version = ""
		}
		out = append(out, lf.byName(d.Name, version))
	}
	if len(out) > 0 {
		return out
	}
	out = append(out, lf.remote...)
	for _, spec := range sortedKeys(lf.specifiers) {
		lf.ensure(lf.specifiers[spec])
		out = append(out, lf.specifiers[spec])
	}
	return out
}

// byName returns the key of the locked version of name, preferring version
// when it is locked. An unlocked name gets a leaf entry.
func (lf *lockfile) byName(name, version string) string {
	k := deps.Key(name, version)
	if _, ok := lf.graph[k]; ok {
		return k
	}
	if keys := lf.graph.ByName()[name]; len(keys) > 0 {
		return keys[len(keys)-1]
	}
	lf.graph[k] = deps.LockEntry{Name: name, Version: version}
	return k
}

// ensure adds a leaf entry for a specifier key that no package section
// lists.
func (lf *lockfile) ensure(key string) {
	if _, ok := lf.graph[key]; ok {
		return
	}
	s := deps.ParseSpecifier(key)
	lf.graph[key] = deps.LockEntry{Name: s.Scheme + ":" + s.Name, Version: s.Version}
}

// npmBase strips the "_peer@1.0.0" suffix Deno appends to npm keys that
// resolve peer dependencies: "react-dom@18.2.0_react@18.2.0" -> "react-dom@18.2.0".
func npmBase(key string) string {
	start := 0
	if strings.HasPrefix(key, "@") {
		start = 1
	}
	at := strings.IndexByte(key[start:], '@')
	if at < 0 {
		return key
	}
	at += start
	return key[:at+1] + stripPeers(key[at+1:])
}

func stripPeers(version string) string {
	if i := strings.IndexByte(version, '_'); i >= 0 {
		return version[:i]
	}
	return version
}

func isExact(v string) bool {
	return v != "" && strings.IndexAny(v, "^~<>=*| ") < 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
