package javascript

import (
	"bufio"
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

// parseYarn decodes yarn.lock, classic (v1) or berry (v2+, YAML).
func parseYarn(data []byte) (*lockfile, error) {
	if isBerry(data) {
		return parseYarnBerry(data)
	}
	return parseYarnClassic(data)
}

func isBerry(data []byte) bool {
	return bytes.Contains(data, []byte("\n__metadata:")) || bytes.HasPrefix(data, []byte("__metadata:"))
}

type yarnEntry struct {
	specs   []string // "name@range" descriptors sharing this resolution
	name    string
	version string
	deps    []string // "name@range" descriptors
}

// parseYarnClassic runs a line state machine over a v1 lockfile:
//
//	"@babel/core@^7.0.0", "@babel/core@^7.12.3":
//	  version "7.23.0"
//	  dependencies:
//	    "@babel/code-frame" "^7.22.13"
//
// A header at column 0 opens an entry and lists its alias descriptors, the
// version line sets the resolution, and lines under a dependencies or
// optionalDependencies block add edges. Entries resolving to the same
// name@version are merged.
func parseYarnClassic(data []byte) (*lockfile, error) {
	var (
		entries []*yarnEntry
		cur     *yarnEntry
		inDeps  bool
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))

		switch {
		case indent == 0:
			if !strings.HasSuffix(trimmed, ":") {
				return nil, errors.New(errors.ErrCodeParse, "yarn.lock line %d: unexpected %q", lineNo, trimmed)
			}
			cur = &yarnEntry{}
			for _, spec := range strings.Split(strings.TrimSuffix(trimmed, ":"), ",") {
				spec = unquote(strings.TrimSpace(spec))
				if spec != "" {
					cur.specs = append(cur.specs, spec)
				}
			}
			if len(cur.specs) > 0 {
				cur.name = yarnPackageName(cur.specs[0])
			}
			entries = append(entries, cur)
			inDeps = false

		case cur == nil:
			return nil, errors.New(errors.ErrCodeParse, "yarn.lock line %d: field outside an entry", lineNo)

		case indent <= 2:
			key, value, _ := strings.Cut(trimmed, " ")
			inDeps = key == "dependencies:" || key == "optionalDependencies:"
			if key == "version" {
				cur.version = unquote(value)
			}

		case inDeps:
			name, rng, _ := strings.Cut(trimmed, " ")
			cur.deps = append(cur.deps, unquote(name)+"@"+unquote(strings.TrimSpace(rng)))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Parse(err, "read yarn.lock")
	}
	return buildYarn(entries), nil
}

func buildYarn(entries []*yarnEntry) *lockfile {
	lf := newLockfile()
	for _, e := range entries {
		if e.name == "" || e.version == "" {
			continue
		}
		key := deps.Key(e.name, e.version)
		for _, s := range e.specs {
			lf.specs[s] = key
		}
	}
	for _, e := range entries {
		if e.name == "" || e.version == "" {
			continue
		}
		depKeys := make([]string, 0, len(e.deps))
		for _, d := range e.deps {
			if k, ok := lf.specs[d]; ok {
				depKeys = append(depKeys, k)
			} else {
				depKeys = append(depKeys, yarnPackageName(d))
			}
		}
		lf.merge(deps.Key(e.name, e.version), e.name, e.version, depKeys)
	}
	return lf
}

// yarnPackageName returns the package a descriptor installs: "lodash" for
// "lodash@^4", "string-width" for "string-width-cjs@npm:string-width@^4".
func yarnPackageName(spec string) string {
	name, rng := splitDescriptor(spec)
	if target, ok := strings.CutPrefix(rng, "npm:"); ok && len(target) > 1 && strings.Contains(target[1:], "@") {
		name, _ = splitDescriptor(target)
	}
	return name
}

// splitDescriptor splits "name@range" at the first '@' after any scope,
// since ranges may themselves contain '@'.
func splitDescriptor(spec string) (name, rng string) {
	start := 0
	if strings.HasPrefix(spec, "@") {
		if i := strings.IndexByte(spec, '/'); i >= 0 {
			start = i
		}
	}
	i := strings.IndexByte(spec[start:], '@')
	if i < 0 {
		return spec, ""
	}
	return spec[:start+i], spec[start+i+1:]
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}

type berryEntry struct {
	Version              string            `yaml:"version"`
	Resolution           string            `yaml:"resolution"`
	Dependencies         map[string]string `yaml:"dependencies"`
	OptionalDependencies map[string]string `yaml:"optionalDependencies"`
}

// parseYarnBerry decodes the YAML lockfile written by yarn 2 and later. Keys
// are comma-separated "name@npm:range" descriptors; dependency values are
// ranges that join with the dependency name into a descriptor.
func parseYarnBerry(data []byte) (*lockfile, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Parse(err, "parse yarn.lock")
	}

	var entries []*yarnEntry
	for _, header := range sortedKeys(raw) {
		if header == "__metadata" {
			continue
		}
		node := raw[header]
		var be berryEntry
		if err := node.Decode(&be); err != nil {
			return nil, errors.Parse(err, "parse yarn.lock entry %q", header)
		}
		e := &yarnEntry{version: be.Version}
		for _, spec := range strings.Split(header, ",") {
			if spec = strings.TrimSpace(spec); spec != "" {
				e.specs = append(e.specs, spec)
			}
		}
		if be.Resolution != "" {
			e.name, _ = splitDescriptor(be.Resolution)
		} else if len(e.specs) > 0 {
			e.name = yarnPackageName(e.specs[0])
		}
		for _, section := range []map[string]string{be.Dependencies, be.OptionalDependencies} {
			for _, name := range sortedKeys(section) {
				rng := section[name]
				e.deps = append(e.deps, berryDescriptor(name, rng))
			}
		}
		entries = append(entries, e)
	}
	return buildYarn(entries), nil
}

// berryDescriptor adds the npm: protocol berry writes on header descriptors
// but omits on plain dependency ranges.
func berryDescriptor(name, rng string) string {
	if !strings.Contains(rng, ":") {
		rng = "npm:" + rng
	}
	return name + "@" + rng
}
