package index

import (
	"sort"
	"strings"
)

// Find returns the first package in pkgs named name.
func Find(pkgs []PackageMeta, name string) (*PackageMeta, bool) {
	for i := range pkgs {
		if pkgs[i].Name == name {
			p := pkgs[i]
			return &p, true
		}
	}
	return nil, false
}

// FindAll returns every package in pkgs named name, in input order.
// Multi-repository backends use it to list the versions each repository carries.
func FindAll(pkgs []PackageMeta, name string) []PackageMeta {
	var out []PackageMeta
	for _, p := range pkgs {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// Filter returns the packages whose name or description contains query
// (case-insensitive). Exact name matches sort first, then prefix matches,
// then the rest by name.
func Filter(pkgs []PackageMeta, query string) []PackageMeta {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []PackageMeta
	for _, p := range pkgs {
		name := strings.ToLower(p.Name)
		if strings.Contains(name, q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}

	rank := func(p PackageMeta) int {
		name := strings.ToLower(p.Name)
		switch {
		case name == q:
			return 0
		case strings.HasPrefix(name, q):
			return 1
		case strings.Contains(name, q):
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Versions converts the records of one package into version entries.
func Versions(pkgs []PackageMeta) []VersionMeta {
	seen := make(map[string]bool, len(pkgs))
	out := make([]VersionMeta, 0, len(pkgs))
	for _, p := range pkgs {
		if seen[p.Version] {
			continue
		}
		seen[p.Version] = true
		out = append(out, VersionMeta{Version: p.Version, Released: p.Published})
	}
	return out
}
