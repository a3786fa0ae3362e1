package archive

import "strings"

// StripConstraint returns the package name of a dependency expression by
// cutting at the first version operator or colon:
//
//	"bar>=1.0"             -> "bar"
//	"glibc"                -> "glibc"
//	"python: for scripts"  -> "python"
func StripConstraint(dep string) string {
	if i := strings.IndexAny(dep, "<>=:"); i >= 0 {
		dep = dep[:i]
	}
	return strings.TrimSpace(dep)
}

// StripConstraints applies StripConstraint to every entry, dropping empties and
// duplicates while keeping order.
func StripConstraints(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		name := StripConstraint(d)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func joinURL(base, file string) string {
	if base == "" || file == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(file, "/")
}
