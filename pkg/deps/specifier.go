package deps

import "strings"

// SplitNameVersion splits "name@version" at the last '@' that is not the
// leading '@' of a scope.
//
//	SplitNameVersion("@types/node@20.0.0") == ("@types/node", "20.0.0")
//	SplitNameVersion("@types/node")        == ("@types/node", "")
//	SplitNameVersion("react@18.2.0")       == ("react", "18.2.0")
func SplitNameVersion(s string) (name, version string) {
	s = strings.TrimSpace(s)
	start := 0
	if strings.HasPrefix(s, "@") {
		// The version separator can only follow the scope slash.
		slash := strings.IndexByte(s, '/')
		if slash < 0 {
			return s, ""
		}
		start = slash
	}
	i := strings.LastIndexByte(s[start:], '@')
	if i < 0 {
		return s, ""
	}
	i += start
	return s[:i], s[i+1:]
}

// StripPeerSuffix removes the parenthesized peer-dependency annotations pnpm
// appends to resolved versions:
//
//	"1.6.4(@algolia/client-search@5.0.0)(react@18.2.0)" -> "1.6.4"
func StripPeerSuffix(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		return s[:i]
	}
	return s
}

// SplitLockKey splits a pnpm-style "name@version(peers)" key into name and
// bare version.
//
//	SplitLockKey("vitepress@1.6.4(@algolia/client-search@5.0.0)") == ("vitepress", "1.6.4")
func SplitLockKey(key string) (name, version string) {
	return SplitNameVersion(StripPeerSuffix(key))
}

// Specifier is a parsed Deno import specifier.
type Specifier struct {
	Scheme  string // "jsr", "npm", or "" for bare names
	Name    string
	Version string
	Path    string // sub-path after the version, e.g. "/fs" in "jsr:@std/path@1/fs"
}

// ParseSpecifier parses "jsr:@scope/pkg@1.2.3", "npm:pkg@^1.2.3/sub" and
// bare "pkg@1" forms. The scheme is stripped and the version is split at the
// last '@' after any scope slash.
func ParseSpecifier(s string) Specifier {
	var spec Specifier
	s = strings.TrimSpace(s)
	if scheme, rest, ok := strings.Cut(s, ":"); ok && (scheme == "jsr" || scheme == "npm") {
		spec.Scheme = scheme
		s = strings.TrimPrefix(rest, "/")
	}

	// A sub-path starts at the first '/' after the package name (and after
	// the scope slash for scoped packages).
	nameEnd := len(s)
	skip := 0
	if strings.HasPrefix(s, "@") {
		if i := strings.IndexByte(s, '/'); i >= 0 {
			skip = i + 1
		}
	}
	if i := strings.IndexByte(s[skip:], '/'); i >= 0 {
		nameEnd = skip + i
		spec.Path = s[nameEnd:]
	}
	spec.Name, spec.Version = SplitNameVersion(s[:nameEnd])
	return spec
}
