package integrations

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/matzehuels/depscope/pkg/buildinfo"
)

// DefaultHeaders returns the headers every backend sends. crates.io rejects
// requests without a User-Agent.
func DefaultHeaders() map[string]string {
	return map[string]string{"User-Agent": buildinfo.UserAgent()}
}

// NewHTTPClient creates the HTTP client used for registry requests.
// It sets no timeout of its own.
func NewHTTPClient() *http.Client {
	return &http.Client{}
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
	"git@gitlab.com:", "https://gitlab.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical HTTPS form.
// Handles git@, git://, and git+ prefixes, and removes .git suffixes.
// Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }

// PathEscape percent-encodes a single path segment.
func PathEscape(s string) string { return url.PathEscape(s) }
