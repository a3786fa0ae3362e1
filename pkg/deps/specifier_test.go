package deps

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitNameVersion(t *testing.T) {
	tests := []struct {
		in, name, version string
	}{
		{"@types/node@20.0.0", "@types/node", "20.0.0"},
		{"@types/node", "@types/node", ""},
		{"react@18.2.0", "react", "18.2.0"},
		{"react", "react", ""},
		{"@scope", "@scope", ""},
	}
	for _, tt := range tests {
		name, version := SplitNameVersion(tt.in)
		if name != tt.name || version != tt.version {
			t.Errorf("SplitNameVersion(%q) = (%q, %q), want (%q, %q)", tt.in, name, version, tt.name, tt.version)
		}
	}
}

func TestSplitLockKey(t *testing.T) {
	name, version := SplitLockKey("vitepress@1.6.4(@algolia/client-search@5.0.0)(react@18.2.0)")
	if name != "vitepress" || version != "1.6.4" {
		t.Errorf("SplitLockKey() = (%q, %q), want (vitepress, 1.6.4)", name, version)
	}
}

func TestParseSpecifier(t *testing.T) {
	tests := []struct {
		in   string
		want Specifier
	}{
		{"jsr:@std/path@1.0.8", Specifier{Scheme: "jsr", Name: "@std/path", Version: "1.0.8"}},
		{"jsr:@std/path@^1/posix", Specifier{Scheme: "jsr", Name: "@std/path", Version: "^1", Path: "/posix"}},
		{"npm:chalk@5.3.0", Specifier{Scheme: "npm", Name: "chalk", Version: "5.3.0"}},
		{"npm:/@types/node@20", Specifier{Scheme: "npm", Name: "@types/node", Version: "20"}},
		{"preact@10", Specifier{Name: "preact", Version: "10"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseSpecifier(tt.in)); diff != "" {
			t.Errorf("ParseSpecifier(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
