package javascript

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

const bunLockText = `{
  "lockfileVersion": 1,
  "workspaces": {
    "": {
      "name": "app",
      "dependencies": {
        "react": "^18.2.0",
        "@babel/core": "^7.23.0",
      },
    },
  },
  "packages": {
    "@babel/core": ["@babel/core@7.23.0", "", { "dependencies": { "semver": "^6.3.1" } }, "sha512-a"],
    "@babel/core/semver": ["semver@6.3.1", "", { "bin": { "semver": "bin/semver.js" } }, "sha512-b"],
    "js-tokens": ["js-tokens@4.0.0", "", {}, "sha512-x"],
    "loose-envify": ["loose-envify@1.4.0", "", { "dependencies": { "js-tokens": "^3.0.0 || ^4.0.0" }, "bin": { "loose-envify": "cli.js" } }, "sha512-y"],
    "react": ["react@18.2.0", "", { "dependencies": { "loose-envify": "^1.1.0" } }, "sha512-z"],
    "semver": ["semver@7.6.0", "", {}, "sha512-c"],
  }
}`

func TestParseBun(t *testing.T) {
	lf, err := parseBun([]byte(bunLockText))
	if err != nil {
		t.Fatalf("parseBun() error = %v", err)
	}

	got := lf.tree([]deps.Dependency{{Name: "@babel/core"}, {Name: "react"}}, 0)
	want := []deps.TreeNode{
		{Name: "@babel/core", Version: "7.23.0", Dependencies: []deps.TreeNode{{Name: "semver", Version: "6.3.1"}}},
		{Name: "react", Version: "18.2.0", Dependencies: []deps.TreeNode{
			{Name: "loose-envify", Version: "1.4.0", Dependencies: []deps.TreeNode{{Name: "js-tokens", Version: "4.0.0"}}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if v := lf.installed("semver"); v != "7.6.0" {
		t.Errorf("installed(semver) = %q, want the hoisted 7.6.0", v)
	}
}

func TestParseBun_MalformedMetadata(t *testing.T) {
	data := `{
  "lockfileVersion": 1,
  "packages": {
    "react": ["react@18.2.0", "", { "dependencies": ["loose-envify"] }, "sha512-z"],
  }
}`
	_, err := parseBun([]byte(data))
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("parseBun() error = %v, want PARSE_ERROR", err)
	}
}

func TestBunSegments(t *testing.T) {
	got := bunSegments("@babel/core/semver")
	if diff := cmp.Diff([]string{"@babel/core", "semver"}, got); diff != "" {
		t.Errorf("bunSegments() mismatch (-want +got):\n%s", diff)
	}
}
