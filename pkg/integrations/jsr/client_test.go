package jsr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/integrations"
)

const stdPathJSON = `{
  "scope": "std",
  "name": "path",
  "description": "Utilities for working with file system paths",
  "latestVersion": "1.0.8",
  "score": 100,
  "githubRepository": {"owner": "denoland", "name": "std"},
  "runtimeCompat": {"deno": true, "node": true, "browser": null}
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scopes/std/packages/path":
			w.Write([]byte(stdPathJSON))
		case "/scopes/std/packages/path/versions":
			w.Write([]byte(`[
				{"version": "1.0.8", "yanked": false, "createdAt": "2024-10-01T00:00:00Z"},
				{"version": "1.0.7", "yanked": true, "createdAt": "2024-09-01T00:00:00Z"}
			]`))
		case "/scopes/std/packages/path/versions/1.0.8":
			w.Write([]byte(`{"version": "1.0.8", "createdAt": "2024-10-01T00:00:00Z"}`))
		case "/scopes/std/packages/path/versions/1.0.8/dependencies":
			w.Write([]byte(`[
				{"kind": "jsr", "name": "@std/internal", "constraint": "^1.0.4", "path": ""},
				{"kind": "jsr", "name": "@std/internal", "constraint": "^1.0.4", "path": "/os"},
				{"kind": "npm", "name": "chalk", "constraint": "^5.0.0", "path": ""}
			]`))
		case "/packages":
			if got := r.URL.Query().Get("query"); got != "path" {
				t.Errorf("query = %q", got)
			}
			w.Write([]byte(`{"items": [` + stdPathJSON + `], "total": 1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return &Client{
		Client:  integrations.NewClient(cache.NewNullCache(), Name, time.Hour, integrations.DefaultHeaders()),
		apiURL:  serverURL,
		siteURL: "https://jsr.example",
	}
}

func TestClient_Fetch(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	meta, err := c.Fetch(context.Background(), "jsr:@std/path")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if meta.Name != "@std/path" || meta.Version != "1.0.8" {
		t.Errorf("got %s@%s", meta.Name, meta.Version)
	}
	if meta.Repository != "https://github.com/denoland/std" {
		t.Errorf("Repository = %q", meta.Repository)
	}
	if meta.ArchiveURL != "https://jsr.example/@std/path/1.0.8" {
		t.Errorf("ArchiveURL = %q", meta.ArchiveURL)
	}
	if diff := cmp.Diff([]string{"@std/internal", "npm:chalk"}, meta.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"deno", "node"}, meta.Extra["runtimes"]); diff != "" {
		t.Errorf("runtimes mismatch (-want +got):\n%s", diff)
	}
	if meta.Published == nil || meta.Published.Year() != 2024 {
		t.Errorf("Published = %v", meta.Published)
	}
}

func TestClient_FetchVersions(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	vs, err := c.FetchVersions(context.Background(), "@std/path")
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 || vs[0].Version != "1.0.8" || !vs[1].Yanked {
		t.Errorf("versions = %+v", vs)
	}
}

func TestClient_Search(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	res, err := c.Search(context.Background(), "path")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Name != "@std/path" {
		t.Errorf("Search = %+v", res)
	}
}

func TestClient_Fetch_Errors(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	if _, err := c.Fetch(context.Background(), "@std/missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing: err = %v, want NOT_FOUND", err)
	}
	if _, err := c.Fetch(context.Background(), "path"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unscoped: err = %v, want INVALID_INPUT", err)
	}
}

func TestClient_FetchAllUnsupported(t *testing.T) {
	c := NewClient(nil, time.Hour)
	if c.SupportsFetchAll() {
		t.Error("JSR must not support FetchAll")
	}
	if _, err := c.FetchAll(context.Background()); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}
