package crates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/integrations"
)

const serdeJSON = `{
  "crate": {
    "name": "serde",
    "max_version": "1.1.0-rc.1",
    "max_stable_version": "1.0.0",
    "description": " A serialization framework ",
    "repository": "https://github.com/serde-rs/serde",
    "homepage": "https://serde.rs",
    "downloads": 1000000,
    "recent_downloads": 5000,
    "keywords": ["serde", "serialization"]
  },
  "versions": [
    {"num": "1.1.0-rc.1", "yanked": false, "license": "MIT OR Apache-2.0", "created_at": "2024-03-01T00:00:00Z"},
    {"num": "1.0.0", "yanked": false, "license": "MIT OR Apache-2.0", "checksum": "abcd", "rust_version": "1.31",
     "created_at": "2024-02-01T00:00:00Z", "features": {"default": ["std"], "std": []}, "published_by": {"login": "dtolnay"}},
    {"num": "0.9.0", "yanked": true, "created_at": "2023-01-01T00:00:00Z"}
  ]
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	depsResp := depsResponse{
		Dependencies: []struct {
			CrateID  string `json:"crate_id"`
			Kind     string `json:"kind"`
			Optional bool   `json:"optional"`
		}{
			{CrateID: "serde_derive", Kind: "normal", Optional: false},
			{CrateID: "test_dep", Kind: "dev", Optional: false},
			{CrateID: "optional_dep", Kind: "normal", Optional: true},
		},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crates/serde":
			w.Write([]byte(serdeJSON))
		case "/crates/serde/1.0.0/dependencies":
			json.NewEncoder(w).Encode(depsResp)
		case "/crates":
			if r.URL.Query().Get("q") != "serde" {
				t.Errorf("q = %q", r.URL.Query().Get("q"))
			}
			w.Write([]byte(`{"crates":[{"name":"serde","max_version":"1.0.0","downloads":10},{"name":"serde_json","max_version":"1.0.1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c := &Client{
		Client:      integrations.NewClient(cache.NewNullCache(), Name, time.Hour, integrations.DefaultHeaders()),
		baseURL:     serverURL,
		downloadURL: "https://static.example/crates",
	}
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient(cache.NewNullCache(), time.Hour)
	if c.Client == nil {
		t.Error("expected client to be initialized")
	}
	if c.Name() != "crates" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestClient_Fetch(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	meta, err := c.Fetch(context.Background(), "serde")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if meta.Version != "1.0.0" {
		t.Errorf("Version = %s, want max_stable_version 1.0.0", meta.Version)
	}
	if meta.Description != "A serialization framework" {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.License != "MIT OR Apache-2.0" {
		t.Errorf("License = %q", meta.License)
	}
	if meta.Checksum != "sha256:abcd" {
		t.Errorf("Checksum = %q", meta.Checksum)
	}
	if meta.ArchiveURL != "https://static.example/crates/serde/serde-1.0.0.crate" {
		t.Errorf("ArchiveURL = %q", meta.ArchiveURL)
	}
	if len(meta.Dependencies) != 1 || meta.Dependencies[0] != "serde_derive" {
		t.Errorf("Dependencies = %v, want [serde_derive]", meta.Dependencies)
	}
	if meta.Extra["msrv"] != "1.31" {
		t.Errorf("msrv = %v", meta.Extra["msrv"])
	}
	if len(meta.Features["default"]) != 1 {
		t.Errorf("Features = %v", meta.Features)
	}
	if meta.Downloads != 1000000 {
		t.Errorf("Downloads = %d", meta.Downloads)
	}
	if len(meta.Maintainers) != 1 || meta.Maintainers[0] != "dtolnay" {
		t.Errorf("Maintainers = %v", meta.Maintainers)
	}
}

func TestClient_FetchVersions(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	vs, err := c.FetchVersions(context.Background(), "serde")
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 3 {
		t.Fatalf("len = %d, want 3", len(vs))
	}
	if vs[0].Version != "1.1.0-rc.1" {
		t.Errorf("newest = %s", vs[0].Version)
	}
	if !vs[2].Yanked {
		t.Error("0.9.0 should be yanked")
	}
}

func TestClient_Search(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	res, err := c.Search(context.Background(), "serde")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[1].Name != "serde_json" {
		t.Errorf("Search = %+v", res)
	}
}

func TestClient_Fetch_NotFound(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL)

	_, err := c.Fetch(context.Background(), "nonexistent")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestClient_Fetch_InvalidName(t *testing.T) {
	c := testClient(t, "http://unused.invalid")
	if _, err := c.Fetch(context.Background(), "../etc/passwd"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestClient_FetchAllUnsupported(t *testing.T) {
	c := NewClient(nil, time.Hour)
	if c.SupportsFetchAll() {
		t.Error("crates.io must not support FetchAll")
	}
	if _, err := c.FetchAll(context.Background()); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}
