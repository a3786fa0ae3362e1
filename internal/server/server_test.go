package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
)

type fakeIndex struct {
	pkgs map[string]index.PackageMeta
}

func (f *fakeIndex) Name() string { return "fake" }

func (f *fakeIndex) Fetch(_ context.Context, name string) (*index.PackageMeta, error) {
	m, ok := f.pkgs[name]
	if !ok {
		return nil, index.ErrNotFound("fake", name)
	}
	return &m, nil
}

func (f *fakeIndex) FetchVersions(ctx context.Context, name string) ([]index.VersionMeta, error) {
	m, err := f.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return []index.VersionMeta{{Version: m.Version}}, nil
}

func (f *fakeIndex) Search(_ context.Context, q string) ([]index.PackageMeta, error) {
	var out []index.PackageMeta
	for n, m := range f.pkgs {
		if n == q {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeIndex) FetchAll(context.Context) ([]index.PackageMeta, error) {
	return nil, index.ErrFetchAllUnsupported("fake")
}

func (f *fakeIndex) SupportsFetchAll() bool { return false }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	fake := &fakeIndex{pkgs: map[string]index.PackageMeta{
		"serde":     {Name: "serde", Version: "1.0.200"},
		"@std/path":   {Name: "@std/path", Version: "1.0.8"},
	}}
	s := New(Options{
		Open: func(name string) (index.PackageIndex, error) {
			if name != "fake" {
				return nil, errors.New(errors.ErrCodeInvalidInput, "unknown package index %q", name)
			}
			return fake, nil
		},
		Names:  []string{"fake"},
		Logger: log.New(io.Discard),
	})
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("GET %s Content-Type = %q", path, ct)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestFetch(t *testing.T) {
	ts := newTestServer(t)

	var meta index.PackageMeta
	if code := get(t, ts, "/v1/indexes/fake/packages/serde", &meta); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if meta.Version != "1.0.200" {
		t.Errorf("Version = %q", meta.Version)
	}

	if code := get(t, ts, "/v1/indexes/fake/packages/@std/path", &meta); code != http.StatusOK {
		t.Fatalf("scoped status = %d", code)
	}
	if meta.Name != "@std/path" {
		t.Errorf("Name = %q", meta.Name)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path   string
		status int
		code   errors.Code
	}{
		{"/v1/indexes/fake/packages/missing", http.StatusNotFound, errors.ErrCodeNotFound},
		{"/v1/indexes/nope/packages/serde", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"/v1/indexes/fake/search", http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		var body errorBody
		if code := get(t, ts, tt.path, &body); code != tt.status {
			t.Errorf("GET %s status = %d, want %d", tt.path, code, tt.status)
		}
		if body.Code != tt.code {
			t.Errorf("GET %s code = %q, want %q", tt.path, body.Code, tt.code)
		}
	}

	var body errorBody
	get(t, ts, "/v1/indexes/fake/packages/missing", &body)
	if body.Hint == "" {
		t.Error("not found error lost its hint")
	}
}

func TestVersionsAndSearch(t *testing.T) {
	ts := newTestServer(t)

	var versions []index.VersionMeta
	get(t, ts, "/v1/indexes/fake/versions/serde", &versions)
	if diff := cmp.Diff([]index.VersionMeta{{Version: "1.0.200"}}, versions); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}

	var results []index.PackageMeta
	get(t, ts, "/v1/indexes/fake/search?q=nothing", &results)
	if results == nil || len(results) != 0 {
		t.Errorf("empty search = %v, want []", results)
	}
}

func TestIndexes(t *testing.T) {
	ts := newTestServer(t)

	var out []map[string]any
	if code := get(t, ts, "/v1/indexes", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := []map[string]any{{"name": "fake", "fetch_all": false}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("indexes mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(errors.ErrCodeUnsupported); got != http.StatusNotImplemented {
		t.Errorf("statusFor(UNSUPPORTED) = %d", got)
	}
	if got := statusFor(""); got != http.StatusInternalServerError {
		t.Errorf("statusFor(\"\") = %d", got)
	}
}
