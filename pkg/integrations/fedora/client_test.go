package fedora

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/integrations"
)

func mdapiJSON(version, release string) string {
	return `{
  "basename": "python-requests",
  "arch": "noarch",
  "epoch": "0",
  "version": "` + version + `",
  "release": "` + release + `",
  "summary": "HTTP library, written in Python, for human beings",
  "url": "https://pypi.io/project/requests",
  "repo": "release",
  "requires": [
    {"name": "python(abi)", "flags": "EQ", "version": "3.13"},
    {"name": "python3-urllib3"},
    {"name": "python3-urllib3"},
    {"name": "/usr/bin/python3"},
    {"name": "python3-idna"}
  ],
  "provides": [{"name": "python3-requests"}, {"name": "python3dist(requests)"}],
  "co-packages": ["python3-requests", "python-requests"]
}`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rawhide/pkg/python3-requests":
			w.Write([]byte(mdapiJSON("2.32.3", "4.fc42")))
		case r.URL.Path == "/f41/pkg/python3-requests":
			w.Write([]byte(mdapiJSON("2.32.3", "1.fc41")))
		case r.URL.Path == "/f40/pkg/python3-requests":
			w.WriteHeader(http.StatusBadGateway)
		case r.URL.Path == "/f39/pkg/python3-requests":
			w.Write([]byte(mdapiJSON("2.32.3", "1.fc41")))
		case r.URL.Path == "/f41/pkg/only-in-f41":
			w.Write([]byte(`{"version": "1.0", "release": "1.fc41", "epoch": "2"}`))
		case strings.HasPrefix(r.URL.Path, "/search/"):
			if !strings.Contains(r.URL.Path, `"search":"requests"`) {
				t.Errorf("search path = %q", r.URL.Path)
			}
			w.Write([]byte(`{"total_rows": 1, "rows": [{"name": "python-<span class=\"match\">requests</span>", "summary": "HTTP library", "devel_owner": "churchyard"}]}`))
		default:
			http.Error(w, "No package found", http.StatusNotFound)
		}
	}))
}

func testClient(t *testing.T, serverURL string, logger *log.Logger, releases ...string) *Client {
	t.Helper()
	return &Client{
		Client:    integrations.NewClient(cache.NewNullCache(), Name, time.Hour, integrations.DefaultHeaders()),
		mdapiURL:  serverURL,
		searchURL: serverURL + "/search",
		releases:  releases,
		logger:    logger,
	}
}

func TestClient_Fetch(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL, nil, "rawhide", "f41")

	meta, err := c.Fetch(context.Background(), "python3-requests")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if meta.Version != "2.32.3-4.fc42" {
		t.Errorf("Version = %q", meta.Version)
	}
	if diff := cmp.Diff([]string{"python3-urllib3", "python3-idna"}, meta.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
	if meta.ExtraString("release") != "rawhide" {
		t.Errorf("release = %v", meta.Extra["release"])
	}
	if diff := cmp.Diff([]string{"python-requests"}, meta.Extra["co_packages"]); diff != "" {
		t.Errorf("co_packages mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Fetch_FallsThroughReleases(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL, nil, "rawhide", "f41")

	meta, err := c.Fetch(context.Background(), "only-in-f41")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if meta.Version != "2:1.0-1.fc41" {
		t.Errorf("Version = %q", meta.Version)
	}

	if _, err := c.Fetch(context.Background(), "nowhere"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestClient_FetchVersions_PartialFailure(t *testing.T) {
	server := newServer(t)
	defer server.Close()

	var buf bytes.Buffer
	logger := log.New(&buf)
	c := testClient(t, server.URL, logger, "rawhide", "f41", "f40", "f39")

	vs, err := c.FetchVersions(context.Background(), "python3-requests")
	if err != nil {
		t.Fatalf("FetchVersions failed: %v", err)
	}
	var got []string
	for _, v := range vs {
		got = append(got, v.Version)
	}
	if diff := cmp.Diff([]string{"2.32.3-4.fc42", "2.32.3-1.fc41"}, got); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "f40") {
		t.Errorf("expected a warning for f40, log = %q", buf.String())
	}
}

func TestClient_Search(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	c := testClient(t, server.URL, nil, "rawhide")

	res, err := c.Search(context.Background(), "requests")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Name != "python-requests" {
		t.Fatalf("Search = %+v", res)
	}
	if diff := cmp.Diff([]string{"churchyard"}, res[0].Maintainers); diff != "" {
		t.Errorf("Maintainers mismatch (-want +got):\n%s", diff)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil, time.Hour, nil)
	if diff := cmp.Diff(DefaultReleases, c.Releases()); diff != "" {
		t.Errorf("releases mismatch (-want +got):\n%s", diff)
	}
	if _, err := c.FetchAll(context.Background()); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}
