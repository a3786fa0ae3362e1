package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
)

func TestNewClient(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	defer c.Close()

	headers := map[string]string{"Authorization": "Bearer token"}
	client := NewClient(c, "test", time.Hour, headers)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.cache != cache.Cache(c) {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["Authorization"] != "Bearer token" {
		t.Error("NewClient() headers not set correctly")
	}
	if client.Namespace() != "test" {
		t.Errorf("Namespace() = %q", client.Namespace())
	}
}

func TestNewClientNilCache(t *testing.T) {
	client := NewClient(nil, "test", time.Hour, nil)
	if client.cache == nil {
		t.Fatal("nil backend should fall back to NullCache")
	}
	if client.headers != nil {
		t.Error("NewClient() should allow nil headers")
	}
}

func TestFetchWithCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"name":"serde"}`))
	}))
	defer server.Close()

	c, _ := cache.NewFileCache(t.TempDir())
	client := NewClient(c, "crates", time.Hour, nil)
	client.SetHTTPClient(server.Client())
	ctx := context.Background()

	body, cached, err := client.FetchWithCache(ctx, "serde", server.URL)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if cached {
		t.Error("first fetch should not be cached")
	}
	if string(body) != `{"name":"serde"}` {
		t.Errorf("body = %q", body)
	}

	body, cached, err = client.FetchWithCache(ctx, "serde", server.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !cached {
		t.Error("second fetch should be served from cache")
	}
	if string(body) != `{"name":"serde"}` {
		t.Errorf("cached body = %q", body)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}

	if _, ok, _ := c.Get(ctx, "crates:serde"); !ok {
		t.Error("entry should be stored under namespace:key")
	}
}

func TestFetchWithCache_RefreshStillWrites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	inner, _ := cache.NewFileCache(t.TempDir())
	ctx := context.Background()
	_ = inner.Set(ctx, "npm:react", []byte("stale"), time.Hour)

	client := NewClient(cache.WriteOnly(inner), "npm", time.Hour, nil)
	client.SetHTTPClient(server.Client())

	body, cached, err := client.FetchWithCache(ctx, "react", server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if cached || string(body) != "fresh" {
		t.Errorf("got %q cached=%v, want fresh response", body, cached)
	}
	got, _, _ := inner.Get(ctx, "npm:react")
	if string(got) != "fresh" {
		t.Errorf("cache = %q, want fresh", got)
	}
}

func TestFetchWithCache_EmptyKeyBypassesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	c, _ := cache.NewFileCache(t.TempDir())
	client := NewClient(c, "t", time.Hour, nil)
	client.SetHTTPClient(server.Client())

	for i := 0; i < 2; i++ {
		if _, _, err := client.FetchWithCache(context.Background(), "", server.URL); err != nil {
			t.Fatal(err)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hits = %d, want 2", n)
	}
}

func TestFetch_Headers(t *testing.T) {
	var custom, override string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		custom = r.Header.Get("X-Custom")
		override = r.Header.Get("X-Override")
	}))
	defer server.Close()

	client := NewClient(nil, "t", 0, map[string]string{"X-Override": "default", "X-Custom": "default"})
	client.SetHTTPClient(server.Client())

	_, err := client.Fetch(context.Background(), server.URL, map[string]string{"X-Override": "overridden"})
	if err != nil {
		t.Fatal(err)
	}
	if custom != "default" {
		t.Errorf("X-Custom = %q, want default", custom)
	}
	if override != "overridden" {
		t.Errorf("X-Override = %q, want overridden", override)
	}
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		code   errors.Code
	}{
		{http.StatusNotFound, errors.ErrCodeNotFound},
		{http.StatusGone, errors.ErrCodeNotFound},
		{http.StatusInternalServerError, errors.ErrCodeNetwork},
		{http.StatusTooManyRequests, errors.ErrCodeNetwork},
		{http.StatusForbidden, errors.ErrCodeNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(nil, "t", 0, nil)
			client.SetHTTPClient(server.Client())

			_, err := client.Fetch(context.Background(), server.URL+"/pkg?token=secret", nil)
			if !errors.Is(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
			if got := err.Error(); strings.Contains(got, "secret") {
				t.Errorf("query string leaked into error: %s", got)
			}
		})
	}
}

func TestFetch_NotCachedOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, _ := cache.NewFileCache(t.TempDir())
	client := NewClient(c, "t", time.Hour, nil)
	client.SetHTTPClient(server.Client())

	if _, _, err := client.FetchWithCache(context.Background(), "k", server.URL); err == nil {
		t.Fatal("expected error")
	}
	if _, ok, _ := c.Get(context.Background(), "t:k"); ok {
		t.Error("failed responses must not be cached")
	}
}

func TestFetch_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(nil, "t", 0, nil)
	client.SetHTTPClient(server.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, server.URL, nil)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestGetJSON_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer server.Close()

	client := NewClient(nil, "t", 0, nil)
	client.SetHTTPClient(server.Client())

	var v map[string]any
	err := client.GetJSON(context.Background(), "", server.URL, &v)
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("err = %v, want PARSE_ERROR", err)
	}
}
