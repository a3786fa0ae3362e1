package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	if h3 := Hash([]byte("world")); h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	if len(h1) != 16 {
		t.Errorf("Hash length should be 16, got %d", len(h1))
	}
}

func TestKey(t *testing.T) {
	if got := Key("crates", "serde"); got != "crates:serde" {
		t.Errorf("Key() = %q", got)
	}
}

func TestFileCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("line one\nline two\n\x00binary")
	if err := c.Set(ctx, "npm:react", payload, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, "npm:react")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Errorf("Get = %q, want %q", got, payload)
	}

	if _, ok, _ := c.Get(ctx, "npm:vue"); ok {
		t.Error("unexpected hit for missing key")
	}
}

func TestFileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expired entry must be reported as a miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestFileCache_NoExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("entry with zero ttl should not expire")
	}
}

func TestFileCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not a header"), 0644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("corrupt entry should not error: %v", err)
	}
	if ok {
		t.Error("corrupt entry should be a miss")
	}
}

func TestFileCache_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Set(ctx, "shared", []byte(fmt.Sprintf("writer-%02d", i)), time.Hour)
		}(i)
	}
	wg.Wait()

	got, ok, err := c.Get(ctx, "shared")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got) != len("writer-00") {
		t.Errorf("torn entry: %q", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(c.path("shared")))
	for _, e := range entries {
		if filepath.Ext(e.Name()) != "" || e.Name()[0] == '.' {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestFileCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("entry survived Clear")
	}
}

func TestWriteOnly(t *testing.T) {
	ctx := context.Background()
	inner, _ := NewFileCache(t.TempDir())
	c := WriteOnly(inner)

	if err := inner.Set(ctx, "k", []byte("old"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("WriteOnly.Get must always miss")
	}

	if err := c.Set(ctx, "k", []byte("new"), time.Hour); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := inner.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Errorf("inner = %q (ok=%v), want new", got, ok)
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner, _ := NewFileCache(t.TempDir())
	c := Scoped(inner, "depscope:")

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := inner.Get(ctx, "depscope:k"); !ok {
		t.Error("scoped key not found in inner cache")
	}
	if _, ok, _ := inner.Get(ctx, "k"); ok {
		t.Error("unscoped key should not exist")
	}

	if Scoped(inner, "") != Cache(inner) {
		t.Error("empty prefix should return inner cache")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := Open(ctx, "", dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*FileCache); !ok {
		t.Errorf("Open(\"\") = %T, want *FileCache", c)
	}

	c, err = Open(ctx, "none", dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*NullCache); !ok {
		t.Errorf("Open(none) = %T, want *NullCache", c)
	}

	if _, err := Open(ctx, "ftp://example.com", dir); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestDatabaseFromURI(t *testing.T) {
	tests := map[string]string{
		"mongodb://localhost:27017":              "",
		"mongodb://localhost:27017/":             "",
		"mongodb://localhost:27017/cache":        "cache",
		"mongodb://u:p@h1,h2/cache?replicaSet=x": "cache",
	}
	for in, want := range tests {
		if got := databaseFromURI(in); got != want {
			t.Errorf("databaseFromURI(%q) = %q, want %q", in, got, want)
		}
	}
}
