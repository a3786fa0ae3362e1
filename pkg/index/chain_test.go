package index

import (
	"context"
	"testing"

	"github.com/matzehuels/depscope/pkg/errors"
)

type fakeIndex struct {
	name     string
	pkgs     map[string]PackageMeta
	err      error
	fetchAll bool
}

func (f *fakeIndex) Name() string { return f.name }

func (f *fakeIndex) Fetch(ctx context.Context, name string) (*PackageMeta, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.pkgs[name]; ok {
		return &p, nil
	}
	return nil, ErrNotFound(f.name, name)
}

func (f *fakeIndex) FetchVersions(ctx context.Context, name string) ([]VersionMeta, error) {
	p, err := f.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return []VersionMeta{{Version: p.Version}}, nil
}

func (f *fakeIndex) Search(ctx context.Context, query string) ([]PackageMeta, error) {
	if f.err != nil {
		return nil, f.err
	}
	var all []PackageMeta
	for _, p := range f.pkgs {
		all = append(all, p)
	}
	return Filter(all, query), nil
}

func (f *fakeIndex) FetchAll(ctx context.Context) ([]PackageMeta, error) {
	if !f.fetchAll {
		return nil, ErrFetchAllUnsupported(f.name)
	}
	var all []PackageMeta
	for _, p := range f.pkgs {
		all = append(all, p)
	}
	return all, nil
}

func (f *fakeIndex) SupportsFetchAll() bool { return f.fetchAll }

func TestChain_FetchFallsThroughNotFound(t *testing.T) {
	jsr := &fakeIndex{name: "jsr", pkgs: map[string]PackageMeta{"@std/path": {Name: "@std/path", Version: "1.0.8"}}}
	npm := &fakeIndex{name: "npm", pkgs: map[string]PackageMeta{"chalk": {Name: "chalk", Version: "5.3.0"}}}
	c := NewChain("deno", jsr, npm)

	p, err := c.Fetch(context.Background(), "chalk")
	if err != nil {
		t.Fatal(err)
	}
	if p.Version != "5.3.0" {
		t.Errorf("Version = %s, want 5.3.0", p.Version)
	}

	_, err = c.Fetch(context.Background(), "missing")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestChain_FetchReportsNonNotFound(t *testing.T) {
	down := &fakeIndex{name: "jsr", err: errors.New(errors.ErrCodeNetwork, "down")}
	empty := &fakeIndex{name: "npm"}
	c := NewChain("deno", down, empty)

	_, err := c.Fetch(context.Background(), "x")
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("err = %v, want NETWORK_ERROR", err)
	}
}

func TestChain_SearchMergesAndTolerates(t *testing.T) {
	a := &fakeIndex{name: "a", pkgs: map[string]PackageMeta{"path": {Name: "path"}}}
	b := &fakeIndex{name: "b", err: errors.New(errors.ErrCodeNetwork, "down")}
	c := &fakeIndex{name: "c", pkgs: map[string]PackageMeta{"path": {Name: "path"}, "pathe": {Name: "pathe"}}}

	res, err := NewChain("x", a, b, c).Search(context.Background(), "path")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Errorf("len = %d, want 2 (duplicates dropped)", len(res))
	}
}

func TestChain_FetchAllGate(t *testing.T) {
	a := &fakeIndex{name: "a", fetchAll: true}
	b := &fakeIndex{name: "b"}
	c := NewChain("x", a, b)

	if c.SupportsFetchAll() {
		t.Error("chain with a non-enumerable member must not support FetchAll")
	}
	if _, err := c.FetchAll(context.Background()); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}
