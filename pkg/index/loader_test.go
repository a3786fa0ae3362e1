package index

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func staticSource(name string, pkgs ...string) Source {
	return Source{
		Name: name,
		Load: func(ctx context.Context) ([]PackageMeta, error) {
			out := make([]PackageMeta, len(pkgs))
			for i, p := range pkgs {
				out[i] = PackageMeta{Name: p, Version: "1.0"}
				out[i].SetExtra("source_repo", name)
			}
			return out, nil
		},
	}
}

func TestLoad_PartialFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	sources := []Source{
		staticSource("core", "bash", "glibc"),
		{
			Name: "broken",
			Load: func(ctx context.Context) ([]PackageMeta, error) {
				return nil, errors.New("connection reset")
			},
		},
		staticSource("extra", "vim"),
	}

	pkgs, err := Load(context.Background(), logger, sources)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var names []string
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "bash,glibc,vim" {
		t.Errorf("packages = %s, want bash,glibc,vim", got)
	}

	out := buf.String()
	if !strings.Contains(out, "broken") {
		t.Errorf("warning should name the failing repo, log = %q", out)
	}
	if !strings.Contains(out, "connection reset") {
		t.Errorf("warning should carry the cause, log = %q", out)
	}
	if strings.Contains(out, "repo=core") || strings.Contains(out, "repo=extra") {
		t.Errorf("healthy repos should not be logged at info level, log = %q", out)
	}
}

func TestLoad_AllFail(t *testing.T) {
	fail := func(ctx context.Context) ([]PackageMeta, error) { return nil, errors.New("down") }
	pkgs, err := Load(context.Background(), log.New(&bytes.Buffer{}), []Source{
		{Name: "a", Load: fail},
		{Name: "b", Load: fail},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pkgs) != 0 {
		t.Errorf("len(pkgs) = %d, want 0", len(pkgs))
	}
}

func TestLoad_PreservesSourceOrder(t *testing.T) {
	slow := Source{
		Name: "slow",
		Load: func(ctx context.Context) ([]PackageMeta, error) {
			time.Sleep(20 * time.Millisecond)
			return []PackageMeta{{Name: "first"}}, nil
		},
	}
	fast := staticSource("fast", "second")

	pkgs, _ := Loader{Logger: log.New(&bytes.Buffer{}), Concurrency: 2}.Load(context.Background(), []Source{slow, fast})
	if len(pkgs) != 2 || pkgs[0].Name != "first" || pkgs[1].Name != "second" {
		t.Errorf("pkgs = %+v, want first then second", pkgs)
	}
}

func TestLoad_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	src := func(name string) Source {
		return Source{Name: name, Load: func(ctx context.Context) ([]PackageMeta, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil, nil
		}}
	}

	var sources []Source
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		sources = append(sources, src(n))
	}
	if _, err := (Loader{Logger: log.New(&bytes.Buffer{}), Concurrency: 2}).Load(context.Background(), sources); err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, log.New(&bytes.Buffer{}), []Source{staticSource("core", "bash")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
