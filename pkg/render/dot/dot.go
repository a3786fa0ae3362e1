package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/depscope/pkg/deps"
)

// Options configures diagram generation.
type Options struct {
	// Detailed puts the version on a second label line. When false, only
	// the package name is shown.
	Detailed bool
	// Title labels the graph, usually with the project or root package.
	Title string
}

// ToDOT converts a dependency forest to Graphviz DOT source.
//
// Each distinct name@version becomes one node, so packages repeated across
// branches of the tree are drawn once with several incoming edges, and the
// leaf that closes a cycle becomes a back edge. Roots are drawn bold.
func ToDOT(roots []deps.TreeNode, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n  fontsize=28;\n", opts.Title)
	}
	buf.WriteString("\n")

	w := &writer{buf: &buf, opts: opts, nodes: make(map[string]bool), edges: make(map[[2]string]bool)}
	for _, r := range roots {
		w.node(r, true)
	}
	buf.WriteString("\n")
	for _, r := range roots {
		w.walk(r)
	}

	buf.WriteString("}\n")
	return buf.String()
}

type writer struct {
	buf   *bytes.Buffer
	opts  Options
	nodes map[string]bool
	edges map[[2]string]bool
}

func (w *writer) node(n deps.TreeNode, root bool) {
	id := deps.Key(n.Name, n.Version)
	if w.nodes[id] {
		return
	}
	w.nodes[id] = true

	label := n.Name
	if w.opts.Detailed && n.Version != "" {
		label += "\n" + n.Version
	}
	attrs := fmt.Sprintf("label=%q", label)
	if root {
		attrs += ", penwidth=3"
	}
	fmt.Fprintf(w.buf, "  %q [%s];\n", id, attrs)
	for _, d := range n.Dependencies {
		w.node(d, false)
	}
}

func (w *writer) walk(n deps.TreeNode) {
	from := deps.Key(n.Name, n.Version)
	for _, d := range n.Dependencies {
		to := deps.Key(d.Name, d.Version)
		e := [2]string{from, to}
		if !w.edges[e] {
			w.edges[e] = true
			fmt.Fprintf(w.buf, "  %q -> %q;\n", from, to)
		}
		w.walk(d)
	}
}

// RenderSVG renders DOT source to SVG in process.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
