// Package dot draws dependency trees as Graphviz node-link diagrams.
//
// [ToDOT] folds a [deps.TreeNode] forest back into a graph, one node per
// name@version, and emits DOT source that can be saved for external
// Graphviz tools or rendered in process with [RenderSVG]:
//
//	src := dot.ToDOT(tree.Roots, dot.Options{Detailed: true})
//	svg, err := dot.RenderSVG(ctx, src)
//
// The layout is top to bottom with rounded box nodes.
package dot
