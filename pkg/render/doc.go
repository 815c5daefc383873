// Package render drives format-agnostic output of a [visual.Graph].
//
// A [Writer] knows how to print a header, one node, one edge and a footer in
// its format. [Write] walks the graph in insertion order and calls the
// writer for each piece, so every format shares the traversal and the
// attribute type inference:
//
//	err := render.Write(os.Stdout, g, graphml.New())
//	text, err := render.WriteString(g, dot.New())
//	err = render.WriteFile("out.dot", g, dot.New())
//
// # Type inference
//
// Before the header is written, every attribute is typed on first sight of
// its name within its scope (nodes first, then edges): double, string,
// boolean or int. The types are recorded in the graph so writers can declare
// them up front. A value of any other type fails with
// UNSUPPORTED_ATTRIBUTE_TYPE. Later values under the same name are not
// re-checked.
//
// Output is byte-identical across runs on an unmodified graph.
//
// Formats live in subpackages:
//
//   - [graphml]: GraphML XML
//   - [dot]: Graphviz DOT, plus SVG rendering via go-graphviz
//
// [graphml]: github.com/matzehuels/ergraph/pkg/render/graphml
// [dot]: github.com/matzehuels/ergraph/pkg/render/dot
package render
