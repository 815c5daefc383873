// Package dot writes a [visual.Graph] as Graphviz DOT and renders DOT to SVG
// through go-graphviz.
//
// Identifiers and attribute values are always quoted; quotes, backslashes
// and newlines inside them are escaped:
//
//	digraph "G" {
//	  "ex:a" [type="ex:person", url="http://ex.org/person/a"];
//	  "ex:a" -> "ex:b" [type="ex:friends"];
//	}
package dot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/render"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// Writer implements [render.Writer] for DOT.
type Writer struct{}

// New returns a DOT writer.
func New() *Writer { return &Writer{} }

var _ render.Writer = (*Writer)(nil)

func (*Writer) Header(w io.Writer, g *visual.Graph) error {
	kind := "digraph"
	if !g.Directed {
		kind = "graph"
	}
	_, err := fmt.Fprintf(w, "%s %s {\n", kind, Quote(g.Name))
	return err
}

func (*Writer) Node(w io.Writer, _ *visual.Graph, n *visual.Node) error {
	_, err := fmt.Fprintf(w, "  %s%s;\n", Quote(n.ID), attrList(n.Attrs))
	return err
}

func (*Writer) Edge(w io.Writer, g *visual.Graph, e *visual.Edge) error {
	op := "->"
	if !g.Directed {
		op = "--"
	}
	_, err := fmt.Fprintf(w, "  %s %s %s%s;\n", Quote(e.Source), op, Quote(e.Target), attrList(e.Attrs))
	return err
}

func (*Writer) Footer(w io.Writer, _ *visual.Graph) error {
	_, err := io.WriteString(w, "}\n")
	return err
}

func attrList(attrs visual.Attributes) string {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(attrs))
	for _, name := range attrs.Names() {
		parts = append(parts, key(name)+"="+Quote(render.FormatValue(attrs[name])))
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

var plainID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func key(name string) string {
	if plainID.MatchString(name) {
		return name
	}
	return Quote(name)
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

// Quote returns s as a quoted DOT identifier.
func Quote(s string) string { return `"` + quoter.Replace(s) + `"` }

// Validate parses dot with Graphviz and reports syntax errors.
func Validate(dot []byte) error {
	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	return g.Close()
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot []byte) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeInternal, err, "render SVG")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg element with one
// whose size matches its viewBox, so the SVG scales in browsers.
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
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
