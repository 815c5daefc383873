// Package graphml writes a [visual.Graph] as GraphML.
//
// Every typed attribute gets a <key> declaration ("n0", "n1", ... for nodes,
// "e0", ... for edges) in the order types were inferred. Nodes without
// attributes are written as self-closed elements.
package graphml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/matzehuels/ergraph/pkg/render"
	"github.com/matzehuels/ergraph/pkg/visual"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://graphml.graphdrawing.org/xmlns http://graphml.graphdrawing.org/xmlns/1.0/graphml.xsd">
`

const footer = `  </graph>
</graphml>
`

// Writer implements [render.Writer] for GraphML. A Writer holds the key
// table of the graph being written and must not be shared between
// concurrent writes.
type Writer struct {
	keys map[visual.Scope]map[string]string
}

// New returns a GraphML writer.
func New() *Writer { return &Writer{} }

var _ render.Writer = (*Writer)(nil)

func (x *Writer) Header(w io.Writer, g *visual.Graph) error {
	x.keys = map[visual.Scope]map[string]string{}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, scope := range []visual.Scope{visual.ScopeNode, visual.ScopeEdge} {
		x.keys[scope] = map[string]string{}
		for i, name := range g.AttributeNames(scope) {
			id := fmt.Sprintf("%c%d", scope[0], i)
			x.keys[scope][name] = id
			t, _ := g.AttributeType(scope, name)
			if _, err := fmt.Fprintf(w, "  <key id=\"%s\" for=\"%s\" attr.name=\"%s\" attr.type=\"%s\"/>\n",
				id, scope, escape(name), t); err != nil {
				return err
			}
		}
	}
	edgeDefault := "directed"
	if !g.Directed {
		edgeDefault = "undirected"
	}
	_, err := fmt.Fprintf(w, "  <graph id=\"%s\" edgedefault=\"%s\">\n", escape(g.Name), edgeDefault)
	return err
}

func (x *Writer) Node(w io.Writer, _ *visual.Graph, n *visual.Node) error {
	if len(n.Attrs) == 0 {
		_, err := fmt.Fprintf(w, "    <node id=\"%s\"/>\n", escape(n.ID))
		return err
	}
	if _, err := fmt.Fprintf(w, "    <node id=\"%s\">\n", escape(n.ID)); err != nil {
		return err
	}
	if err := x.data(w, visual.ScopeNode, n.Attrs); err != nil {
		return err
	}
	_, err := io.WriteString(w, "    </node>\n")
	return err
}

func (x *Writer) Edge(w io.Writer, _ *visual.Graph, e *visual.Edge) error {
	if len(e.Attrs) == 0 {
		_, err := fmt.Fprintf(w, "    <edge source=\"%s\" target=\"%s\"/>\n", escape(e.Source), escape(e.Target))
		return err
	}
	if _, err := fmt.Fprintf(w, "    <edge source=\"%s\" target=\"%s\">\n", escape(e.Source), escape(e.Target)); err != nil {
		return err
	}
	if err := x.data(w, visual.ScopeEdge, e.Attrs); err != nil {
		return err
	}
	_, err := io.WriteString(w, "    </edge>\n")
	return err
}

func (x *Writer) Footer(w io.Writer, _ *visual.Graph) error {
	_, err := io.WriteString(w, footer)
	return err
}

func (x *Writer) data(w io.Writer, scope visual.Scope, attrs visual.Attributes) error {
	for _, name := range attrs.Names() {
		if _, err := fmt.Fprintf(w, "      <data key=\"%s\">%s</data>\n",
			x.keys[scope][name], escape(render.FormatValue(attrs[name]))); err != nil {
			return err
		}
	}
	return nil
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
