package render

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// Writer prints the pieces of one output format. Header is called once
// before any node, Footer once after the last edge.
type Writer interface {
	Header(w io.Writer, g *visual.Graph) error
	Node(w io.Writer, g *visual.Graph, n *visual.Node) error
	Edge(w io.Writer, g *visual.Graph, e *visual.Edge) error
	Footer(w io.Writer, g *visual.Graph) error
}

// Infer records the type of every attribute of g on first sight.
func Infer(g *visual.Graph) error {
	for _, n := range g.Nodes() {
		for _, name := range n.Attrs.Names() {
			if _, err := g.Observe(visual.ScopeNode, name, n.Attrs[name]); err != nil {
				return fmt.Errorf("node %q: %w", n.ID, err)
			}
		}
	}
	for _, e := range g.Edges() {
		for _, name := range e.Attrs.Names() {
			if _, err := g.Observe(visual.ScopeEdge, name, e.Attrs[name]); err != nil {
				return fmt.Errorf("edge %q -> %q: %w", e.Source, e.Target, err)
			}
		}
	}
	return nil
}

// Write renders g with wr to w.
func Write(w io.Writer, g *visual.Graph, wr Writer) error {
	if err := Infer(g); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := wr.Header(bw, g); err != nil {
		return wrapIO(err)
	}
	for _, n := range g.Nodes() {
		if err := wr.Node(bw, g, n); err != nil {
			return wrapIO(err)
		}
	}
	for _, e := range g.Edges() {
		if err := wr.Edge(bw, g, e); err != nil {
			return wrapIO(err)
		}
	}
	if err := wr.Footer(bw, g); err != nil {
		return wrapIO(err)
	}
	return wrapIO(bw.Flush())
}

// WriteString renders g with wr into a string.
func WriteString(g *visual.Graph, wr Writer) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g, wr); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile renders g with wr into the file at path.
func WriteFile(path string, g *visual.Graph, wr Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "create %s", path)
	}
	if err := Write(f, g, wr); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}

func wrapIO(err error) error {
	if err == nil || ergerrors.GetCode(err) != "" {
		return err
	}
	return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "write output")
}

// FormatValue returns the textual form of an attribute value.
func FormatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(v)
}
