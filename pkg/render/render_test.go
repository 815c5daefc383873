package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// listWriter prints one line per callback.
type listWriter struct{}

func (listWriter) Header(w io.Writer, g *visual.Graph) error {
	_, err := fmt.Fprintf(w, "graph %s\n", g.Name)
	return err
}

func (listWriter) Node(w io.Writer, g *visual.Graph, n *visual.Node) error {
	_, err := fmt.Fprintf(w, "node %s %d\n", n.ID, len(n.Attrs))
	return err
}

func (listWriter) Edge(w io.Writer, g *visual.Graph, e *visual.Edge) error {
	_, err := fmt.Fprintf(w, "edge %s %s\n", e.Source, e.Target)
	return err
}

func (listWriter) Footer(w io.Writer, g *visual.Graph) error {
	_, err := io.WriteString(w, "end\n")
	return err
}

func sample() *visual.Graph {
	g := visual.New("G", true)
	g.SetNodeAttr("a", "weight", 1.5)
	g.SetNodeAttr("a", "label", "A")
	g.SetEdgeAttr("a", "b", "count", 3)
	return g
}

func TestWriteOrder(t *testing.T) {
	got, err := WriteString(sample(), listWriter{})
	if err != nil {
		t.Fatal(err)
	}
	want := "graph G\nnode a 2\nnode b 0\nedge a b\nend\n"
	if got != want {
		t.Errorf("WriteString() =\n%s\nwant\n%s", got, want)
	}
}

func TestInferRecordsTypes(t *testing.T) {
	g := sample()
	if err := Infer(g); err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		scope visual.Scope
		name  string
		want  visual.Type
	}{
		{visual.ScopeNode, "weight", visual.TypeDouble},
		{visual.ScopeNode, "label", visual.TypeString},
		{visual.ScopeEdge, "count", visual.TypeInt},
	}
	for _, c := range checks {
		if got, _ := g.AttributeType(c.scope, c.name); got != c.want {
			t.Errorf("%s %s = %q, want %q", c.scope, c.name, got, c.want)
		}
	}
}

func TestWriteUnsupportedType(t *testing.T) {
	g := visual.New("G", true)
	g.SetNodeAttr("a", "tags", map[string]int{})
	_, err := WriteString(g, listWriter{})
	if !ergerrors.Is(err, ergerrors.ErrCodeUnsupportedType) {
		t.Errorf("WriteString() error = %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteIOError(t *testing.T) {
	g := visual.New("G", true)
	for i := range 5000 {
		g.AddNode(fmt.Sprintf("n%d", i))
	}
	err := Write(failingWriter{}, g, listWriter{})
	if !ergerrors.Is(err, ergerrors.ErrCodeIO) {
		t.Errorf("Write() error = %v, want IO_ERROR", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := WriteFile(path, sample(), listWriter{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "graph G\n") {
		t.Errorf("file content = %q", data)
	}
	if err := WriteFile(filepath.Join(t.TempDir(), "no", "dir", "x"), sample(), listWriter{}); !ergerrors.Is(err, ergerrors.ErrCodeIO) {
		t.Errorf("WriteFile(bad path) error = %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{1.5, "1.5"},
		{2.0, "2"},
		{true, "true"},
		{7, "7"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
