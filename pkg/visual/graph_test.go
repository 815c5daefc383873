package visual

import (
	"slices"
	"testing"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

func TestEdgeAutoCreatesNodes(t *testing.T) {
	g := New("g", true)
	g.SetNodeAttr("a", "type", "ex:person")
	g.SetEdgeAttr("a", "b", "type", "ex:friends")

	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Fatalf("counts = %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	b, ok := g.Node("b")
	if !ok || len(b.Attrs) != 0 {
		t.Errorf("auto-created node = %+v", b)
	}
}

func TestParallelEdgesLastWriteWins(t *testing.T) {
	g := New("g", true)
	g.SetEdgeAttr("a", "b", "type", "first")
	g.SetEdgeAttr("a", "b", "type", "second")
	g.SetEdgeAttr("b", "a", "type", "reverse")

	if g.EdgeCount() != 2 {
		t.Fatalf("EdgeCount() = %d, want 2", g.EdgeCount())
	}
	e, _ := g.Edge("a", "b")
	if e.Attrs["type"] != "second" {
		t.Errorf("edge type = %v, want last write", e.Attrs["type"])
	}
}

func TestInsertionOrder(t *testing.T) {
	g := New("g", false)
	for _, id := range []string{"z", "a", "m"} {
		g.AddNode(id)
	}
	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	if !slices.Equal(ids, []string{"z", "a", "m"}) {
		t.Errorf("Nodes() = %v", ids)
	}
}

func TestObserve(t *testing.T) {
	g := New("g", true)
	if typ, err := g.Observe(ScopeNode, "weight", 1.5); err != nil || typ != TypeDouble {
		t.Fatalf("Observe() = %v, %v", typ, err)
	}
	if typ, _ := g.Observe(ScopeNode, "weight", "heavy"); typ != TypeDouble {
		t.Errorf("later values must not re-type, got %v", typ)
	}
	if _, ok := g.AttributeType(ScopeEdge, "weight"); ok {
		t.Error("scopes must be independent")
	}
	if _, err := g.Observe(ScopeEdge, "tags", []string{"x"}); !ergerrors.Is(err, ergerrors.ErrCodeUnsupportedType) {
		t.Errorf("Observe(slice) error = %v", err)
	}
	_, _ = g.Observe(ScopeNode, "active", true)
	if got := g.AttributeNames(ScopeNode); !slices.Equal(got, []string{"weight", "active"}) {
		t.Errorf("AttributeNames() = %v", got)
	}
}

func TestInferType(t *testing.T) {
	tests := map[Type][]any{
		TypeDouble:  {1.0, float32(2)},
		TypeString:  {"x", ""},
		TypeBoolean: {true, false},
		TypeInt:     {1, int64(2), uint8(3)},
	}
	for want, values := range tests {
		for _, v := range values {
			if got, err := InferType(v); err != nil || got != want {
				t.Errorf("InferType(%T) = %v, %v, want %v", v, got, err, want)
			}
		}
	}
	if _, err := InferType(nil); err == nil {
		t.Error("InferType(nil) should fail")
	}
}
