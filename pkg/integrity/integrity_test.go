package integrity

import (
	"strings"
	"testing"

	"github.com/matzehuels/ergraph/pkg/ergraph"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/loader"
	"github.com/matzehuels/ergraph/pkg/schema"
)

func load(t *testing.T, doc string) *ergraph.Graph {
	t.Helper()
	s, err := schema.Build(
		schema.Definition{Kind: "person", Attributes: []string{"@id", "!name", "*friends:person", "*pets:animal"}},
		schema.Definition{Kind: "animal", Attributes: []string{"@id"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	g := ergraph.New(s)
	if err := loader.Load([]byte(doc), g, loader.Options{}); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestCheckClean(t *testing.T) {
	g := load(t, `{"persons":[{"id":"a","name":"A","friends":["b"],"pets":["rex"]},{"id":"b","name":"B"}],"animals":[{"id":"rex"}]}`)
	rep := Check(g)
	if !rep.OK() || rep.Err() != nil {
		t.Fatalf("Check() = %+v", rep)
	}
	if rep.Entities != 3 || rep.References != 2 {
		t.Errorf("stats = %d entities, %d references", rep.Entities, rep.References)
	}
}

func TestCheckUnresolved(t *testing.T) {
	g := load(t, `{"persons":[{"id":"a","name":"Alice","friends":["c"]},{"id":"b","name":"Bob"}]}`)
	rep := Check(g)

	want := UnresolvedReference{FromKind: "person", FromID: "a", Attribute: "friends", ToKind: "person", ToID: "c"}
	if len(rep.Unresolved) != 1 || rep.Unresolved[0] != want {
		t.Fatalf("Unresolved = %+v, want [%+v]", rep.Unresolved, want)
	}
	err := rep.Err()
	if !ergerrors.Is(err, ergerrors.ErrCodeUnresolved) {
		t.Errorf("Err() = %v", err)
	}
	if !strings.Contains(err.Error(), `missing person "c"`) {
		t.Errorf("Err() message = %q", err)
	}
}

func TestCheckCollectsAllInOrder(t *testing.T) {
	g := load(t, `{"persons":[{"id":"a","name":"A","friends":["x","y"],"pets":["cat"]},{"id":"b","name":"B","friends":["z"]}]}`)
	rep := Check(g)

	var got []string
	for _, u := range rep.Unresolved {
		got = append(got, u.FromID+">"+u.ToKind+"/"+u.ToID)
	}
	want := "a>person/x a>person/y a>animal/cat b>person/z"
	if strings.Join(got, " ") != want {
		t.Errorf("Unresolved order = %v, want %s", got, want)
	}
}

func TestCheckWrongKind(t *testing.T) {
	g := load(t, `{"persons":[{"id":"a","name":"A","friends":[{"type":"animal","name":"a"}]}]}`)
	if rep := Check(g); len(rep.Unresolved) != 1 || rep.Unresolved[0].ToKind != "animal" {
		t.Errorf("Unresolved = %+v", rep.Unresolved)
	}
}
