package ergraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/ergraph/pkg/schema"
)

var (
	// ErrUnknownKind is returned by [Graph.Add] when the kind is not declared
	// by the graph's schema.
	ErrUnknownKind = errors.New("unknown entity kind")

	// ErrInvalidID is returned by [Graph.Add] when the entity id is empty.
	ErrInvalidID = errors.New("entity id must not be empty")

	// ErrDuplicateID is returned by [Graph.Add] when an entity with the same
	// id already exists within its kind.
	ErrDuplicateID = errors.New("duplicate entity id")

	// ErrFrozen is returned by [Graph.Add] after [Graph.Freeze].
	ErrFrozen = errors.New("graph is frozen")
)

// Reference is a logical pointer to another entity. It does not imply that
// the target exists.
type Reference struct {
	Kind string
	ID   string
}

// String returns "kind/id".
func (r Reference) String() string { return r.Kind + "/" + r.ID }

// Record holds the attribute values of one entity. Values are scalars
// (string, json.Number, float64, bool), a [Reference], or a []Reference.
// The loader keeps JSON numbers as [json.Number].
type Record map[string]any

// FormatNumber returns the lexical form of a JSON number. Integers are kept
// digit for digit; other numbers take their shortest decimal form.
func FormatNumber(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// References returns the references held by attribute name in order. A
// single [Reference] is returned as a one-element list; any other value
// yields nil.
func (r Record) References(name string) []Reference {
	switch v := r[name].(type) {
	case []Reference:
		return v
	case Reference:
		return []Reference{v}
	}
	return nil
}

type entities struct {
	ids     []string
	records map[string]Record
}

// Graph is the entity-relation graph: kind -> id -> record, sharing an
// immutable schema.
//
// The zero value is not usable; create graphs with [New]. Graph is not safe
// for concurrent mutation; once frozen it may be read from many goroutines.
type Graph struct {
	schema *schema.Schema
	kinds  map[string]*entities
	frozen bool
}

// New creates an empty graph for the given schema.
func New(s *schema.Schema) *Graph {
	g := &Graph{schema: s, kinds: make(map[string]*entities)}
	for _, k := range s.Kinds() {
		g.kinds[k] = &entities{records: make(map[string]Record)}
	}
	return g
}

// Schema returns the schema the graph was created for.
func (g *Graph) Schema() *schema.Schema { return g.schema }

// Add inserts a record under (kind, id). The record is stored as given and
// must not be modified by the caller afterwards.
func (g *Graph) Add(kind, id string, rec Record) error {
	if g.frozen {
		return ErrFrozen
	}
	ents, ok := g.kinds[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if id == "" {
		return ErrInvalidID
	}
	if _, dup := ents.records[id]; dup {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateID, kind, id)
	}
	if rec == nil {
		rec = Record{}
	}
	ents.ids = append(ents.ids, id)
	ents.records[id] = rec
	return nil
}

// Get returns the record stored under (kind, id).
func (g *Graph) Get(kind, id string) (Record, bool) {
	ents, ok := g.kinds[kind]
	if !ok {
		return nil, false
	}
	rec, ok := ents.records[id]
	return rec, ok
}

// Has reports whether an entity exists under (kind, id).
func (g *Graph) Has(kind, id string) bool {
	_, ok := g.Get(kind, id)
	return ok
}

// Resolve reports whether the reference points at an existing entity.
func (g *Graph) Resolve(ref Reference) bool { return g.Has(ref.Kind, ref.ID) }

// Kinds returns the entity kinds in schema declaration order.
func (g *Graph) Kinds() []string { return g.schema.Kinds() }

// IDs returns the ids of kind in insertion order.
func (g *Graph) IDs(kind string) []string {
	ents, ok := g.kinds[kind]
	if !ok {
		return nil
	}
	return slices.Clone(ents.ids)
}

// Count returns the number of entities of kind, or of all kinds when kind
// is empty.
func (g *Graph) Count(kind string) int {
	if kind != "" {
		if ents, ok := g.kinds[kind]; ok {
			return len(ents.ids)
		}
		return 0
	}
	n := 0
	for _, ents := range g.kinds {
		n += len(ents.ids)
	}
	return n
}

// Freeze makes the graph read-only. Freeze is idempotent.
func (g *Graph) Freeze() { g.frozen = true }

// Frozen reports whether [Graph.Freeze] has been called.
func (g *Graph) Frozen() bool { return g.frozen }
