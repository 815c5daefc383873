// Package triplestore persists triple sets in named graphs.
//
// A [Store] keeps each graph's triples in insertion order together with the
// prefix bindings and type predicate of the set that produced them, so a
// [Store.Query] returns a set that compresses and expands terms the same
// way. Backends are selected with [Open]:
//
//	s, err := triplestore.Open(ctx, cfg.Store)
//	if err != nil { ... }
//	defer s.Close()
//	graph := triplestore.NewGraphURI()
//	err = s.Insert(ctx, ts, graph)
package triplestore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/rdf"
)

// Store is a collection of named graphs.
type Store interface {
	// Insert appends the triples of ts to graph, creating it if needed, and
	// records the prefix bindings of ts for the graph.
	Insert(ctx context.Context, ts *rdf.TripleSet, graph string) error
	// Query returns every triple of graph. A graph without triples is
	// NOT_FOUND.
	Query(ctx context.Context, graph string) (*rdf.TripleSet, error)
	Close() error
}

// NewGraphURI returns a fresh graph name of the form urn:uuid:<uuid>.
func NewGraphURI() string { return "urn:uuid:" + uuid.NewString() }

// typePredicateKey holds the type predicate in a graph's prefix table.
// It cannot collide with a prefix because '@' never starts one.
const typePredicateKey = "@type_predicate"

// record is the stored form of one triple.
type record struct {
	S     string `json:"s" bson:"s"`
	P     string `json:"p" bson:"p"`
	O     string `json:"o" bson:"o"`
	OType string `json:"o_type" bson:"o_type"`
}

func toRecord(t rdf.Triple) record {
	return record{S: t.Subject, P: t.Predicate, O: t.Object, OType: string(t.ObjectKind)}
}

func (r record) triple() rdf.Triple {
	return rdf.Triple{Subject: r.S, Predicate: r.P, Object: r.O, ObjectKind: rdf.ObjectKind(r.OType)}
}

// prefixTable flattens the configuration of ts into prefix -> namespace,
// with the type predicate under typePredicateKey.
func prefixTable(ts *rdf.TripleSet) map[string]string {
	m := ts.Config.Prefixes()
	m[typePredicateKey] = ts.Config.TypePredicate
	return m
}

// configuration rebuilds what prefixTable flattened. Prefixes are bound in
// sorted order.
func configuration(table map[string]string) (*rdf.Configuration, error) {
	cfg := rdf.NewConfiguration()
	prefixes := make([]string, 0, len(table))
	for p := range table {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		if p == typePredicateKey {
			cfg.TypePredicate = table[p]
			continue
		}
		if err := cfg.Bind(p, table[p]); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func checkGraph(graph string) error {
	if graph == "" {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "graph name must not be empty")
	}
	return nil
}

func notFound(graph string) error {
	return ergerrors.New(ergerrors.ErrCodeNotFound, "graph %s has no triples", graph)
}
