package rdf

import "slices"

// TripleSet is an ordered sequence of triples and the configuration that
// governs their prefixes. Order is deterministic but carries no meaning.
type TripleSet struct {
	Config *Configuration

	triples []Triple
}

// NewTripleSet creates an empty set. A nil cfg gets [NewConfiguration].
func NewTripleSet(cfg *Configuration) *TripleSet {
	if cfg == nil {
		cfg = NewConfiguration()
	}
	return &TripleSet{Config: cfg}
}

// Add appends t. Duplicates are kept.
func (ts *TripleSet) Add(t Triple) { ts.triples = append(ts.triples, t) }

// AddLiteral appends a statement with a literal object.
func (ts *TripleSet) AddLiteral(s, p, o string) {
	ts.Add(Triple{Subject: s, Predicate: p, Object: o, ObjectKind: ObjectLiteral})
}

// AddURI appends a statement whose object is a resource.
func (ts *TripleSet) AddURI(s, p, o string) {
	kind := ObjectURI
	if IsBlank(o) {
		kind = ObjectBNode
	}
	ts.Add(Triple{Subject: s, Predicate: p, Object: o, ObjectKind: kind})
}

// Triples returns a copy of the triples in order.
func (ts *TripleSet) Triples() []Triple { return slices.Clone(ts.triples) }

// Len returns the number of triples.
func (ts *TripleSet) Len() int { return len(ts.triples) }

// Subjects returns the distinct subjects in first-seen order.
func (ts *TripleSet) Subjects() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range ts.triples {
		if !seen[t.Subject] {
			seen[t.Subject] = true
			out = append(out, t.Subject)
		}
	}
	return out
}
