package rdf

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/piprate/json-gold/ld"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

const defaultGraph = "@default"

// Dataset converts ts to a json-gold dataset in the default graph. Prefixed
// terms are expanded first; every subject, predicate and resource object must
// then be an absolute IRI or a blank node label.
func Dataset(ts *TripleSet) (*ld.RDFDataset, error) {
	ds := ld.NewRDFDataset()
	quads := make([]*ld.Quad, 0, len(ts.triples))
	for i, t := range ts.triples {
		s, err := resourceNode(ts.Config, t.Subject)
		if err != nil {
			return nil, fmt.Errorf("triple %d subject: %w", i, err)
		}
		p, err := resourceNode(ts.Config, t.Predicate)
		if err != nil {
			return nil, fmt.Errorf("triple %d predicate: %w", i, err)
		}
		var o ld.Node
		switch t.ObjectKind {
		case ObjectLiteral:
			o = ld.NewLiteral(t.Object, ld.XSDString, "")
		case ObjectURI, ObjectBNode:
			if o, err = resourceNode(ts.Config, t.Object); err != nil {
				return nil, fmt.Errorf("triple %d object: %w", i, err)
			}
		default:
			return nil, ergerrors.New(ergerrors.ErrCodeUnexpectedObject, "triple %d: unexpected object kind %q", i, t.ObjectKind)
		}
		quads = append(quads, ld.NewQuad(s, p, o, defaultGraph))
	}
	ds.Graphs[defaultGraph] = quads
	return ds, nil
}

func resourceNode(cfg *Configuration, term string) (ld.Node, error) {
	if IsBlank(term) {
		return ld.NewBlankNode(term), nil
	}
	iri := cfg.Expand(term)
	if !strings.Contains(iri, ":") {
		return nil, ergerrors.New(ergerrors.ErrCodeInvalidInput, "%q is not an absolute IRI (bind a schema prefix)", term)
	}
	return ld.NewIRI(iri), nil
}

// WriteNTriples serializes ts as N-Triples. The serializer emits statements
// in lexical order.
func WriteNTriples(ts *TripleSet, w io.Writer) error {
	ds, err := Dataset(ts)
	if err != nil {
		return err
	}
	out, err := (&ld.NQuadRDFSerializer{}).Serialize(ds)
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeInternal, err, "serialize n-triples")
	}
	text, ok := out.(string)
	if !ok {
		return ergerrors.New(ergerrors.ErrCodeInternal, "unexpected n-triples result %T", out)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "write n-triples")
	}
	return nil
}

// ReadNTriples parses N-Triples (or N-Quads, flattening named graphs after
// the default graph) into a triple set governed by cfg. A nil cfg gets
// [NewConfiguration]. Literal datatypes and language tags are dropped.
func ReadNTriples(r io.Reader, cfg *Configuration) (*TripleSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "read n-triples")
	}
	ds, err := (&ld.NQuadRDFSerializer{}).Parse(string(data))
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "parse n-triples")
	}

	ts := NewTripleSet(cfg)
	for _, name := range graphNames(ds) {
		for _, q := range ds.Graphs[name] {
			if q == nil {
				continue
			}
			ts.Add(fromQuad(q))
		}
	}
	return ts, nil
}

func graphNames(ds *ld.RDFDataset) []string {
	names := make([]string, 0, len(ds.Graphs))
	for name := range ds.Graphs {
		if name != defaultGraph {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return append([]string{defaultGraph}, names...)
}

func fromQuad(q *ld.Quad) Triple {
	t := Triple{Subject: q.Subject.GetValue(), Predicate: q.Predicate.GetValue()}
	switch q.Object.(type) {
	case ld.Literal, *ld.Literal:
		t.ObjectKind = ObjectLiteral
	case ld.BlankNode, *ld.BlankNode:
		t.ObjectKind = ObjectBNode
	default:
		t.ObjectKind = ObjectURI
	}
	t.Object = q.Object.GetValue()
	return t
}

// ExportNTriples writes ts to an N-Triples file at path.
func ExportNTriples(ts *TripleSet, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteNTriples(ts, w) })
}

// ImportNTriples reads an N-Triples file.
func ImportNTriples(path string, cfg *Configuration) (*TripleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	ts, err := ReadNTriples(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}
