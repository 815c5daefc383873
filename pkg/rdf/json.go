package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

type document struct {
	Prefixes      map[string]string `json:"prefixes"`
	TypePredicate string            `json:"type_predicate,omitempty"`
	Triples       []tripleJSON      `json:"triples"`
}

type tripleJSON struct {
	S     string     `json:"s"`
	P     string     `json:"p"`
	O     string     `json:"o"`
	OType ObjectKind `json:"o_type"`
}

// WriteJSON encodes ts in the interchange shape and writes it to w.
func WriteJSON(ts *TripleSet, w io.Writer) error {
	out := document{
		Prefixes:      ts.Config.Prefixes(),
		TypePredicate: ts.Config.TypePredicate,
		Triples:       make([]tripleJSON, len(ts.triples)),
	}
	for i, t := range ts.triples {
		out.Triples[i] = tripleJSON{S: t.Subject, P: t.Predicate, O: t.Object, OType: t.ObjectKind}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a triple document. Prefixes are bound in prefix order on
// top of the defaults of [NewConfiguration]. Object kinds are not validated.
func ReadJSON(r io.Reader) (*TripleSet, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "decode triple document")
	}

	cfg := NewConfiguration()
	if err := cfg.BindAll(doc.Prefixes); err != nil {
		return nil, err
	}
	if doc.TypePredicate != "" {
		cfg.TypePredicate = cfg.Expand(doc.TypePredicate)
	}

	ts := NewTripleSet(cfg)
	for _, t := range doc.Triples {
		ts.Add(Triple{Subject: t.S, Predicate: t.P, Object: t.O, ObjectKind: t.OType})
	}
	return ts, nil
}

// ExportJSON writes ts to a JSON file at path.
func ExportJSON(ts *TripleSet, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(ts, w) })
}

// ImportJSON reads a triple document from path.
func ImportJSON(path string) (*TripleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	ts, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}
