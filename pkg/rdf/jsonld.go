package rdf

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/piprate/json-gold/ld"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

// WriteJSONLD writes ts as compacted JSON-LD. The @context holds the prefix
// table so compact IRIs match the prefixed forms used elsewhere.
func WriteJSONLD(ts *TripleSet, w io.Writer) error {
	var nquads bytes.Buffer
	if err := WriteNTriples(ts, &nquads); err != nil {
		return err
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	expanded, err := proc.FromRDF(nquads.String(), opts)
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeInternal, err, "json-ld from rdf")
	}

	context := make(map[string]any, len(ts.Config.bindings))
	for _, b := range ts.Config.bindings {
		context[b.Prefix] = b.Namespace
	}
	compacted, err := proc.Compact(expanded, map[string]any{"@context": context}, ld.NewJsonLdOptions(""))
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeInternal, err, "json-ld compact")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(compacted); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "write json-ld")
	}
	return nil
}
