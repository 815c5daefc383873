package pipeline

import (
	"github.com/matzehuels/ergraph/pkg/ergraph"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/rdf/exporter"
	"github.com/matzehuels/ergraph/pkg/rdf/importer"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// Export turns the entity graph into triples.
func Export(g *ergraph.Graph, opts Options) (*rdf.TripleSet, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, err
	}
	return exporter.Export(g, opts.ExporterOptions())
}

// Import projects a triple set onto a visual graph.
func Import(ts *rdf.TripleSet, opts Options) (*visual.Graph, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	return importer.Import(ts, opts.ImporterOptions())
}
