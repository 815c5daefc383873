package pipeline

import (
	"github.com/matzehuels/ergraph/pkg/ergraph"
	"github.com/matzehuels/ergraph/pkg/integrity"
	"github.com/matzehuels/ergraph/pkg/loader"
	"github.com/matzehuels/ergraph/pkg/schema"
)

// Load parses the schema and reads the document into a frozen entity graph.
func Load(opts Options) (*ergraph.Graph, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}

	s, err := schema.Parse(opts.Schema, opts.SchemaFormat)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("parsed schema", "kinds", s.Kinds())

	g := ergraph.New(s)
	if err := loader.Load(opts.Data, g, opts.LoaderOptions()); err != nil {
		return nil, err
	}
	g.Freeze()
	return g, nil
}

// Check reports the references of g that point at no loaded entity.
func Check(g *ergraph.Graph) integrity.Report {
	return integrity.Check(g)
}
