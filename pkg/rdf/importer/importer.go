// Package importer turns an [rdf.TripleSet] into a [visual.Graph] without
// any schema: RDF triples describe themselves.
//
// Subjects, predicates and objects are compressed to prefixed forms with the
// triple set's configuration, and the compressed forms become node ids and
// attribute names. Each triple is dispatched on its predicate and object
// kind:
//
//   - type predicate: the subject node gets "type" (compressed object) and
//     "url" (raw subject URI). A type object in the namespace bound to
//     Options.SchemaPrefix yields its bare local name, the entity kind.
//   - literal object: the subject node gets an attribute named by the
//     compressed predicate.
//   - uri or bnode object: both nodes get "url", and an edge subject->object
//     gets "type" (compressed predicate) and "url" (raw predicate URI).
//
// Any other object kind fails the import with UNEXPECTED_OBJECT_KIND.
//
// Attributes accumulate across triples and are never removed. When two
// triples set the same attribute, the later triple wins; the same holds for
// repeated edges between one subject and object.
package importer

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// Attribute names written by the importer.
const (
	AttrType = "type"
	AttrURL  = "url"
)

// DefaultGraphName names the graph when Options.Name is empty.
const DefaultGraphName = "G"

// Options configures an import.
type Options struct {
	Name       string
	Undirected bool
	// SchemaPrefix names the namespace the exporter put kinds in.
	SchemaPrefix string
	Logger       *log.Logger
}

// Import builds a visual graph from ts.
func Import(ts *rdf.TripleSet, opts Options) (*visual.Graph, error) {
	if opts.Name == "" {
		opts.Name = DefaultGraphName
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	cfg := ts.Config
	typePredicate := cfg.Expand(cfg.TypePredicate)
	schemaNS, _ := cfg.Namespace(opts.SchemaPrefix)
	g := visual.New(opts.Name, !opts.Undirected)

	for i, t := range ts.Triples() {
		s := cfg.Compress(t.Subject)
		p := cfg.Compress(t.Predicate)

		switch {
		case cfg.Expand(t.Predicate) == typePredicate:
			g.SetNodeAttr(s, AttrType, kindOf(cfg, schemaNS, t.Object))
			g.SetNodeAttr(s, AttrURL, t.Subject)
		case t.ObjectKind == rdf.ObjectLiteral:
			g.SetNodeAttr(s, p, t.Object)
		case t.ObjectKind == rdf.ObjectURI, t.ObjectKind == rdf.ObjectBNode:
			o := cfg.Compress(t.Object)
			g.SetNodeAttr(s, AttrURL, t.Subject)
			g.SetNodeAttr(o, AttrURL, t.Object)
			e := g.AddEdge(s, o)
			e.Attrs[AttrType] = p
			e.Attrs[AttrURL] = t.Predicate
		default:
			return nil, ergerrors.New(ergerrors.ErrCodeUnexpectedObject,
				"triple %d (%s %s %s): unexpected object kind %q", i, t.Subject, t.Predicate, t.Object, t.ObjectKind)
		}
	}

	opts.Logger.Debug("imported triples", "triples", ts.Len(), "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}

func kindOf(cfg *rdf.Configuration, schemaNS, object string) string {
	uri := cfg.Expand(object)
	if schemaNS != "" && len(uri) > len(schemaNS) && strings.HasPrefix(uri, schemaNS) {
		return uri[len(schemaNS):]
	}
	return cfg.Compress(object)
}
