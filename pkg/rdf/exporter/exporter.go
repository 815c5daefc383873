// Package exporter walks an [ergraph.Graph] and emits an [rdf.TripleSet].
//
// Every entity gets a URI from a naming pattern with ${type} and ${id}
// placeholders, either one pattern for all kinds or one per kind:
//
//	ts, err := exporter.Export(g, exporter.Options{
//	    Naming:          exporter.Naming{Pattern: "http://ex.org/${type}/${id}"},
//	    SchemaPrefix:    "ex",
//	    SchemaNamespace: "http://ex.org/schema#",
//	})
//
// Per entity the exporter emits a type triple first, then one literal triple
// per scalar attribute present and one link triple per reference, in schema
// attribute order. Entities are visited in kind order, then id insertion
// order, so the output is deterministic.
//
// A reference to an entity that does not exist fails the export with a
// BROKEN_REFERENCE error unless [Options.SkipBroken] is set, in which case
// the link is logged and dropped.
package exporter

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ergraph/pkg/ergraph"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/schema"
)

// Placeholders substituted into naming patterns.
const (
	TypePlaceholder = "${type}"
	IDPlaceholder   = "${id}"
)

// Naming computes entity URIs. PerKind patterns take precedence over Pattern.
type Naming struct {
	Pattern string
	PerKind map[string]string
}

// URI returns the URI of entity (kind, id).
func (n Naming) URI(kind, id string) (string, error) {
	pattern, ok := n.PerKind[kind]
	if !ok {
		pattern = n.Pattern
	}
	if pattern == "" {
		return "", ergerrors.New(ergerrors.ErrCodeInvalidInput, "no naming pattern for kind %q", kind)
	}
	return strings.NewReplacer(TypePlaceholder, kind, IDPlaceholder, id).Replace(pattern), nil
}

// Options configures an export.
type Options struct {
	Naming Naming

	// SchemaPrefix, when set, makes predicates and classes full URIs in
	// SchemaNamespace (bound under SchemaPrefix). Otherwise they are the
	// bare attribute and kind names.
	SchemaPrefix    string
	SchemaNamespace string

	// Prefixes are bound into the result's configuration, in prefix order.
	Prefixes map[string]string

	// SkipBroken drops links to missing entities instead of failing.
	SkipBroken bool

	Logger *log.Logger
}

// Export emits the triples of g. It reads g and the options only; the
// returned triple set is fresh.
func Export(g *ergraph.Graph, opts Options) (*rdf.TripleSet, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	cfg, ns, err := configure(opts)
	if err != nil {
		return nil, err
	}

	e := &exporter{g: g, opts: opts, ns: ns, ts: rdf.NewTripleSet(cfg)}
	for _, kind := range g.Kinds() {
		if err := e.exportKind(kind); err != nil {
			return nil, err
		}
	}
	opts.Logger.Debug("exported graph", "entities", g.Count(""), "triples", e.ts.Len(), "skipped", e.skipped)
	return e.ts, nil
}

func configure(opts Options) (*rdf.Configuration, string, error) {
	cfg := rdf.NewConfiguration()
	if err := cfg.BindAll(opts.Prefixes); err != nil {
		return nil, "", err
	}
	if opts.SchemaPrefix == "" {
		return cfg, "", nil
	}
	if opts.SchemaNamespace != "" {
		if err := cfg.Bind(opts.SchemaPrefix, opts.SchemaNamespace); err != nil {
			return nil, "", err
		}
	}
	ns, ok := cfg.Namespace(opts.SchemaPrefix)
	if !ok {
		return nil, "", ergerrors.New(ergerrors.ErrCodeInvalidInput, "schema prefix %q has no namespace", opts.SchemaPrefix)
	}
	return cfg, ns, nil
}

type exporter struct {
	g       *ergraph.Graph
	opts    Options
	ns      string
	ts      *rdf.TripleSet
	skipped int
}

func (e *exporter) term(name string) string { return e.ns + name }

func (e *exporter) exportKind(kind string) error {
	attrs, err := e.g.Schema().AttributesOf(kind)
	if err != nil {
		return err
	}
	for _, id := range e.g.IDs(kind) {
		rec, _ := e.g.Get(kind, id)
		subject, err := e.opts.Naming.URI(kind, id)
		if err != nil {
			return err
		}
		e.ts.AddURI(subject, e.ts.Config.TypePredicate, e.term(kind))

		for _, attr := range attrs {
			if err := e.exportAttribute(kind, id, subject, attr, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *exporter) exportAttribute(kind, id, subject string, attr schema.Attribute, rec ergraph.Record) error {
	switch attr.Tag {
	case schema.TagKey, schema.TagRequired, schema.TagOptional:
		v, ok := rec[attr.Name]
		if !ok || v == nil {
			return nil
		}
		lit, ok := Literal(v)
		if !ok {
			return ergerrors.New(ergerrors.ErrCodeUnsupportedType, "%s %q: attribute %q has unsupported value type %T", kind, id, attr.Name, v)
		}
		e.ts.AddLiteral(subject, e.term(attr.Name), lit)
	case schema.TagMulti:
		for _, ref := range rec.References(attr.Name) {
			if !e.g.Resolve(ref) {
				if !e.opts.SkipBroken {
					return ergerrors.New(ergerrors.ErrCodeBrokenReference, "%s %q: attribute %q references missing %s %q", kind, id, attr.Name, ref.Kind, ref.ID)
				}
				e.skipped++
				e.opts.Logger.Warn("skipping broken reference", "from", kind+"/"+id, "attribute", attr.Name, "to", ref.String())
				continue
			}
			target, err := e.opts.Naming.URI(ref.Kind, ref.ID)
			if err != nil {
				return err
			}
			e.ts.AddURI(subject, e.term(attr.Name), target)
		}
	}
	return nil
}

// Literal returns the lexical form of a scalar value: strings verbatim,
// numbers in shortest decimal form, booleans as true or false.
func Literal(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return ergraph.FormatNumber(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}
