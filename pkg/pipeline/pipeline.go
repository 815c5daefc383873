// Package pipeline runs the complete conversion from a schema and a JSON
// document to rendered graph files.
//
// CLI and HTTP server share this package so both apply the same defaults,
// validation and caching.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Load: Parse the schema and read the JSON document into an entity graph
//  2. Check: Find references that point at no loaded entity
//  3. Export: Turn the entity graph into RDF triples
//  4. Import: Project the triples onto a visual graph
//  5. Render: Serialize the triples or the visual graph in each requested format
//
// Each stage can be run on its own or as part of [Runner.Execute].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Schema:       schemaBytes,
//	    SchemaFormat: schema.FormatYAML,
//	    Data:         dataBytes,
//	    Formats:      []string{"graphml", "dot"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	graphml := result.Artifacts["graphml"]
package pipeline

import (
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ergraph/pkg/cache"
	"github.com/matzehuels/ergraph/pkg/config"
	"github.com/matzehuels/ergraph/pkg/ergraph"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/integrity"
	"github.com/matzehuels/ergraph/pkg/loader"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/rdf/exporter"
	"github.com/matzehuels/ergraph/pkg/rdf/importer"
	"github.com/matzehuels/ergraph/pkg/schema"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// Output formats. The first three serialize the visual graph, the rest the
// triple set.
const (
	FormatGraphML  = "graphml"
	FormatDOT      = "dot"
	FormatSVG      = "svg"
	FormatNTriples = "ntriples"
	FormatJSONLD   = "jsonld"
	FormatJSON     = "json"
)

// DefaultFormat is rendered when no format is requested.
const DefaultFormat = FormatGraphML

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatGraphML:  true,
	FormatDOT:      true,
	FormatSVG:      true,
	FormatNTriples: true,
	FormatJSONLD:   true,
	FormatJSON:     true,
}

// Extensions maps each format to its conventional file extension.
var Extensions = map[string]string{
	FormatGraphML:  ".graphml",
	FormatDOT:      ".dot",
	FormatSVG:      ".svg",
	FormatNTriples: ".nt",
	FormatJSONLD:   ".jsonld",
	FormatJSON:     ".json",
}

// Options contains all configuration for one pipeline run.
type Options struct {
	// Inputs
	Schema       []byte
	SchemaFormat schema.Format
	Data         []byte

	// Load options
	Tags      map[string]string
	IDScheme  string
	NameField string

	// Export options
	Pattern string
	PerKind map[string]string
	// SchemaPrefix binds SchemaNamespace for predicates and classes. Empty
	// takes the defaults; [NoSchemaPrefix] keeps bare attribute and kind
	// names.
	SchemaPrefix    string
	SchemaNamespace string
	Prefixes        map[string]string
	// AllowUnresolved lets Execute continue past dangling references, which
	// the exporter then drops.
	AllowUnresolved bool

	// Render options
	Name       string
	Undirected bool
	Formats    []string

	// Refresh ignores cached results.
	Refresh bool

	Logger *log.Logger

	validated bool
}

// FromConfig returns options carrying every setting of cfg. Inputs are left
// for the caller.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Tags:            maps.Clone(cfg.Loader.Tags),
		IDScheme:        cfg.Loader.IDScheme,
		NameField:       cfg.Loader.NameField,
		Pattern:         cfg.Export.Pattern,
		PerKind:         maps.Clone(cfg.Export.PerKind),
		SchemaPrefix:    cfg.Export.SchemaPrefix,
		SchemaNamespace: cfg.Export.SchemaNamespace,
		Prefixes:        maps.Clone(cfg.Export.Prefixes),
		AllowUnresolved: cfg.Export.SkipBroken,
		Name:            cfg.Output.Name,
		Undirected:      cfg.Output.Undirected,
		Formats:         slices.Clone(cfg.Output.Formats),
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the loaded entity graph. It is nil when the triples came
	// from the cache.
	Graph *ergraph.Graph

	// Report is the integrity report of Graph.
	Report integrity.Report

	// Triples is the exported triple set.
	Triples *rdf.TripleSet

	// TriplesHash is the content hash of Triples in JSON form.
	TriplesHash string

	// Visual is the imported visual graph. It is nil when every artifact
	// came from the cache.
	Visual *visual.Graph

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Entities   int
	References int
	Unresolved int
	Triples    int
	Nodes      int
	Edges      int
	LoadTime   time.Duration
	ExportTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each cached stage.
type CacheInfo struct {
	TriplesHit bool // Whether the triple set came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput,
			"invalid format: %q (must be one of: graphml, dot, svg, ntriples, jsonld, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the inputs and applies load defaults.
func (o *Options) ValidateForLoad() error {
	if len(o.Schema) == 0 {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "schema is required")
	}
	if len(o.Data) == 0 {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "data is required")
	}
	if o.SchemaFormat == "" {
		o.SchemaFormat = schema.FormatYAML
	}
	if o.IDScheme == "" {
		o.IDScheme = loader.IDVerbatim.String()
	}
	if _, err := loader.ParseIDScheme(o.IDScheme); err != nil {
		return err
	}
	if o.NameField == "" {
		o.NameField = loader.DefaultNameField
	}
	o.setLogger()
	return nil
}

// NoSchemaPrefix as Options.SchemaPrefix exports bare attribute and kind
// names. Such triples only serialize to the JSON triple format.
const NoSchemaPrefix = "none"

// ValidateForExport applies export defaults from [config.Default].
func (o *Options) ValidateForExport() error {
	def := config.Default().Export
	if o.Pattern == "" {
		o.Pattern = def.Pattern
	}
	o.setSchemaDefaults()
	o.setLogger()
	return nil
}

func (o *Options) setSchemaDefaults() {
	if o.SchemaPrefix == "" && o.SchemaNamespace == "" {
		def := config.Default().Export
		o.SchemaPrefix = def.SchemaPrefix
		o.SchemaNamespace = def.SchemaNamespace
	}
}

// schemaBinding returns the schema prefix and namespace handed to the
// exporter and importer.
func (o *Options) schemaBinding() (string, string) {
	if o.SchemaPrefix == NoSchemaPrefix {
		return "", ""
	}
	return o.SchemaPrefix, o.SchemaNamespace
}

// ValidateForRender applies render defaults and checks the formats.
func (o *Options) ValidateForRender() error {
	if o.Name == "" {
		o.Name = importer.DefaultGraphName
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	o.setSchemaDefaults()
	o.setLogger()
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// LoaderOptions returns the options of the load stage.
func (o *Options) LoaderOptions() loader.Options {
	scheme, _ := loader.ParseIDScheme(o.IDScheme)
	return loader.Options{Tags: o.Tags, IDScheme: scheme, NameField: o.NameField, Logger: o.Logger}
}

// ExporterOptions returns the options of the export stage.
func (o *Options) ExporterOptions() exporter.Options {
	prefix, ns := o.schemaBinding()
	return exporter.Options{
		Naming:          exporter.Naming{Pattern: o.Pattern, PerKind: o.PerKind},
		SchemaPrefix:    prefix,
		SchemaNamespace: ns,
		Prefixes:        o.Prefixes,
		SkipBroken:      o.AllowUnresolved,
		Logger:          o.Logger,
	}
}

// ImporterOptions returns the options of the import stage.
func (o *Options) ImporterOptions() importer.Options {
	prefix, _ := o.schemaBinding()
	return importer.Options{Name: o.Name, Undirected: o.Undirected, SchemaPrefix: prefix, Logger: o.Logger}
}

// TriplesKeyOpts returns cache key options for the triple set.
func (o *Options) TriplesKeyOpts() cache.TriplesKeyOpts {
	return cache.TriplesKeyOpts{
		SchemaFormat:    string(o.SchemaFormat),
		IDScheme:        o.IDScheme,
		NameField:       o.NameField,
		Tags:            o.Tags,
		Pattern:         o.Pattern,
		Patterns:        o.PerKind,
		SchemaPrefix:    o.SchemaPrefix,
		SchemaNamespace: o.SchemaNamespace,
		Prefixes:        o.Prefixes,
		SkipBroken:      o.AllowUnresolved,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	prefix, _ := o.schemaBinding()
	return cache.ArtifactKeyOpts{Format: format, Name: o.Name, Undirected: o.Undirected, SchemaPrefix: prefix}
}
