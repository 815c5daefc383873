package pipeline

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ergraph/pkg/config"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/observability"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/schema"
)

const testSchema = `
person:
  - "@id"
  - "!name"
  - "*friends:person"
  - "*pets:animal"
animal:
  - "@id"
  - "?species"
`

const testData = `{
  "persons": [
    {"id": "a", "name": "Alice", "friends": ["b"], "pets": ["rex"]},
    {"id": "b", "name": "Bob"}
  ],
  "animals": [{"id": "rex", "species": "dog"}]
}`

const brokenData = `{"persons": [{"id": "a", "name": "Alice", "friends": ["ghost"]}], "animals": []}`

func testOptions(formats ...string) Options {
	return Options{
		Schema:       []byte(testSchema),
		SchemaFormat: schema.FormatYAML,
		Data:         []byte(testData),
		Formats:      formats,
		Logger:       log.New(io.Discard),
	}
}

// mapCache counts hits so tests can tell cached runs apart.
type mapCache struct {
	data map[string][]byte
	hits int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	d, ok := c.data[key]
	if ok {
		c.hits++
	}
	return d, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.data[key] = append([]byte(nil), data...)
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *mapCache) Close() error { return nil }

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"graphml", false},
		{"dot", false},
		{"svg", false},
		{"ntriples", false},
		{"jsonld", false},
		{"json", false},
		{"png", true},
		{"GraphML", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Schema: []byte(testSchema), Data: []byte(testData)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Valid options should pass: %v", err)
	}
	if opts.SchemaFormat != schema.FormatYAML {
		t.Errorf("SchemaFormat = %q", opts.SchemaFormat)
	}
	if opts.IDScheme != "verbatim" || opts.NameField != "name" {
		t.Errorf("load defaults = %q/%q", opts.IDScheme, opts.NameField)
	}
	if opts.Pattern == "" || opts.SchemaPrefix != "ex" {
		t.Errorf("export defaults = %q/%q", opts.Pattern, opts.SchemaPrefix)
	}
	if opts.Name != "G" || len(opts.Formats) != 1 || opts.Formats[0] != FormatGraphML {
		t.Errorf("render defaults = %q/%v", opts.Name, opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should default")
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no schema", Options{Data: []byte(testData)}},
		{"no data", Options{Schema: []byte(testSchema)}},
		{"bad id scheme", Options{Schema: []byte(testSchema), Data: []byte(testData), IDScheme: "hashed"}},
		{"bad format", Options{Schema: []byte(testSchema), Data: []byte(testData), Formats: []string{"png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); !ergerrors.Is(err, ergerrors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Name = "social"
	cfg.Export.SkipBroken = true
	opts := FromConfig(cfg)
	if opts.Name != "social" || !opts.AllowUnresolved || opts.Pattern != cfg.Export.Pattern {
		t.Errorf("FromConfig = %+v", opts)
	}
	opts.Formats[0] = "dot"
	if cfg.Output.Formats[0] != "graphml" {
		t.Error("FromConfig should copy formats")
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	res, err := r.Execute(context.Background(), testOptions(FormatGraphML, FormatDOT, FormatNTriples, FormatJSON, FormatJSONLD))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Stats.Entities != 3 || res.Stats.References != 2 || res.Stats.Unresolved != 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
	// 3 types, 3 ids, 2 names, 1 species, 2 references
	if res.Stats.Triples != 11 {
		t.Errorf("Triples = %d, want 11", res.Stats.Triples)
	}
	if res.Stats.Nodes != 3 || res.Stats.Edges != 2 {
		t.Errorf("visual = %d nodes, %d edges", res.Stats.Nodes, res.Stats.Edges)
	}

	gml := string(res.Artifacts[FormatGraphML])
	if !strings.Contains(gml, `<graph id="G" edgedefault="directed">`) || !strings.Contains(gml, "Alice") {
		t.Errorf("graphml:\n%s", gml)
	}
	if !strings.HasPrefix(string(res.Artifacts[FormatDOT]), `digraph "G" {`) {
		t.Errorf("dot:\n%s", res.Artifacts[FormatDOT])
	}
	nt := string(res.Artifacts[FormatNTriples])
	if !strings.Contains(nt, `<http://example.org/person/a> <http://example.org/schema#name> "Alice" .`) {
		t.Errorf("ntriples:\n%s", nt)
	}
	if !strings.Contains(string(res.Artifacts[FormatJSON]), `"o_type": "uri"`) {
		t.Errorf("json:\n%s", res.Artifacts[FormatJSON])
	}
	if len(res.Artifacts[FormatJSONLD]) == 0 {
		t.Error("jsonld artifact is empty")
	}
}

func TestExecuteUnresolved(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	opts := testOptions(FormatGraphML)
	opts.Data = []byte(brokenData)

	_, err := r.Execute(context.Background(), opts)
	if !ergerrors.Is(err, ergerrors.ErrCodeUnresolved) {
		t.Fatalf("err = %v, want UNRESOLVED_REFERENCE", err)
	}

	opts.AllowUnresolved = true
	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute with AllowUnresolved: %v", err)
	}
	if res.Stats.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", res.Stats.Unresolved)
	}
	// type, id and name; the broken friend is dropped
	if res.Stats.Triples != 3 {
		t.Errorf("Triples = %d, want 3", res.Stats.Triples)
	}
}

func TestExecuteLoadErrors(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))

	opts := testOptions()
	opts.Schema = []byte("person:\n  - \"!name\"\n")
	if _, err := r.Execute(context.Background(), opts); !ergerrors.Is(err, ergerrors.ErrCodeSchema) {
		t.Errorf("err = %v, want SCHEMA_ERROR", err)
	}

	opts = testOptions()
	opts.Data = []byte(`{"persons": [{"id": "a"}]}`)
	if _, err := r.Execute(context.Background(), opts); !ergerrors.Is(err, ergerrors.ErrCodeMissingRequired) {
		t.Errorf("err = %v, want MISSING_REQUIRED_ATTRIBUTE", err)
	}
}

func TestExecuteCaching(t *testing.T) {
	c := newMapCache()
	r := NewRunner(c, nil, log.New(io.Discard))
	ctx := context.Background()

	first, err := r.Execute(ctx, testOptions(FormatGraphML, FormatNTriples))
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.TriplesHit || first.CacheInfo.RenderHit {
		t.Errorf("first run hit the cache: %+v", first.CacheInfo)
	}
	// one triple set, two artifacts
	if len(c.data) != 3 {
		t.Errorf("cached %d entries, want 3", len(c.data))
	}

	second, err := r.Execute(ctx, testOptions(FormatGraphML, FormatNTriples))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.TriplesHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run missed the cache: %+v", second.CacheInfo)
	}
	if second.Graph != nil || second.Visual != nil {
		t.Error("cached run should not rebuild graphs")
	}
	if !bytes.Equal(first.Artifacts[FormatGraphML], second.Artifacts[FormatGraphML]) {
		t.Error("cached artifact differs")
	}
	if first.TriplesHash != second.TriplesHash {
		t.Errorf("TriplesHash %q != %q", first.TriplesHash, second.TriplesHash)
	}

	// a new format renders from cached triples
	third, err := r.Execute(ctx, testOptions(FormatDOT))
	if err != nil {
		t.Fatal(err)
	}
	if !third.CacheInfo.TriplesHit || third.CacheInfo.RenderHit || third.Visual == nil {
		t.Errorf("third run cache info = %+v", third.CacheInfo)
	}

	// Refresh bypasses the cache
	opts := testOptions(FormatGraphML)
	opts.Refresh = true
	hits := c.hits
	if _, err := r.Execute(ctx, opts); err != nil {
		t.Fatal(err)
	}
	if c.hits != hits {
		t.Error("Refresh read from the cache")
	}
}

func TestExecuteCacheKeyHasSchemaFormat(t *testing.T) {
	c := newMapCache()
	r := NewRunner(c, nil, log.New(io.Discard))
	ctx := context.Background()

	// valid as both JSON and YAML
	opts := testOptions(FormatGraphML)
	opts.Schema = []byte(`{"person": ["@id", "!name", "*friends:person", "*pets:animal"], "animal": ["@id", "?species"]}`)
	opts.SchemaFormat = schema.FormatJSON
	if _, err := r.Execute(ctx, opts); err != nil {
		t.Fatal(err)
	}
	opts.SchemaFormat = schema.FormatYAML
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.TriplesHit {
		t.Error("a different schema format must not share cached triples")
	}
}

const scenarioSchema = `
person:
  - "@id"
  - "!name"
  - "*friends:person"
`

const scenarioData = `{"persons":[{"id":"a","name":"Alice","friends":["b"]},{"id":"b","name":"Bob"}]}`

func scenarioOptions(formats ...string) Options {
	opts := testOptions(formats...)
	opts.Schema = []byte(scenarioSchema)
	opts.Data = []byte(scenarioData)
	opts.Pattern = "http://ex.org/${type}/${id}"
	return opts
}

func TestExecuteRoundTripKinds(t *testing.T) {
	want := map[string]string{"http://ex.org/person/a": "person", "http://ex.org/person/b": "person"}
	check := func(t *testing.T, res *Result) {
		t.Helper()
		if res.Visual == nil {
			t.Fatal("no visual graph")
		}
		if res.Visual.NodeCount() != len(want) {
			t.Errorf("NodeCount() = %d, want %d", res.Visual.NodeCount(), len(want))
		}
		for _, n := range res.Visual.Nodes() {
			kind, ok := want[n.ID]
			if !ok {
				t.Errorf("unexpected node %q", n.ID)
				continue
			}
			if n.Attrs["type"] != kind {
				t.Errorf("node %q type = %v, want %q", n.ID, n.Attrs["type"], kind)
			}
		}
	}

	t.Run("defaults", func(t *testing.T) {
		r := NewRunner(nil, nil, log.New(io.Discard))
		res, err := r.Execute(context.Background(), scenarioOptions(FormatGraphML))
		if err != nil {
			t.Fatal(err)
		}
		check(t, res)
	})

	t.Run("config defaults", func(t *testing.T) {
		opts := FromConfig(config.Default())
		opts.Schema = []byte(scenarioSchema)
		opts.Data = []byte(scenarioData)
		opts.Pattern = "http://ex.org/${type}/${id}"
		res, err := NewRunner(nil, nil, log.New(io.Discard)).Execute(context.Background(), opts)
		if err != nil {
			t.Fatal(err)
		}
		check(t, res)
	})

	t.Run("cached triples", func(t *testing.T) {
		r := NewRunner(newMapCache(), nil, log.New(io.Discard))
		if _, err := r.Execute(context.Background(), scenarioOptions(FormatGraphML)); err != nil {
			t.Fatal(err)
		}
		res, err := r.Execute(context.Background(), scenarioOptions(FormatDOT))
		if err != nil {
			t.Fatal(err)
		}
		if !res.CacheInfo.TriplesHit {
			t.Error("second run should reuse the triples")
		}
		check(t, res)
	})

	t.Run("no schema prefix", func(t *testing.T) {
		opts := scenarioOptions(FormatGraphML)
		opts.SchemaPrefix = NoSchemaPrefix
		res, err := NewRunner(nil, nil, log.New(io.Discard)).Execute(context.Background(), opts)
		if err != nil {
			t.Fatal(err)
		}
		check(t, res)
	})
}

func TestExecuteNoSchemaPrefix(t *testing.T) {
	opts := scenarioOptions(FormatJSON)
	opts.SchemaPrefix = NoSchemaPrefix
	opts.SchemaNamespace = "http://ignored.org/"
	res, err := NewRunner(nil, nil, log.New(io.Discard)).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	triples := res.Triples.Triples()
	want := []rdf.Triple{
		{Subject: "http://ex.org/person/a", Predicate: rdf.RDFType, Object: "person", ObjectKind: rdf.ObjectURI},
		{Subject: "http://ex.org/person/a", Predicate: "name", Object: "Alice", ObjectKind: rdf.ObjectLiteral},
		{Subject: "http://ex.org/person/a", Predicate: "friends", Object: "http://ex.org/person/b", ObjectKind: rdf.ObjectURI},
	}
	for _, w := range want {
		if !slices.Contains(triples, w) {
			t.Errorf("missing triple %+v in %+v", w, triples)
		}
	}
	if _, ok := res.Triples.Config.Namespace("ex"); ok {
		t.Error("no schema prefix should be bound")
	}

	// bare names are not IRIs
	opts.Formats = []string{FormatNTriples}
	if _, err := NewRunner(nil, nil, log.New(io.Discard)).Execute(context.Background(), opts); !ergerrors.Is(err, ergerrors.ErrCodeInvalidInput) {
		t.Errorf("ntriples err = %v, want INVALID_INPUT", err)
	}
}

func TestRenderNeedsVisual(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	ctx := context.Background()
	opts := testOptions(FormatNTriples)
	g, err := r.Load(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := r.Export(ctx, g, opts)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Render(ctx, ts, nil, opts); err != nil {
		t.Errorf("triple formats need no visual graph: %v", err)
	}
	opts.Formats = []string{FormatGraphML}
	if _, err := r.Render(ctx, ts, nil, opts); !ergerrors.Is(err, ergerrors.ErrCodeInternal) {
		t.Errorf("err = %v, want INTERNAL_ERROR", err)
	}
}

type stageRecorder struct {
	observability.NoopPipelineHooks
	stages     []observability.Stage
	unresolved int
}

func (s *stageRecorder) OnStageComplete(_ context.Context, stage observability.Stage, _ int, _ time.Duration, _ error) {
	s.stages = append(s.stages, stage)
}

func (s *stageRecorder) OnUnresolved(_ context.Context, n int) { s.unresolved += n }

func TestExecuteHooks(t *testing.T) {
	rec := &stageRecorder{}
	observability.SetPipelineHooks(rec)
	t.Cleanup(observability.Reset)

	r := NewRunner(nil, nil, log.New(io.Discard))
	opts := testOptions(FormatGraphML)
	opts.Data = []byte(brokenData)
	opts.AllowUnresolved = true
	if _, err := r.Execute(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	want := []observability.Stage{
		observability.StageLoad,
		observability.StageCheck,
		observability.StageExport,
		observability.StageImport,
		observability.StageRender,
	}
	if len(rec.stages) != len(want) {
		t.Fatalf("stages = %v, want %v", rec.stages, want)
	}
	for i := range want {
		if rec.stages[i] != want[i] {
			t.Errorf("stage %d = %q, want %q", i, rec.stages[i], want[i])
		}
	}
	if rec.unresolved != 1 {
		t.Errorf("unresolved = %d, want 1", rec.unresolved)
	}
}
