package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/ergraph/pkg/config"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/observability"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/triplestore"
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

// fixture holds the paths of a schema and a document written to a temp dir.
type fixture struct {
	dir    string
	schema string
	data   string
}

func newFixture(t *testing.T, data string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		schema: filepath.Join(dir, "people.yaml"),
		data:   filepath.Join(dir, "people.json"),
	}
	if err := os.WriteFile(f.schema, []byte(testSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.data, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv("ERGRAPH_CACHE_DIR", t.TempDir())
	t.Cleanup(observability.Reset)
	return New(io.Discard, LogInfo)
}

func run(t *testing.T, c *CLI, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := c.RootCommand()
	var out, errb bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errb)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func TestCheck(t *testing.T) {
	f := newFixture(t, testData)
	out, _, err := run(t, newTestCLI(t), "check", "-s", f.schema, f.data)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{"person", "animal", "all references resolve"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckUnresolved(t *testing.T) {
	f := newFixture(t, brokenData)
	out, _, err := run(t, newTestCLI(t), "check", "-s", f.schema, f.data)
	if !ergerrors.Is(err, ergerrors.ErrCodeUnresolved) {
		t.Fatalf("err = %v, want UNRESOLVED_REFERENCE", err)
	}
	if !strings.Contains(out, "ghost") || !strings.Contains(out, "--allow-unresolved") {
		t.Errorf("output does not name the missing entity and the way out:\n%s", out)
	}
}

func TestCheckMissingSchemaFlag(t *testing.T) {
	f := newFixture(t, testData)
	if _, _, err := run(t, newTestCLI(t), "check", f.data); err == nil {
		t.Fatal("expected error without --schema")
	}
}

func TestCheckMissingDocument(t *testing.T) {
	f := newFixture(t, testData)
	_, _, err := run(t, newTestCLI(t), "check", "-s", f.schema, filepath.Join(f.dir, "nope.json"))
	if !ergerrors.Is(err, ergerrors.ErrCodeIO) {
		t.Fatalf("err = %v, want IO_ERROR", err)
	}
}

func TestExportStdout(t *testing.T) {
	f := newFixture(t, testData)
	out, _, err := run(t, newTestCLI(t), "export", "-s", f.schema, f.data)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	ts, err := rdf.ReadJSON(strings.NewReader(out))
	if err != nil {
		t.Fatalf("read exported JSON: %v", err)
	}
	// 3 types, 3 ids, 2 names, 1 species, 2 references
	if ts.Len() != 11 {
		t.Errorf("triples = %d, want 11", ts.Len())
	}
}

func TestExportNTriplesFile(t *testing.T) {
	f := newFixture(t, testData)
	path := filepath.Join(f.dir, "people.nt")
	_, stderr, err := run(t, newTestCLI(t), "export", "-s", f.schema, f.data, "-o", path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<http://example.org/person/a>") {
		t.Errorf("N-Triples missing subject URI:\n%s", data)
	}
	if !strings.Contains(stderr, path) {
		t.Errorf("stderr does not list %s:\n%s", path, stderr)
	}
}

func TestExportPattern(t *testing.T) {
	f := newFixture(t, testData)
	out, _, err := run(t, newTestCLI(t), "export", "-s", f.schema, f.data, "-f", "ntriples", "--pattern", "urn:${type}:${id}")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "<urn:person:a>") {
		t.Errorf("pattern not applied:\n%s", out)
	}
}

func TestExportSchemaPrefix(t *testing.T) {
	f := newFixture(t, testData)
	tests := []struct {
		name          string
		args          []string
		wantPredicate string
		wantType      string
	}{
		{"default", nil, "http://example.org/schema#name", "http://example.org/schema#person"},
		{"custom", []string{"--schema-prefix", "s", "--schema-namespace", "http://s.test/"}, "http://s.test/name", "http://s.test/person"},
		{"none", []string{"--schema-prefix", "none"}, "name", "person"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"export", "-s", f.schema, f.data}, tt.args...)
			out, _, err := run(t, newTestCLI(t), args...)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			ts, err := rdf.ReadJSON(strings.NewReader(out))
			if err != nil {
				t.Fatal(err)
			}
			want := []rdf.Triple{
				{Subject: "http://example.org/person/a", Predicate: rdf.RDFType, Object: tt.wantType, ObjectKind: rdf.ObjectURI},
				{Subject: "http://example.org/person/a", Predicate: tt.wantPredicate, Object: "Alice", ObjectKind: rdf.ObjectLiteral},
			}
			for _, w := range want {
				if !slices.Contains(ts.Triples(), w) {
					t.Errorf("missing triple %+v", w)
				}
			}
		})
	}
}

func TestExportRejectsGraphFormat(t *testing.T) {
	f := newFixture(t, testData)
	_, _, err := run(t, newTestCLI(t), "export", "-s", f.schema, f.data, "-f", "graphml")
	if !ergerrors.Is(err, ergerrors.ErrCodeInvalidFormat) {
		t.Fatalf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestExportUnresolved(t *testing.T) {
	f := newFixture(t, brokenData)
	c := newTestCLI(t)
	if _, _, err := run(t, c, "export", "-s", f.schema, f.data); !ergerrors.Is(err, ergerrors.ErrCodeUnresolved) {
		t.Fatalf("err = %v, want UNRESOLVED_REFERENCE", err)
	}

	out, _, err := run(t, c, "export", "-s", f.schema, f.data, "--allow-unresolved")
	if err != nil {
		t.Fatalf("export --allow-unresolved: %v", err)
	}
	ts, err := rdf.ReadJSON(strings.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	// type, id and name of a; the dangling friend is dropped
	if ts.Len() != 3 {
		t.Errorf("triples = %d, want 3", ts.Len())
	}
}

func TestConvert(t *testing.T) {
	f := newFixture(t, testData)
	c := newTestCLI(t)
	base := filepath.Join(f.dir, "out", "people")
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := run(t, c, "convert", "-s", f.schema, f.data, "-f", "graphml,dot", "-o", base)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	graphml, err := os.ReadFile(base + ".graphml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(graphml), "<graphml") {
		t.Errorf("not GraphML:\n%s", graphml)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "digraph") {
		t.Errorf("not a directed DOT graph:\n%s", dot)
	}
	if !strings.Contains(stderr, "3 nodes") || !strings.Contains(stderr, "fresh") {
		t.Errorf("first run stats:\n%s", stderr)
	}

	_, stderr, err = run(t, c, "convert", "-s", f.schema, f.data, "-f", "graphml,dot", "-o", base)
	if err != nil {
		t.Fatalf("second convert: %v", err)
	}
	if !strings.Contains(stderr, "cached") {
		t.Errorf("second run was not served from the cache:\n%s", stderr)
	}
}

func TestConvertUndirectedToStdout(t *testing.T) {
	f := newFixture(t, testData)
	out, _, err := run(t, newTestCLI(t), "convert", "-s", f.schema, f.data, "-f", "dot", "--undirected", "--name", "People", "-o", "-", "--no-cache")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.HasPrefix(out, "graph ") || !strings.Contains(out, "People") || !strings.Contains(out, "--") {
		t.Errorf("not an undirected DOT graph named People:\n%s", out)
	}
	if !strings.Contains(out, `type="person"`) || !strings.Contains(out, `type="animal"`) {
		t.Errorf("node types should be the entity kinds:\n%s", out)
	}
}

func TestConvertStdoutNeedsOneFormat(t *testing.T) {
	f := newFixture(t, testData)
	_, _, err := run(t, newTestCLI(t), "convert", "-s", f.schema, f.data, "-f", "graphml,dot", "-o", "-")
	if !ergerrors.Is(err, ergerrors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestConvertBadTag(t *testing.T) {
	f := newFixture(t, testData)
	_, _, err := run(t, newTestCLI(t), "convert", "-s", f.schema, f.data, "--tag", "person")
	if !ergerrors.Is(err, ergerrors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestConfigFile(t *testing.T) {
	f := newFixture(t, testData)
	cfgPath := filepath.Join(f.dir, "ergraph.toml")
	cfg := "[output]\nname = \"FromConfig\"\nformats = [\"dot\"]\n\n[cache]\nbackend = \"none\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, newTestCLI(t), "--config", cfgPath, "convert", "-s", f.schema, f.data, "-o", "-")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out, "FromConfig") {
		t.Errorf("configured graph name not used:\n%s", out)
	}
}

func TestVisualize(t *testing.T) {
	f := newFixture(t, testData)
	c := newTestCLI(t)
	for _, ext := range []string{".json", ".nt"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(f.dir, "people"+ext)
			if _, _, err := run(t, c, "export", "-s", f.schema, f.data, "-o", path); err != nil {
				t.Fatalf("export: %v", err)
			}
			out, _, err := run(t, c, "visualize", path, "-f", "dot", "-o", "-")
			if err != nil {
				t.Fatalf("visualize: %v", err)
			}
			if got := strings.Count(out, "->"); got != 2 {
				t.Errorf("edges = %d, want 2:\n%s", got, out)
			}
		})
	}
}

func TestVisualizeUnknownExtension(t *testing.T) {
	f := newFixture(t, testData)
	path := filepath.Join(f.dir, "people.ttl")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := run(t, newTestCLI(t), "visualize", path)
	if !ergerrors.Is(err, ergerrors.ErrCodeInvalidFormat) {
		t.Fatalf("err = %v, want INVALID_FORMAT", err)
	}
}

// sharedStore keeps one memory store alive across commands.
type sharedStore struct{ *triplestore.Memory }

func (sharedStore) Close() error { return nil }

func TestStorePushPull(t *testing.T) {
	f := newFixture(t, testData)
	c := newTestCLI(t)
	mem := triplestore.NewMemory()
	c.OpenStore = func(context.Context, config.StoreConfig) (triplestore.Store, error) {
		return sharedStore{mem}, nil
	}

	if _, _, err := run(t, c, "export", "-s", f.schema, f.data, "-o", filepath.Join(f.dir, "triples.json")); err != nil {
		t.Fatalf("export: %v", err)
	}
	_, stderr, err := run(t, c, "store", "push", filepath.Join(f.dir, "triples.json"), "--graph", "people")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if !strings.Contains(stderr, "Pushed") {
		t.Errorf("push output:\n%s", stderr)
	}

	out, _, err := run(t, c, "store", "pull", "people")
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	ts, err := rdf.ReadJSON(strings.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if ts.Len() != 11 {
		t.Errorf("pulled %d triples, want 11", ts.Len())
	}

	_, _, err = run(t, c, "store", "pull", "missing")
	if !ergerrors.Is(err, ergerrors.ErrCodeNotFound) {
		t.Fatalf("pull missing: err = %v, want NOT_FOUND", err)
	}
}

func TestStoreRejectsInvalidBackend(t *testing.T) {
	c := newTestCLI(t)
	c.OpenStore = func(context.Context, config.StoreConfig) (triplestore.Store, error) {
		t.Fatal("store opened despite invalid configuration")
		return nil, nil
	}
	_, _, err := run(t, c, "store", "pull", "g", "--backend", "postgres")
	if !ergerrors.Is(err, ergerrors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT (postgres without url)", err)
	}
}

func TestCachePathAndClear(t *testing.T) {
	f := newFixture(t, testData)
	c := newTestCLI(t)
	dir := os.Getenv("ERGRAPH_CACHE_DIR")

	out, _, err := run(t, c, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), dir)
	}

	if _, _, err := run(t, c, "convert", "-s", f.schema, f.data, "-o", filepath.Join(f.dir, "people")); err != nil {
		t.Fatalf("convert: %v", err)
	}
	_, stderr, err := run(t, c, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	// triples and one graphml artifact
	if !strings.Contains(stderr, "Cleared 2 cached entries") {
		t.Errorf("cache clear output:\n%s", stderr)
	}
}

func TestCompletion(t *testing.T) {
	out, _, err := run(t, newTestCLI(t), "completion", "bash")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !strings.Contains(out, "ergraph") {
		t.Error("completion script does not mention ergraph")
	}
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		in      []string
		want    map[string]string
		wantErr bool
	}{
		{in: nil, want: map[string]string{}},
		{in: []string{"person=people", "animal=pets"}, want: map[string]string{"person": "people", "animal": "pets"}},
		{in: []string{"foaf=http://xmlns.com/foaf/0.1/"}, want: map[string]string{"foaf": "http://xmlns.com/foaf/0.1/"}},
		{in: []string{"person"}, wantErr: true},
		{in: []string{"=people"}, wantErr: true},
		{in: []string{"person="}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parsePairs(tt.in, "tag")
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePairs(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parsePairs(%v) = %v, want %v", tt.in, got, tt.want)
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("parsePairs(%v)[%q] = %q, want %q", tt.in, k, got[k], v)
			}
		}
	}
}

func TestParseFormats(t *testing.T) {
	got := parseFormats(" graphml, ,dot,svg ")
	want := []string{"graphml", "dot", "svg"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("parseFormats = %v, want %v", got, want)
	}
	if parseFormats("") != nil {
		t.Error("parseFormats(\"\") should be nil")
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "data/people.json", "data/people"},
		{"out/graph.graphml", "people.json", "out/graph"},
		{"out/graph", "people.json", "out/graph"},
		{"", "-", appName},
		{"", "", appName},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"":             "json",
		"a.json":       "json",
		"a.nt":         "ntriples",
		"a.NT":         "ntriples",
		"a.jsonld":     "jsonld",
		"a.unexpected": "json",
	}
	for path, want := range tests {
		if got := formatFromPath(path); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestFormatError(t *testing.T) {
	err := ergerrors.New(ergerrors.ErrCodeSchema, "kind %q declared twice", "person")
	got := FormatError(err)
	if !strings.Contains(got, "SCHEMA_ERROR") || !strings.Contains(got, `"person"`) {
		t.Errorf("FormatError = %q", got)
	}
}
