// Package cli implements the ergraph command-line interface.
package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ergraph/pkg/cache"
	"github.com/matzehuels/ergraph/pkg/config"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/pipeline"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/schema"
	"github.com/matzehuels/ergraph/pkg/triplestore"
)

// appName is the application name used for display.
const appName = "ergraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Config is loaded before any command runs.
	Config *config.Config

	// OpenStore connects to the configured triple store.
	OpenStore func(context.Context, config.StoreConfig) (triplestore.Store, error)

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:    newLogger(w, level),
		Config:    config.Default(),
		OpenStore: triplestore.Open,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// newRunner creates a pipeline runner with the configured cache.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.CacheFile:
		dir, err := c.cacheDir()
		if err != nil {
			c.Logger.Warn("caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	case config.CacheRedis:
		return cache.NewRedisCache(c.Config.Cache.URL)
	}
	return cache.NewNullCache(), nil
}

// cacheDir returns the configured cache directory or the per-user default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Pipeline Flags
// =============================================================================

// pipelineFlags are the flags shared by commands that run pipeline stages.
// Flags left unset keep the configured value.
type pipelineFlags struct {
	schema          string
	schemaFormat    string
	idScheme        string
	nameField       string
	tags            []string
	pattern         string
	prefixes        []string
	schemaPrefix    string
	schemaNamespace string
	allowUnresolved bool
	name            string
	undirected      bool
	formats         string
	noCache         bool
}

func (f *pipelineFlags) addLoad(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema file (.yaml, .toml or .json)")
	cmd.Flags().StringVar(&f.schemaFormat, "schema-format", "", "schema format when it cannot be inferred: yaml, toml, json")
	cmd.Flags().StringVar(&f.idScheme, "id-scheme", "", "entity id scheme: verbatim, composite")
	cmd.Flags().StringVar(&f.nameField, "name-field", "", "id field of object-shaped references")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "top-level key of a kind as kind=key (repeatable)")
	_ = cmd.MarkFlagRequired("schema")
}

func (f *pipelineFlags) addExport(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pattern, "pattern", "", "entity URI pattern with ${type} and ${id}")
	cmd.Flags().StringSliceVar(&f.prefixes, "prefix", nil, "namespace binding as prefix=uri (repeatable)")
	cmd.Flags().StringVar(&f.schemaPrefix, "schema-prefix", "", `prefix of attribute and kind URIs ("none" for bare names)`)
	cmd.Flags().StringVar(&f.schemaNamespace, "schema-namespace", "", "namespace bound to --schema-prefix")
	cmd.Flags().BoolVar(&f.allowUnresolved, "allow-unresolved", false, "drop dangling references instead of failing")
}

func (f *pipelineFlags) addRender(cmd *cobra.Command, defaultHelp string) {
	cmd.Flags().StringVar(&f.name, "name", "", "graph name")
	cmd.Flags().BoolVar(&f.undirected, "undirected", false, "write an undirected graph")
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s), comma-separated: "+defaultHelp)
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
}

// options builds pipeline options from the configuration, the flags set on
// cmd and the data document at dataPath.
func (c *CLI) options(cmd *cobra.Command, f *pipelineFlags, dataPath string) (pipeline.Options, error) {
	opts := pipeline.FromConfig(c.Config)
	opts.Logger = c.Logger
	changed := cmd.Flags().Changed

	if f.schema != "" {
		format := schema.Format(f.schemaFormat)
		if format == "" {
			var err error
			if format, err = schema.FormatFromPath(f.schema); err != nil {
				return opts, err
			}
		}
		data, err := os.ReadFile(f.schema)
		if err != nil {
			return opts, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "read schema %s", f.schema)
		}
		opts.Schema, opts.SchemaFormat = data, format
	}
	if dataPath != "" {
		data, err := readInput(cmd, dataPath)
		if err != nil {
			return opts, err
		}
		opts.Data = data
	}

	if changed("id-scheme") {
		opts.IDScheme = f.idScheme
	}
	if changed("name-field") {
		opts.NameField = f.nameField
	}
	if changed("tag") {
		tags, err := parsePairs(f.tags, "tag")
		if err != nil {
			return opts, err
		}
		opts.Tags = tags
	}
	if changed("pattern") {
		opts.Pattern = f.pattern
	}
	if changed("prefix") {
		prefixes, err := parsePairs(f.prefixes, "prefix")
		if err != nil {
			return opts, err
		}
		merged := maps.Clone(opts.Prefixes)
		if merged == nil {
			merged = make(map[string]string, len(prefixes))
		}
		for p, ns := range prefixes {
			merged[p] = ns
		}
		opts.Prefixes = merged
	}
	if changed("schema-prefix") {
		opts.SchemaPrefix = f.schemaPrefix
	}
	if changed("schema-namespace") {
		opts.SchemaNamespace = f.schemaNamespace
	}
	if changed("allow-unresolved") {
		opts.AllowUnresolved = f.allowUnresolved
	}
	if changed("name") {
		opts.Name = f.name
	}
	if changed("undirected") {
		opts.Undirected = f.undirected
	}
	if changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	return opts, nil
}

// parsePairs splits key=value flag values.
func parsePairs(values []string, flag string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" || val == "" {
			return nil, ergerrors.New(ergerrors.ErrCodeInvalidInput, "--%s %q: want key=value", flag, v)
		}
		out[k] = val
	}
	return out, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// readInput reads path, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "read %s", path)
	}
	return data, nil
}

// readTriples reads a triple file in JSON or N-Triples form, chosen by its
// extension, and returns it with the raw bytes. N-Triples terms are
// compressed with the prefixes of opts.
func readTriples(cmd *cobra.Command, path string, opts pipeline.Options) (*rdf.TripleSet, []byte, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, nil, err
	}
	var ts *rdf.TripleSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		cfg, cerr := rdfConfiguration(opts)
		if cerr != nil {
			return nil, nil, cerr
		}
		ts, err = rdf.ReadNTriples(bytes.NewReader(data), cfg)
	case ".json", "":
		ts, err = rdf.ReadJSON(bytes.NewReader(data))
	default:
		err = ergerrors.New(ergerrors.ErrCodeInvalidFormat, "cannot read triples from %q (want .json or .nt)", path)
	}
	if err != nil {
		return nil, nil, err
	}
	return ts, data, nil
}

// rdfConfiguration binds the schema prefix and the extra prefixes of opts.
func rdfConfiguration(opts pipeline.Options) (*rdf.Configuration, error) {
	cfg := rdf.NewConfiguration()
	if err := cfg.BindAll(opts.Prefixes); err != nil {
		return nil, err
	}
	if opts.SchemaPrefix != "" && opts.SchemaPrefix != pipeline.NoSchemaPrefix && opts.SchemaNamespace != "" {
		if err := cfg.Bind(opts.SchemaPrefix, opts.SchemaNamespace); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// =============================================================================
// Output
// =============================================================================

// basePath derives the output path without extension.
func basePath(output, input string) string {
	if output != "" {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	if input == "" || input == "-" {
		return appName
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// writeArtifacts writes one file per format. A single format goes to output
// verbatim, or to standard output when output is "-"; several formats share
// the output base name with per-format extensions.
func writeArtifacts(cmd *cobra.Command, artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	if output == "-" {
		if len(formats) != 1 {
			return nil, ergerrors.New(ergerrors.ErrCodeInvalidInput, "cannot write %d formats to stdout", len(formats))
		}
		_, err := cmd.OutOrStdout().Write(artifacts[formats[0]])
		return nil, err
	}

	var paths []string
	base := basePath(output, input)
	for _, format := range formats {
		path := base + pipeline.Extensions[format]
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return paths, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printWritten(w io.Writer, paths []string) {
	for _, p := range paths {
		printFile(w, p)
	}
}

// FormatError renders err for the terminal.
func FormatError(err error) string {
	return fmt.Sprintf("%s %v", styleIconError.Render(iconError), err)
}
