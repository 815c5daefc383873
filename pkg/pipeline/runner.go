package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ergraph/pkg/cache"
	"github.com/matzehuels/ergraph/pkg/ergraph"
	"github.com/matzehuels/ergraph/pkg/integrity"
	"github.com/matzehuels/ergraph/pkg/observability"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeTriples  = "triples"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching and observability.
//
// The Runner holds no per-run state, so one Runner can serve concurrent
// runs with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs load, check, export, import and render. Unresolved
// references fail the run unless opts.AllowUnresolved is set.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}
	if err := r.triples(ctx, opts, result); err != nil {
		return nil, err
	}

	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, result, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = hit
	result.Stats.RenderTime = time.Since(renderStart)
	if result.Visual != nil {
		result.Stats.Nodes = result.Visual.NodeCount()
		result.Stats.Edges = result.Visual.EdgeCount()
	}

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// triples fills the triple set of result from the cache or by running
// load, check and export.
func (r *Runner) triples(ctx context.Context, opts Options, result *Result) error {
	key := r.Keyer.TriplesKey(cache.HashAll(opts.Schema, opts.Data), opts.TriplesKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if ts, err := rdf.ReadJSON(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeTriples)
				result.Triples = ts
				result.TriplesHash = cache.Hash(data)
				result.CacheInfo.TriplesHit = true
				result.Stats.Triples = ts.Len()
				r.Logger.Debug("triples from cache", "triples", ts.Len())
				return nil
			}
			// undecodable entries are rebuilt
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeTriples)
	}

	loadStart := time.Now()
	g, err := r.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	report := r.Check(ctx, g)
	result.Graph = g
	result.Report = report
	result.Stats.Entities = report.Entities
	result.Stats.References = report.References
	result.Stats.Unresolved = len(report.Unresolved)
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("loaded entities",
		"entities", report.Entities,
		"references", report.References,
		"duration", result.Stats.LoadTime)

	if !report.OK() {
		if !opts.AllowUnresolved {
			return fmt.Errorf("check: %w", report.Err())
		}
		r.Logger.Warn("continuing with unresolved references", "count", len(report.Unresolved))
	}

	exportStart := time.Now()
	ts, err := r.Export(ctx, g, opts)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	result.Triples = ts
	result.Stats.Triples = ts.Len()
	result.Stats.ExportTime = time.Since(exportStart)

	var buf bytes.Buffer
	if err := rdf.WriteJSON(ts, &buf); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	result.TriplesHash = cache.Hash(buf.Bytes())
	if !opts.Refresh {
		if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.TTLTriples); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeTriples, buf.Len())
		}
	}

	r.Logger.Info("exported triples",
		"triples", ts.Len(),
		"duration", result.Stats.ExportTime)
	return nil
}

// Load runs the load stage.
func (r *Runner) Load(ctx context.Context, opts Options) (*ergraph.Graph, error) {
	r.applyLogger(&opts)
	start := time.Now()
	observability.Pipeline().OnStageStart(ctx, observability.StageLoad)
	g, err := Load(opts)
	n := 0
	if g != nil {
		n = g.Count("")
	}
	observability.Pipeline().OnStageComplete(ctx, observability.StageLoad, n, time.Since(start), err)
	return g, err
}

// Check runs the integrity check stage.
func (r *Runner) Check(ctx context.Context, g *ergraph.Graph) integrity.Report {
	start := time.Now()
	observability.Pipeline().OnStageStart(ctx, observability.StageCheck)
	report := Check(g)
	observability.Pipeline().OnStageComplete(ctx, observability.StageCheck, report.References, time.Since(start), nil)
	if !report.OK() {
		observability.Pipeline().OnUnresolved(ctx, len(report.Unresolved))
		for _, u := range report.Unresolved {
			r.Logger.Warn("unresolved reference", "ref", u.String())
		}
	}
	return report
}

// Export runs the export stage.
func (r *Runner) Export(ctx context.Context, g *ergraph.Graph, opts Options) (*rdf.TripleSet, error) {
	r.applyLogger(&opts)
	start := time.Now()
	observability.Pipeline().OnStageStart(ctx, observability.StageExport)
	ts, err := Export(g, opts)
	n := 0
	if ts != nil {
		n = ts.Len()
	}
	observability.Pipeline().OnStageComplete(ctx, observability.StageExport, n, time.Since(start), err)
	return ts, err
}

// Import runs the import stage.
func (r *Runner) Import(ctx context.Context, ts *rdf.TripleSet, opts Options) (*visual.Graph, error) {
	r.applyLogger(&opts)
	start := time.Now()
	observability.Pipeline().OnStageStart(ctx, observability.StageImport)
	vg, err := Import(ts, opts)
	n := 0
	if vg != nil {
		n = vg.NodeCount()
	}
	observability.Pipeline().OnStageComplete(ctx, observability.StageImport, n, time.Since(start), err)
	return vg, err
}

// Render runs the render stage.
func (r *Runner) Render(ctx context.Context, ts *rdf.TripleSet, vg *visual.Graph, opts Options) (map[string][]byte, error) {
	r.applyLogger(&opts)
	start := time.Now()
	observability.Pipeline().OnStageStart(ctx, observability.StageRender)
	artifacts, err := Render(ctx, ts, vg, opts)
	n := 0
	for _, data := range artifacts {
		n += len(data)
	}
	observability.Pipeline().OnStageComplete(ctx, observability.StageRender, n, time.Since(start), err)
	return artifacts, err
}

// RenderWithCacheInfo renders every requested format of result.Triples,
// importing the visual graph only when some format is missing from the
// cache. It reports whether all artifacts came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, result *Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(result.TriplesHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
				break
			}
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	var vg *visual.Graph
	if NeedsVisual(opts.Formats) {
		var err error
		if vg, err = r.Import(ctx, result.Triples, opts); err != nil {
			return nil, false, fmt.Errorf("import: %w", err)
		}
		result.Visual = vg
	}

	rendered, err := r.Render(ctx, result.Triples, vg, opts)
	if err != nil {
		return nil, false, err
	}
	if !opts.Refresh {
		for format, data := range rendered {
			key := r.Keyer.ArtifactKey(result.TriplesHash, opts.ArtifactKeyOpts(format))
			if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
				observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
			}
		}
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
