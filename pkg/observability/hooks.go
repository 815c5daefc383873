// Package observability provides hooks for metrics, tracing, and logging.
//
// Hooks let an application observe pipeline stages, cache traffic, triple
// store calls and HTTP requests without the libraries depending on any
// metrics backend. Every hook set has a no-op default; main registers real
// implementations at startup:
//
//	func main() {
//	    observability.SetPipelineHooks(observability.NewLogHooks(logger))
//	    ...
//	}
//
// Libraries emit events through the accessors:
//
//	observability.Pipeline().OnStageStart(ctx, observability.StageExport)
//	...
//	observability.Pipeline().OnStageComplete(ctx, observability.StageExport, ts.Len(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names one step of the conversion pipeline.
type Stage string

const (
	StageLoad   Stage = "load"
	StageCheck  Stage = "check"
	StageExport Stage = "export"
	StageImport Stage = "import"
	StageRender Stage = "render"
)

// PipelineHooks receives events from the conversion pipeline. items is the
// stage's output size: entities, triples, nodes or bytes.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage Stage)
	OnStageComplete(ctx context.Context, stage Stage, items int, duration time.Duration, err error)
	// OnUnresolved reports the number of dangling references found by the
	// integrity check.
	OnUnresolved(ctx context.Context, count int)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// StoreHooks receives events from triple store calls.
type StoreHooks interface {
	OnInsert(ctx context.Context, backend, graph string, triples int, duration time.Duration, err error)
	OnQuery(ctx context.Context, backend, graph string, triples int, duration time.Duration, err error)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// NoopPipelineHooks ignores pipeline events.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, Stage)                               {}
func (NoopPipelineHooks) OnStageComplete(context.Context, Stage, int, time.Duration, error) {}
func (NoopPipelineHooks) OnUnresolved(context.Context, int)                                 {}

// NoopCacheHooks ignores cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopStoreHooks ignores store events.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnInsert(context.Context, string, string, int, time.Duration, error) {}
func (NoopStoreHooks) OnQuery(context.Context, string, string, int, time.Duration, error)  {}

// NoopHTTPHooks ignores HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	hooksMu       sync.RWMutex
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	storeHooks    StoreHooks    = NoopStoreHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
)

// SetPipelineHooks registers pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetStoreHooks registers triple store hooks. nil is ignored.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op defaults. Used by tests.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	storeHooks = NoopStoreHooks{}
	httpHooks = NoopHTTPHooks{}
}
