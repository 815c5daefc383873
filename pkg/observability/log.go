package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports pipeline, store and HTTP events to a logger at debug
// level, and failures at error level.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks logging to l.
func NewLogHooks(l *log.Logger) *LogHooks { return &LogHooks{Logger: l} }

func (h *LogHooks) OnStageStart(_ context.Context, stage Stage) {
	h.Logger.Debug("stage started", "stage", stage)
}

func (h *LogHooks) OnStageComplete(_ context.Context, stage Stage, items int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("stage failed", "stage", stage, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("stage done", "stage", stage, "items", items, "duration", d)
}

func (h *LogHooks) OnUnresolved(_ context.Context, count int) {
	h.Logger.Warn("unresolved references", "count", count)
}

func (h *LogHooks) OnInsert(_ context.Context, backend, graph string, n int, d time.Duration, err error) {
	h.storeEvent("insert", backend, graph, n, d, err)
}

func (h *LogHooks) OnQuery(_ context.Context, backend, graph string, n int, d time.Duration, err error) {
	h.storeEvent("query", backend, graph, n, d, err)
}

func (h *LogHooks) storeEvent(op, backend, graph string, n int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("store "+op+" failed", "backend", backend, "graph", graph, "err", err)
		return
	}
	h.Logger.Debug("store "+op, "backend", backend, "graph", graph, "triples", n, "duration", d)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.Logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.Logger.Info("response", "method", method, "path", path, "status", status, "duration", d)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ StoreHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
