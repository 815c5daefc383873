package triplestore

import (
	"context"
	"time"

	"github.com/matzehuels/ergraph/pkg/config"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/observability"
	"github.com/matzehuels/ergraph/pkg/rdf"
)

// Open connects to the backend named by cfg. The returned store reports
// every call to the registered [observability.StoreHooks].
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case config.BackendMemory, "":
		s = NewMemory()
	case config.BackendRedis:
		s, err = NewRedis(cfg.URL)
	case config.BackendMongo:
		s, err = NewMongo(ctx, cfg.URL, cfg.Database, cfg.Collection)
	case config.BackendPostgres:
		s, err = NewPostgres(ctx, cfg.URL, cfg.Table)
	default:
		return nil, ergerrors.New(ergerrors.ErrCodeInvalidInput, "unknown triple store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	name := cfg.Backend
	if name == "" {
		name = config.BackendMemory
	}
	return Instrument(s, name), nil
}

// Instrument wraps s so that Insert and Query are reported to the store
// hooks under backend.
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

type instrumented struct {
	Store
	backend string
}

func (i *instrumented) Insert(ctx context.Context, ts *rdf.TripleSet, graph string) error {
	start := time.Now()
	err := i.Store.Insert(ctx, ts, graph)
	observability.Store().OnInsert(ctx, i.backend, graph, ts.Len(), time.Since(start), err)
	return err
}

func (i *instrumented) Query(ctx context.Context, graph string) (*rdf.TripleSet, error) {
	start := time.Now()
	ts, err := i.Store.Query(ctx, graph)
	n := 0
	if ts != nil {
		n = ts.Len()
	}
	observability.Store().OnQuery(ctx, i.backend, graph, n, time.Since(start), err)
	return ts, err
}
