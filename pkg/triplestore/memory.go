package triplestore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/ergraph/pkg/rdf"
)

type memoryGraph struct {
	prefixes map[string]string
	triples  []rdf.Triple
}

// Memory is a process-local store. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	graphs map[string]*memoryGraph
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{graphs: make(map[string]*memoryGraph)}
}

func (m *Memory) Insert(_ context.Context, ts *rdf.TripleSet, graph string) error {
	if err := checkGraph(graph); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.graphs[graph]
	if !ok {
		g = &memoryGraph{prefixes: make(map[string]string)}
		m.graphs[graph] = g
	}
	maps.Copy(g.prefixes, prefixTable(ts))
	g.triples = append(g.triples, ts.Triples()...)
	return nil
}

func (m *Memory) Query(_ context.Context, graph string) (*rdf.TripleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graph]
	if !ok || len(g.triples) == 0 {
		return nil, notFound(graph)
	}
	cfg, err := configuration(g.prefixes)
	if err != nil {
		return nil, err
	}
	ts := rdf.NewTripleSet(cfg)
	for _, t := range g.triples {
		ts.Add(t)
	}
	return ts, nil
}

// Graphs returns the names of all graphs in sorted order.
func (m *Memory) Graphs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.graphs))
}

func (m *Memory) Close() error { return nil }
