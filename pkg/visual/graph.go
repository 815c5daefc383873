// Package visual provides the generic node/edge graph rendered by the
// GraphML and DOT writers.
//
// Nodes and edges keep insertion order. Edges are keyed by their ordered
// (source, target) pair: adding the same pair again returns the existing
// edge, so parallel edges collapse and later attribute values overwrite
// earlier ones. Endpoints that were never added explicitly are created with
// an empty attribute map.
//
// The graph also carries the attribute type schema filled in by the writers
// on first sight of each attribute name.
package visual

import (
	"maps"
	"slices"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

// Scope distinguishes node attributes from edge attributes.
type Scope string

const (
	ScopeNode Scope = "node"
	ScopeEdge Scope = "edge"
)

// Type is an inferred attribute type.
type Type string

const (
	TypeDouble  Type = "double"
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeInt     Type = "int"
)

// Attributes holds the attribute values of a node or edge.
type Attributes map[string]any

// Names returns the attribute names in lexical order.
func (a Attributes) Names() []string { return slices.Sorted(maps.Keys(a)) }

// Node is a vertex.
type Node struct {
	ID    string
	Attrs Attributes
}

// Edge connects Source to Target.
type Edge struct {
	Source string
	Target string
	Attrs  Attributes
}

type edgeKey struct{ source, target string }

// Graph is an attributed graph with deterministic iteration order.
// The zero value is not usable; use [New].
type Graph struct {
	Name     string
	Directed bool

	nodes   []*Node
	nodeIdx map[string]*Node
	edges   []*Edge
	edgeIdx map[edgeKey]*Edge

	types     map[Scope]map[string]Type
	typeOrder map[Scope][]string
}

// New creates an empty graph.
func New(name string, directed bool) *Graph {
	return &Graph{
		Name:      name,
		Directed:  directed,
		nodeIdx:   make(map[string]*Node),
		edgeIdx:   make(map[edgeKey]*Edge),
		types:     map[Scope]map[string]Type{ScopeNode: {}, ScopeEdge: {}},
		typeOrder: make(map[Scope][]string),
	}
}

// AddNode returns the node with id, creating it if needed.
func (g *Graph) AddNode(id string) *Node {
	if n, ok := g.nodeIdx[id]; ok {
		return n
	}
	n := &Node{ID: id, Attrs: Attributes{}}
	g.nodes = append(g.nodes, n)
	g.nodeIdx[id] = n
	return n
}

// SetNodeAttr sets one node attribute, creating the node if needed.
func (g *Graph) SetNodeAttr(id, name string, value any) {
	g.AddNode(id).Attrs[name] = value
}

// AddEdge returns the edge source->target, creating it and its endpoints
// if needed.
func (g *Graph) AddEdge(source, target string) *Edge {
	k := edgeKey{source, target}
	if e, ok := g.edgeIdx[k]; ok {
		return e
	}
	g.AddNode(source)
	g.AddNode(target)
	e := &Edge{Source: source, Target: target, Attrs: Attributes{}}
	g.edges = append(g.edges, e)
	g.edgeIdx[k] = e
	return e
}

// SetEdgeAttr sets one edge attribute, creating the edge if needed.
func (g *Graph) SetEdgeAttr(source, target, name string, value any) {
	g.AddEdge(source, target).Attrs[name] = value
}

// Node returns the node with id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodeIdx[id]
	return n, ok
}

// Edge returns the edge source->target.
func (g *Graph) Edge(source, target string) (*Edge, bool) {
	e, ok := g.edgeIdx[edgeKey{source, target}]
	return e, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []*Edge { return slices.Clone(g.edges) }

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// AttributeType returns the recorded type of an attribute.
func (g *Graph) AttributeType(scope Scope, name string) (Type, bool) {
	t, ok := g.types[scope][name]
	return t, ok
}

// AttributeNames returns the attribute names of scope with a recorded type,
// in the order they were first recorded.
func (g *Graph) AttributeNames(scope Scope) []string {
	return slices.Clone(g.typeOrder[scope])
}

// Observe records the type of an attribute the first time its name is seen
// in scope. Later values are not checked. It fails with
// UNSUPPORTED_ATTRIBUTE_TYPE if the first value has no supported type.
func (g *Graph) Observe(scope Scope, name string, value any) (Type, error) {
	if t, ok := g.types[scope][name]; ok {
		return t, nil
	}
	t, err := InferType(value)
	if err != nil {
		return "", ergerrors.Wrap(ergerrors.ErrCodeUnsupportedType, err, "%s attribute %q", scope, name)
	}
	if g.types[scope] == nil {
		g.types[scope] = make(map[string]Type)
	}
	g.types[scope][name] = t
	g.typeOrder[scope] = append(g.typeOrder[scope], name)
	return t, nil
}

// InferType maps a runtime value to an attribute type.
func InferType(v any) (Type, error) {
	switch v.(type) {
	case float64, float32:
		return TypeDouble, nil
	case string:
		return TypeString, nil
	case bool:
		return TypeBoolean, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt, nil
	}
	return "", ergerrors.New(ergerrors.ErrCodeUnsupportedType, "unsupported value type %T", v)
}
