package rdf

import (
	"maps"
	"slices"
	"strings"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

// Well-known namespaces bound by every new configuration.
const (
	NamespaceRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceXSD  = "http://www.w3.org/2001/XMLSchema#"

	// RDFType is the conventional type predicate.
	RDFType = NamespaceRDF + "type"
)

// Binding is one prefix to namespace association.
type Binding struct {
	Prefix    string
	Namespace string
}

// Configuration maps prefixes to namespaces in both directions and names the
// predicate that declares an entity's type.
type Configuration struct {
	// TypePredicate is the full URI of the type predicate.
	TypePredicate string

	bindings []Binding
}

// NewConfiguration returns a configuration with rdf, rdfs and xsd bound and
// rdf:type as type predicate.
func NewConfiguration() *Configuration {
	return &Configuration{
		TypePredicate: RDFType,
		bindings: []Binding{
			{"rdf", NamespaceRDF},
			{"rdfs", NamespaceRDFS},
			{"xsd", NamespaceXSD},
		},
	}
}

// Bind associates prefix with namespace. The table stays one-to-one: an
// earlier binding of the same prefix or of the same namespace is replaced.
func (c *Configuration) Bind(prefix, namespace string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.Contains(prefix, ":") {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "invalid prefix %q", prefix)
	}
	if namespace == "" {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "prefix %q: empty namespace", prefix)
	}
	c.bindings = slices.DeleteFunc(c.bindings, func(b Binding) bool {
		return b.Namespace == namespace && b.Prefix != prefix
	})
	for i, b := range c.bindings {
		if b.Prefix == prefix {
			c.bindings[i].Namespace = namespace
			return nil
		}
	}
	c.bindings = append(c.bindings, Binding{prefix, namespace})
	return nil
}

// Namespace returns the namespace bound to prefix.
func (c *Configuration) Namespace(prefix string) (string, bool) {
	for _, b := range c.bindings {
		if b.Prefix == prefix {
			return b.Namespace, true
		}
	}
	return "", false
}

// BindAll binds every entry of prefixes in prefix order.
func (c *Configuration) BindAll(prefixes map[string]string) error {
	for _, prefix := range slices.Sorted(maps.Keys(prefixes)) {
		if err := c.Bind(prefix, prefixes[prefix]); err != nil {
			return err
		}
	}
	return nil
}

// Bindings returns the prefix table in binding order.
func (c *Configuration) Bindings() []Binding { return slices.Clone(c.bindings) }

// Prefixes returns the prefix table as a map.
func (c *Configuration) Prefixes() map[string]string {
	m := make(map[string]string, len(c.bindings))
	for _, b := range c.bindings {
		m[b.Prefix] = b.Namespace
	}
	return m
}

// Compress rewrites uri as prefix:local using the longest matching namespace.
// URIs no namespace matches are returned unchanged.
func (c *Configuration) Compress(uri string) string {
	best := -1
	for i, b := range c.bindings {
		if len(uri) <= len(b.Namespace) || !strings.HasPrefix(uri, b.Namespace) {
			continue
		}
		if best < 0 || len(b.Namespace) > len(c.bindings[best].Namespace) {
			best = i
		}
	}
	if best < 0 {
		return uri
	}
	b := c.bindings[best]
	return b.Prefix + ":" + uri[len(b.Namespace):]
}

// Expand rewrites prefix:local to the full URI when prefix is bound. Other
// terms are returned unchanged.
func (c *Configuration) Expand(term string) string {
	prefix, local, ok := strings.Cut(term, ":")
	if !ok || strings.HasPrefix(local, "//") {
		return term
	}
	if ns, ok := c.Namespace(prefix); ok {
		return ns + local
	}
	return term
}

// Clone returns an independent copy.
func (c *Configuration) Clone() *Configuration {
	return &Configuration{TypePredicate: c.TypePredicate, bindings: slices.Clone(c.bindings)}
}
