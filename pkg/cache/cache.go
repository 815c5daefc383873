// Package cache stores pipeline intermediates (triple sets) and rendered
// artifacts keyed by content hash, so repeated conversions of the same input
// with the same options skip work.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for the HTTP server, and [NullCache] when caching is disabled. Keys are
// built by a [Keyer]; [NewScopedKeyer] prefixes them for isolation.
package cache

import (
	"context"
	"time"
)

// Default time-to-live per entry kind.
const (
	TTLTriples  = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with optional expiry.
// A ttl of zero means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TriplesKeyOpts lists the options that change the triples produced from one
// schema and document.
type TriplesKeyOpts struct {
	SchemaFormat    string            `json:"schema_format,omitempty"`
	IDScheme        string            `json:"id_scheme,omitempty"`
	NameField       string            `json:"name_field,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
	Pattern         string            `json:"pattern,omitempty"`
	Patterns        map[string]string `json:"patterns,omitempty"`
	SchemaPrefix    string            `json:"schema_prefix,omitempty"`
	SchemaNamespace string            `json:"schema_namespace,omitempty"`
	Prefixes        map[string]string `json:"prefixes,omitempty"`
	SkipBroken      bool              `json:"skip_broken,omitempty"`
}

// ArtifactKeyOpts lists the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format     string `json:"format"`
	Name       string `json:"name,omitempty"`
	Undirected bool   `json:"undirected,omitempty"`
	// SchemaPrefix changes the type attribute of imported nodes.
	SchemaPrefix string `json:"schema_prefix,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// TriplesKey identifies the triple set built from an input.
	TriplesKey(inputHash string, opts TriplesKeyOpts) string
	// ArtifactKey identifies one rendered output of a triple set.
	ArtifactKey(triplesHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) TriplesKey(inputHash string, opts TriplesKeyOpts) string {
	return hashKey("triples", inputHash, opts)
}

func (DefaultKeyer) ArtifactKey(triplesHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", triplesHash, opts)
}
