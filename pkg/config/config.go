// Package config loads ergraph settings from an optional TOML file and
// ERGRAPH_* environment variables.
//
// Keys are nested with dots in the file and underscores in the environment:
// export.pattern in a file is ERGRAPH_EXPORT_PATTERN in the environment.
// Map-valued settings (loader.tags, export.per_kind, export.prefixes) can
// only be set from a file, and their keys are lowercased on load.
package config

import (
	"strings"

	"github.com/spf13/viper"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ERGRAPH"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the complete ergraph configuration.
type Config struct {
	Loader LoaderConfig `mapstructure:"loader"`
	Export ExportConfig `mapstructure:"export"`
	Output OutputConfig `mapstructure:"output"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// LoaderConfig controls how JSON documents are read into the entity graph.
type LoaderConfig struct {
	// Tags maps kind names to the top-level JSON key holding their entities.
	Tags      map[string]string `mapstructure:"tags"`
	IDScheme  string            `mapstructure:"id_scheme"`
	NameField string            `mapstructure:"name_field"`
}

// ExportConfig controls URI naming and vocabulary of exported triples.
type ExportConfig struct {
	Pattern string            `mapstructure:"pattern"`
	PerKind map[string]string `mapstructure:"per_kind"`
	// SchemaPrefix "none" exports bare attribute and kind names.
	SchemaPrefix    string            `mapstructure:"schema_prefix"`
	SchemaNamespace string            `mapstructure:"schema_namespace"`
	Prefixes        map[string]string `mapstructure:"prefixes"`
	SkipBroken      bool              `mapstructure:"skip_broken"`
}

// OutputConfig controls the visual graph and its serializations.
type OutputConfig struct {
	Name       string   `mapstructure:"name"`
	Undirected bool     `mapstructure:"undirected"`
	Formats    []string `mapstructure:"formats"`
}

// StoreConfig selects and addresses a triple store backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	URL        string `mapstructure:"url"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	Table      string `mapstructure:"table"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	URL     string `mapstructure:"url"`
}

// SetDefaults registers the default value of every scalar key on v.
// Registering a key is also what makes its environment override visible
// to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("loader.id_scheme", "verbatim")
	v.SetDefault("loader.name_field", "name")

	v.SetDefault("export.pattern", "http://example.org/${type}/${id}")
	v.SetDefault("export.schema_prefix", "ex")
	v.SetDefault("export.schema_namespace", "http://example.org/schema#")
	v.SetDefault("export.skip_broken", false)

	v.SetDefault("output.name", "G")
	v.SetDefault("output.undirected", false)
	v.SetDefault("output.formats", []string{"graphml"})

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.url", "")
	v.SetDefault("store.database", "ergraph")
	v.SetDefault("store.collection", "triples")
	v.SetDefault("store.table", "triples")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 8<<20)

	v.SetDefault("cache.backend", CacheFile)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.url", "")
}

// New returns a viper instance with defaults and environment overrides
// wired, but no config file.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the TOML file at path, if path is non-empty, applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "read config %s", path)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by no file and no environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := FromViper(v)
	return cfg
}

// Validate checks enumerated settings and required fields.
func (c *Config) Validate() error {
	switch c.Loader.IDScheme {
	case "verbatim", "composite":
	default:
		return invalid("loader.id_scheme", c.Loader.IDScheme)
	}
	if c.Export.Pattern == "" {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "config: export.pattern must be set")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis, BackendMongo, BackendPostgres:
		if c.Store.URL == "" {
			return ergerrors.New(ergerrors.ErrCodeInvalidInput, "config: store.url is required for the %s backend", c.Store.Backend)
		}
	default:
		return invalid("store.backend", c.Store.Backend)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.URL == "" {
			return ergerrors.New(ergerrors.ErrCodeInvalidInput, "config: cache.url is required for the redis cache")
		}
	default:
		return invalid("cache.backend", c.Cache.Backend)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "config: server.max_body_bytes must be positive")
	}
	return nil
}

func invalid(key, value string) error {
	return ergerrors.New(ergerrors.ErrCodeInvalidInput, "config: unsupported %s %q", key, value)
}
