package cache

// ScopedKeyer prefixes the keys of another Keyer, for example to keep the
// HTTP server's entries apart from the CLI's in a shared Redis.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [NewDefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) TriplesKey(inputHash string, opts TriplesKeyOpts) string {
	return k.prefix + k.inner.TriplesKey(inputHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(triplesHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(triplesHash, opts)
}
