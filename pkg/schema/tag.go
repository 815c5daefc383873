package schema

// Tag is the cardinality and requiredness marker of an attribute.
// The set of tags is closed; switches over Tag are expected to be exhaustive.
type Tag uint8

const (
	// TagKey marks the attribute whose value is the entity identifier.
	TagKey Tag = iota + 1
	// TagRequired marks a scalar attribute that must be present.
	TagRequired
	// TagOptional marks a scalar attribute that may be absent.
	TagOptional
	// TagMulti marks an ordered list of references to other entities.
	TagMulti
)

var tagChars = map[byte]Tag{
	'@': TagKey,
	'!': TagRequired,
	'?': TagOptional,
	'*': TagMulti,
}

// ParseTag maps a tag character to its Tag.
func ParseTag(c byte) (Tag, bool) {
	t, ok := tagChars[c]
	return t, ok
}

// Char returns the tag character used in schema sources.
func (t Tag) Char() byte {
	switch t {
	case TagKey:
		return '@'
	case TagRequired:
		return '!'
	case TagOptional:
		return '?'
	case TagMulti:
		return '*'
	}
	return 0
}

// String returns a readable tag name.
func (t Tag) String() string {
	switch t {
	case TagKey:
		return "key"
	case TagRequired:
		return "required"
	case TagOptional:
		return "optional"
	case TagMulti:
		return "multi"
	}
	return "unknown"
}

// IsScalar reports whether attributes with this tag hold a single scalar value.
func (t Tag) IsScalar() bool { return t != TagMulti }
