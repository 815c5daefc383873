package schema

import (
	"errors"
	"slices"
	"strings"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

// DefaultValueType is the value type of scalar attributes that declare none.
const DefaultValueType = "string"

var (
	// ErrUnknownKind is returned by lookups for a kind the schema does not declare.
	ErrUnknownKind = errors.New("unknown entity kind")
)

// Attribute describes one attribute of an entity kind.
//
// For scalar attributes ValueType is a scalar kind such as "string" or
// "class". For [TagMulti] attributes it names the entity kind referenced.
type Attribute struct {
	Name      string
	ValueType string
	Tag       Tag
}

// Kind describes one entity kind: its key attribute and its attributes in
// declaration order.
type Kind struct {
	Name string
	Key  string

	attrs []Attribute
	index map[string]int
}

// Attributes returns the kind's attributes in declaration order.
func (k *Kind) Attributes() []Attribute { return slices.Clone(k.attrs) }

// Attribute returns the named attribute and true, or false if the kind has
// no such attribute.
func (k *Kind) Attribute(name string) (Attribute, bool) {
	i, ok := k.index[name]
	if !ok {
		return Attribute{}, false
	}
	return k.attrs[i], true
}

// KeyAttribute returns the kind's key attribute.
func (k *Kind) KeyAttribute() Attribute {
	a, _ := k.Attribute(k.Key)
	return a
}

// Schema maps entity kinds to their descriptions. It is immutable once
// built and safe to share between goroutines.
type Schema struct {
	kinds  []*Kind
	byName map[string]*Kind
}

// Definition is the unvalidated source form of one kind: its name and its
// attribute specs ("@id", "!name", "*friends:person", ...).
type Definition struct {
	Kind       string
	Attributes []string
}

// Build validates definitions and returns the resulting schema.
//
// Build fails with a SCHEMA_ERROR if there are no kinds, if a kind is
// declared twice, if an attribute spec uses an unrecognized tag character or
// is otherwise malformed, if a kind declares an attribute twice, or if a kind
// does not have exactly one key attribute.
func Build(defs ...Definition) (*Schema, error) {
	if len(defs) == 0 {
		return nil, ergerrors.New(ergerrors.ErrCodeSchema, "schema declares no entity kinds")
	}

	s := &Schema{byName: make(map[string]*Kind, len(defs))}
	for _, def := range defs {
		k, err := buildKind(def)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byName[k.Name]; dup {
			return nil, ergerrors.New(ergerrors.ErrCodeSchema, "kind %q declared twice", k.Name)
		}
		s.kinds = append(s.kinds, k)
		s.byName[k.Name] = k
	}
	return s, nil
}

func buildKind(def Definition) (*Kind, error) {
	name := strings.TrimSpace(def.Kind)
	if name == "" {
		return nil, ergerrors.New(ergerrors.ErrCodeSchema, "kind name must not be empty")
	}

	k := &Kind{Name: name, index: make(map[string]int, len(def.Attributes))}
	keys := 0
	for _, spec := range def.Attributes {
		a, err := ParseAttribute(spec)
		if err != nil {
			return nil, ergerrors.Wrap(ergerrors.ErrCodeSchema, err, "kind %q", name)
		}
		if _, dup := k.index[a.Name]; dup {
			return nil, ergerrors.New(ergerrors.ErrCodeSchema, "kind %q: attribute %q declared twice", name, a.Name)
		}
		if a.Tag == TagKey {
			keys++
			k.Key = a.Name
		}
		k.index[a.Name] = len(k.attrs)
		k.attrs = append(k.attrs, a)
	}
	if keys != 1 {
		return nil, ergerrors.New(ergerrors.ErrCodeSchema, "kind %q must have exactly one key attribute, has %d", name, keys)
	}
	return k, nil
}

// ParseAttribute parses a single attribute spec "<tag><name>[:<valueType>]".
// Scalar attributes default to [DefaultValueType]; multi attributes must
// name the kind they reference.
func ParseAttribute(spec string) (Attribute, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Attribute{}, ergerrors.New(ergerrors.ErrCodeSchema, "empty attribute spec")
	}

	tag, ok := ParseTag(spec[0])
	if !ok {
		return Attribute{}, ergerrors.New(ergerrors.ErrCodeSchema, "attribute %q: unrecognized tag %q", spec, spec[0])
	}

	name, valueType, _ := strings.Cut(spec[1:], ":")
	name = strings.TrimSpace(name)
	valueType = strings.TrimSpace(valueType)
	if name == "" {
		return Attribute{}, ergerrors.New(ergerrors.ErrCodeSchema, "attribute %q: missing name", spec)
	}
	if valueType == "" {
		if tag == TagMulti {
			return Attribute{}, ergerrors.New(ergerrors.ErrCodeSchema, "attribute %q: multi attribute must name the referenced kind", spec)
		}
		valueType = DefaultValueType
	}
	return Attribute{Name: name, ValueType: valueType, Tag: tag}, nil
}

// Kinds returns the declared entity kinds in declaration order.
func (s *Schema) Kinds() []string {
	names := make([]string, len(s.kinds))
	for i, k := range s.kinds {
		names[i] = k.Name
	}
	return names
}

// Kind returns the named kind and true, or nil and false if undeclared.
func (s *Schema) Kind(name string) (*Kind, bool) {
	k, ok := s.byName[name]
	return k, ok
}

// AttributesOf returns the attributes of kind in declaration order.
func (s *Schema) AttributesOf(kind string) ([]Attribute, error) {
	k, ok := s.byName[kind]
	if !ok {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeNotFound, ErrUnknownKind, "kind %q", kind)
	}
	return k.Attributes(), nil
}

// KeyAttributeOf returns the name of the key attribute of kind.
func (s *Schema) KeyAttributeOf(kind string) (string, error) {
	k, ok := s.byName[kind]
	if !ok {
		return "", ergerrors.Wrap(ergerrors.ErrCodeNotFound, ErrUnknownKind, "kind %q", kind)
	}
	return k.Key, nil
}
