package loader

import (
	"encoding/json"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

// typeField is the field of an object-shaped reference naming the target kind.
const typeField = "type"

// RawReference is one element of a multi attribute as found in the input,
// before the id scheme is applied. It is either a [Bare] id or a [Shaped]
// object.
type RawReference interface {
	rawReference()
}

// Bare is a reference given as a plain id string. Its kind is the declared
// value type of the attribute.
type Bare string

// Shaped is a reference given as an object. Type is empty when the object
// does not name a kind.
type Shaped struct {
	Type string
	Name string
}

func (Bare) rawReference()   {}
func (Shaped) rawReference() {}

// parseReference classifies a decoded JSON value as a reference.
func parseReference(v any, nameField string) (RawReference, error) {
	switch v := v.(type) {
	case string:
		return Bare(v), nil
	case map[string]any:
		name, ok := v[nameField].(string)
		if !ok {
			return nil, ergerrors.New(ergerrors.ErrCodeInvalidReference, "reference object has no string %q field", nameField)
		}
		var typ string
		if t, present := v[typeField]; present && t != nil {
			if typ, ok = t.(string); !ok {
				return nil, ergerrors.New(ergerrors.ErrCodeInvalidReference, "reference object field %q is not a string", typeField)
			}
		}
		return Shaped{Type: typ, Name: name}, nil
	}
	return nil, ergerrors.New(ergerrors.ErrCodeInvalidReference, "reference must be a string or an object, got %s", jsonType(v))
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}
