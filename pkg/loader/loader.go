package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ergraph/pkg/ergraph"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/schema"
)

// DefaultNameField is the field of object-shaped references holding the id.
const DefaultNameField = "name"

// IDScheme selects how entity ids are derived from key values.
type IDScheme int

const (
	// IDVerbatim uses the key value as the id.
	IDVerbatim IDScheme = iota
	// IDComposite derives lower(kind) + "/" + lower(key).
	IDComposite
)

// ParseIDScheme maps "verbatim" or "composite" to an IDScheme.
func ParseIDScheme(s string) (IDScheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "verbatim":
		return IDVerbatim, nil
	case "composite":
		return IDComposite, nil
	}
	return 0, ergerrors.New(ergerrors.ErrCodeInvalidInput, "unknown id scheme %q (want verbatim or composite)", s)
}

func (s IDScheme) String() string {
	if s == IDComposite {
		return "composite"
	}
	return "verbatim"
}

// ID applies the scheme to a key value of kind.
func (s IDScheme) ID(kind, key string) string {
	if s == IDComposite {
		return strings.ToLower(kind) + "/" + strings.ToLower(key)
	}
	return key
}

// Options configures a load.
type Options struct {
	// Tags maps entity kinds to top-level JSON keys. Kinds without an entry
	// are looked up by their own name, then by their name plus "s".
	Tags map[string]string
	// IDScheme selects the id derivation. Default: IDVerbatim.
	IDScheme IDScheme
	// NameField is the id field of object-shaped references. Default: "name".
	NameField string
	// Logger receives per-kind progress at debug level. Default: discard.
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.NameField == "" {
		o.NameField = DefaultNameField
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// LoadFile reads the JSON document at path into g.
func LoadFile(path string, g *ergraph.Graph, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	if err := LoadReader(f, g, opts); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadReader reads a JSON document from r into g.
func LoadReader(r io.Reader, g *ergraph.Graph, opts Options) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "read input")
	}
	return Load(data, g, opts)
}

// Load decodes a JSON document and adds its records to g, kind by kind in
// schema order. Any structural error aborts the load; g may then hold the
// entities added before the failure.
func Load(data []byte, g *ergraph.Graph, opts Options) error {
	opts.setDefaults()

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "decode input document")
	}

	s := g.Schema()
	for _, name := range s.Kinds() {
		kind, _ := s.Kind(name)
		tag, raw, ok := lookupExtension(doc, name, opts.Tags)
		if !ok {
			opts.Logger.Debug("no extension for kind", "kind", name)
			continue
		}
		records, err := decodeExtension(raw, kind.Key)
		if err != nil {
			return ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "extension %q", tag)
		}
		l := kindLoader{kind: kind, opts: &opts}
		for _, src := range records {
			if err := l.add(g, src); err != nil {
				return err
			}
		}
		opts.Logger.Debug("loaded kind", "kind", name, "extension", tag, "entities", len(records))
	}
	return nil
}

func lookupExtension(doc map[string]json.RawMessage, kind string, tags map[string]string) (string, json.RawMessage, bool) {
	candidates := []string{kind, kind + "s"}
	if tag, ok := tags[kind]; ok {
		candidates = []string{tag}
	}
	for _, c := range candidates {
		raw, ok := doc[c]
		if ok && !isNull(raw) {
			return c, raw, true
		}
	}
	return "", nil, false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeExtension returns the records of an extension in document order.
// Keyed objects are normalized to the array form by injecting each object
// key as the value of the key attribute.
func decodeExtension(raw json.RawMessage, keyAttr string) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty extension")
	}
	switch trimmed[0] {
	case '[':
		var items []any
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return nil, err
		}
		records := make([]map[string]any, 0, len(items))
		for i, item := range items {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d is a %s, want object", i, jsonType(item))
			}
			records = append(records, rec)
		}
		return records, nil
	case '{':
		return decodeKeyed(trimmed, keyAttr)
	}
	return nil, errors.New("extension must be an array or an object of records")
}

func decodeKeyed(data []byte, keyAttr string) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var records []map[string]any
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("record %q is not an object", key)
		}
		rec[keyAttr] = key
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return records, nil
}

type kindLoader struct {
	kind *schema.Kind
	opts *Options
}

func (l kindLoader) add(g *ergraph.Graph, src map[string]any) error {
	kind := l.kind.Name
	keyValue, err := scalarString(src[l.kind.Key])
	if err != nil || keyValue == "" {
		if v, present := src[l.kind.Key]; !present || v == nil {
			return ergerrors.New(ergerrors.ErrCodeMissingRequired, "%s: record is missing key attribute %q", kind, l.kind.Key)
		}
		return ergerrors.New(ergerrors.ErrCodeInvalidInput, "%s: key attribute %q must be a non-empty scalar", kind, l.kind.Key)
	}
	id := l.opts.IDScheme.ID(kind, keyValue)

	rec := make(ergraph.Record, len(src))
	for _, attr := range l.kind.Attributes() {
		v, present := src[attr.Name]
		present = present && v != nil

		switch attr.Tag {
		case schema.TagKey, schema.TagRequired:
			if !present {
				return ergerrors.New(ergerrors.ErrCodeMissingRequired, "%s %q: missing required attribute %q", kind, id, attr.Name)
			}
			if err := setScalar(rec, attr.Name, v); err != nil {
				return ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "%s %q", kind, id)
			}
		case schema.TagOptional:
			if !present {
				continue
			}
			if err := setScalar(rec, attr.Name, v); err != nil {
				return ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "%s %q", kind, id)
			}
		case schema.TagMulti:
			if !present {
				continue
			}
			refs, err := l.references(attr, v)
			if err != nil {
				return ergerrors.Wrap(ergerrors.ErrCodeInvalidReference, err, "%s %q: attribute %q", kind, id, attr.Name)
			}
			rec[attr.Name] = refs
		}
	}

	if err := g.Add(kind, id, rec); err != nil {
		if errors.Is(err, ergraph.ErrDuplicateID) {
			return ergerrors.Wrap(ergerrors.ErrCodeDuplicateEntity, err, "%s %q declared twice", kind, id)
		}
		return ergerrors.Wrap(ergerrors.ErrCodeInternal, err, "add %s %q", kind, id)
	}
	return nil
}

func (l kindLoader) references(attr schema.Attribute, v any) ([]ergraph.Reference, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("value must be a list, got %s", jsonType(v))
	}
	refs := make([]ergraph.Reference, 0, len(items))
	for i, item := range items {
		raw, err := parseReference(item, l.opts.NameField)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		refs = append(refs, l.resolve(attr, raw))
	}
	return refs, nil
}

func (l kindLoader) resolve(attr schema.Attribute, raw RawReference) ergraph.Reference {
	kind, key := attr.ValueType, ""
	switch r := raw.(type) {
	case Bare:
		key = string(r)
	case Shaped:
		if r.Type != "" {
			kind = r.Type
		}
		key = r.Name
	}
	return ergraph.Reference{Kind: kind, ID: l.opts.IDScheme.ID(kind, key)}
}

func setScalar(rec ergraph.Record, name string, v any) error {
	switch v.(type) {
	case string, json.Number, bool:
		rec[name] = v
		return nil
	}
	return fmt.Errorf("attribute %q must be a scalar, got %s", name, jsonType(v))
}

func scalarString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return ergraph.FormatNumber(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("not a scalar: %s", jsonType(v))
}
