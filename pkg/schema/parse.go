package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
)

// Format identifies the syntax of a schema document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath infers a document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", ergerrors.New(ergerrors.ErrCodeInvalidFormat, "cannot infer schema format from %q (want .yaml, .toml or .json)", path)
}

// LoadFile reads and parses the schema document at path. The format is
// inferred from the file extension.
func LoadFile(path string) (*Schema, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "read schema %s", path)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document in the given format and builds the schema.
func Parse(data []byte, format Format) (*Schema, error) {
	var (
		defs []Definition
		err  error
	)
	switch format {
	case FormatYAML:
		defs, err = parseYAML(data)
	case FormatTOML:
		defs, err = parseTOML(data)
	case FormatJSON:
		defs, err = parseJSON(data)
	default:
		return nil, ergerrors.New(ergerrors.ErrCodeInvalidFormat, "unsupported schema format %q", format)
	}
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeSchema, err, "decode %s schema", format)
	}
	return Build(defs...)
}

func parseYAML(data []byte) ([]Definition, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, len(doc))
	for _, item := range doc {
		kind, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("kind name %v is not a string", item.Key)
		}
		list, ok := item.Value.([]interface{})
		if !ok && item.Value != nil {
			return nil, fmt.Errorf("kind %q: attributes must be a list", kind)
		}
		def := Definition{Kind: kind}
		for _, v := range list {
			spec, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("kind %q: attribute spec %v is not a string", kind, v)
			}
			def.Attributes = append(def.Attributes, spec)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseTOML(data []byte) ([]Definition, error) {
	var doc map[string][]string
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, err
	}
	var defs []Definition
	for _, key := range md.Keys() {
		if len(key) != 1 {
			continue
		}
		kind := key[0]
		defs = append(defs, Definition{Kind: kind, Attributes: doc[kind]})
	}
	return defs, nil
}

func parseJSON(data []byte) ([]Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("schema document must be an object")
	}

	var defs []Definition
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		kind := tok.(string)
		var attrs []string
		if err := dec.Decode(&attrs); err != nil {
			return nil, fmt.Errorf("kind %q: %w", kind, err)
		}
		defs = append(defs, Definition{Kind: kind, Attributes: attrs})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return defs, nil
}
