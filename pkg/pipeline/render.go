package pipeline

import (
	"bytes"
	"context"
	"fmt"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/rdf"
	"github.com/matzehuels/ergraph/pkg/render"
	"github.com/matzehuels/ergraph/pkg/render/dot"
	"github.com/matzehuels/ergraph/pkg/render/graphml"
	"github.com/matzehuels/ergraph/pkg/visual"
)

// NeedsVisual reports whether any of formats is rendered from the visual
// graph rather than from the triples.
func NeedsVisual(formats []string) bool {
	for _, f := range formats {
		switch f {
		case FormatGraphML, FormatDOT, FormatSVG:
			return true
		}
	}
	return false
}

// Render serializes ts or vg in every requested format. vg may be nil when
// only triple formats are requested.
func Render(ctx context.Context, ts *rdf.TripleSet, vg *visual.Graph, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	if vg == nil && NeedsVisual(opts.Formats) {
		return nil, ergerrors.New(ergerrors.ErrCodeInternal, "visual graph required for %v", opts.Formats)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		if _, done := artifacts[format]; done {
			continue
		}
		data, err := renderFormat(ctx, format, ts, vg, artifacts)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, format string, ts *rdf.TripleSet, vg *visual.Graph, done map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatGraphML:
		if err := render.Write(&buf, vg, graphml.New()); err != nil {
			return nil, err
		}
	case FormatDOT:
		if err := render.Write(&buf, vg, dot.New()); err != nil {
			return nil, err
		}
	case FormatSVG:
		src, ok := done[FormatDOT]
		if !ok {
			if err := render.Write(&buf, vg, dot.New()); err != nil {
				return nil, err
			}
			src = buf.Bytes()
		}
		return dot.RenderSVG(ctx, src)
	case FormatNTriples:
		if err := rdf.WriteNTriples(ts, &buf); err != nil {
			return nil, err
		}
	case FormatJSONLD:
		if err := rdf.WriteJSONLD(ts, &buf); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := rdf.WriteJSON(ts, &buf); err != nil {
			return nil, err
		}
	default:
		return nil, ValidateFormat(format)
	}
	return buf.Bytes(), nil
}
