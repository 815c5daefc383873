// Package integrity verifies that every reference inside an [ergraph.Graph]
// points at an existing entity.
//
// The checker never aborts: it returns every unresolved reference so the
// caller can decide whether they are fatal.
package integrity

import (
	"errors"
	"fmt"

	"github.com/matzehuels/ergraph/pkg/ergraph"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/schema"
)

// UnresolvedReference describes one reference whose target does not exist.
type UnresolvedReference struct {
	FromKind  string
	FromID    string
	Attribute string
	ToKind    string
	ToID      string
}

func (u UnresolvedReference) String() string {
	return fmt.Sprintf("%s %q: attribute %q references missing %s %q", u.FromKind, u.FromID, u.Attribute, u.ToKind, u.ToID)
}

// Report is the outcome of [Check].
type Report struct {
	Unresolved []UnresolvedReference
	Entities   int
	References int
}

// OK reports whether every reference resolved.
func (r Report) OK() bool { return len(r.Unresolved) == 0 }

// Err returns nil for a clean report, otherwise an UNRESOLVED_REFERENCE error
// listing every finding.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Unresolved))
	for i, u := range r.Unresolved {
		errs[i] = errors.New(u.String())
	}
	return ergerrors.Wrap(ergerrors.ErrCodeUnresolved, errors.Join(errs...), "%d unresolved reference(s)", len(r.Unresolved))
}

// Check walks every multi attribute of every entity, in kind order, then id
// insertion order, then attribute declaration order.
func Check(g *ergraph.Graph) Report {
	var rep Report
	s := g.Schema()
	for _, kind := range g.Kinds() {
		attrs, _ := s.AttributesOf(kind)
		for _, id := range g.IDs(kind) {
			rec, _ := g.Get(kind, id)
			rep.Entities++
			for _, attr := range attrs {
				if attr.Tag != schema.TagMulti {
					continue
				}
				for _, ref := range rec.References(attr.Name) {
					rep.References++
					if g.Resolve(ref) {
						continue
					}
					rep.Unresolved = append(rep.Unresolved, UnresolvedReference{
						FromKind:  kind,
						FromID:    id,
						Attribute: attr.Name,
						ToKind:    ref.Kind,
						ToID:      ref.ID,
					})
				}
			}
		}
	}
	return rep
}
