package rdf

import "strings"

// ObjectKind distinguishes literal objects from resources. Values other than
// the three constants can be represented so that readers do not lose them;
// consumers decide how to treat them.
type ObjectKind string

const (
	ObjectLiteral ObjectKind = "literal"
	ObjectURI     ObjectKind = "uri"
	ObjectBNode   ObjectKind = "bnode"
)

// Valid reports whether k is one of the known object kinds.
func (k ObjectKind) Valid() bool {
	switch k {
	case ObjectLiteral, ObjectURI, ObjectBNode:
		return true
	}
	return false
}

// Triple is one subject-predicate-object statement. Subject and predicate are
// URIs (or blank node labels "_:x" for subjects); Object is interpreted
// according to ObjectKind.
type Triple struct {
	Subject    string
	Predicate  string
	Object     string
	ObjectKind ObjectKind
}

// IsBlank reports whether term is a blank node label.
func IsBlank(term string) bool { return strings.HasPrefix(term, "_:") }
