// Package ergraph provides the typed entity-relation graph built from JSON
// input according to a [schema.Schema].
//
// A [Graph] maps each entity kind to its entities, keyed by id. Ids are kept
// in insertion order so every walk over the graph is deterministic:
//
//	g := ergraph.New(s)
//	_ = g.Add("person", "a", ergraph.Record{"id": "a", "name": "Alice"})
//	for _, id := range g.IDs("person") {
//	    rec, _ := g.Get("person", id)
//	    ...
//	}
//
// References between entities are logical pointers ([Reference]). They are
// never resolved on insertion; a reference to an entity that does not exist
// is detected later by the integrity checker.
//
// Once checked, a graph is frozen with [Graph.Freeze] and handed to the
// exporters read-only.
package ergraph
