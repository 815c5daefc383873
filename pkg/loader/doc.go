// Package loader reads raw JSON records into an [ergraph.Graph], guided by
// the attribute tags of the graph's schema.
//
// # Input shape
//
// The input is a JSON object whose keys name entity kinds (or tags mapped to
// kinds via [Options.Tags]). Each value is either an array of records or an
// object of records keyed by the entity key:
//
//	{"persons": [{"id": "a", "name": "Alice", "friends": ["b"]}]}
//	{"persons": {"a": {"name": "Alice", "friends": ["b"]}}}
//
// Both forms load to the same graph; in the keyed form the object key is
// injected as the value of the key attribute.
//
// # Tags
//
// Key and required attributes must be present (JSON null counts as absent).
// Optional attributes are copied when present and otherwise left out of the
// record. Multi attributes must be lists; each element is a bare id string or
// an object carrying the id in its name field and, optionally, the referenced
// kind in its "type" field.
//
// # Ids
//
// With [IDVerbatim] the key value is the entity id. With [IDComposite] the id
// is lower(kind) + "/" + lower(key); references are rewritten with the same
// scheme so they keep pointing at the right entities.
//
// The loader does not check that references resolve; see package integrity.
package loader
