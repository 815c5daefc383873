// Package schema describes entity kinds and their attributes.
//
// # Overview
//
// A [Schema] is the declarative contract every other stage of the pipeline
// reads from: the JSON loader uses it to decide how to read each attribute,
// the integrity checker uses it to find references, and the RDF exporter uses
// it to order and classify triples.
//
// Each attribute carries one [Tag]:
//
//   - [TagKey] (@): the attribute whose value identifies the entity
//   - [TagRequired] (!): a scalar that must be present
//   - [TagOptional] (?): a scalar that may be absent
//   - [TagMulti] (*): an ordered list of references to entities of another kind
//
// Every kind has exactly one key attribute. A schema is immutable once built
// and is shared by pointer.
//
// # Sources
//
// Schemas are usually loaded from a document mapping each kind to an ordered
// list of attribute specs of the form "<tag><name>[:<valueType>]":
//
//	person:
//	  - "@id"
//	  - "!name"
//	  - "?email"
//	  - "*friends:person"
//
// YAML, TOML and JSON documents are accepted; see [Parse] and [LoadFile]. Kind
// and attribute declaration order is preserved in every format.
package schema
