// Package rdf holds the RDF triple model shared by the exporter and the
// importer, and the codecs that move triple sets in and out of the process.
//
// A [TripleSet] is an ordered sequence of [Triple] values plus the
// [Configuration] that owns the prefix table and the type predicate. Triples
// are never deduplicated: adding the same statement twice keeps both.
//
// # Codecs
//
//   - [ReadJSON] / [WriteJSON]: {"prefixes", "type_predicate", "triples":
//     [{"s","p","o","o_type"}]}, the interchange shape used by the pipeline
//     and the HTTP API.
//   - [ReadNTriples] / [WriteNTriples]: N-Triples through json-gold's N-Quads
//     serializer.
//   - [WriteJSONLD]: compacted JSON-LD whose @context is the prefix table.
package rdf
