// Package graphstore is the graph database boundary of the question answering
// pipeline.
//
// Store is the only contract the pipeline depends on: run one Cypher statement,
// get ordered rows back or an error. Neo4jStore implements it on the official
// Neo4j driver, borrowing a session per call and converting driver values to
// the package's Node, Relationship and Path types so results encode cleanly to
// JSON.
//
// Introspector summarizes the labels and relationship types a store holds. It
// tries schema visualization first and falls back to the label and
// relationship type procedures; when everything fails it returns "" so the
// pipeline can proceed without a schema.
package graphstore
