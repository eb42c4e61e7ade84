// Package cypher handles Cypher text produced by a language model.
//
// Extract recovers one statement from noisy output: reasoning traces,
// markdown fences, headings and commentary are all tolerated.
//
// ScanReferences lists the labels and relationship types a statement names,
// and Guard evaluates a CEL policy over those references and the introspected
// schema so a deployment can refuse statements before they reach the store.
package cypher
