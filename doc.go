// Package moviequery answers natural-language questions about a movie graph.
//
// A question flows through a fixed two-stage pipeline:
//
//	query_db: introspect the graph schema, have a language model write one
//	          Cypher statement, and run it against Neo4j
//	reply:    have a second model phrase the returned rows as an answer
//
// Database failures never abort a run. They travel to the reply stage as a
// single {"error": ...} row so the model can explain that nothing was found.
//
// # Packages
//
//   - graphstore: Neo4j access, value conversion and schema introspection
//   - cypher: statement extraction from model output and the CEL query guard
//   - llm: OpenAI-compatible chat client, slots and token tracking
//   - pipeline: the query_db -> reply state machine
//   - server: HTTP endpoints (/ask-movie-question, /generate-image, /health, /metrics)
//   - queue and queue/worker: Redis-backed asynchronous question answering
//   - imagegen: Gemini image generation
//   - config, health, telemetry: ambient configuration, checks and tracing
//
// # Errors
//
// Operations return *Error values carrying the failing operation and a kind.
// Use errors.Is with the sentinel errors, or IsKind:
//
//	state, err := p.Run(ctx, question)
//	if errors.Is(err, moviequery.ErrEmptyQuestion) {
//		// reject the request
//	}
//	if moviequery.IsKind(err, moviequery.KindExecution) {
//		// a model call failed
//	}
package moviequery
