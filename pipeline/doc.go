// Package pipeline answers natural-language movie questions in two stages.
//
// The query_db stage introspects the graph schema, asks a language model to
// translate the question into a Cypher query and executes it. The reply stage
// asks a second model to phrase an answer from the resulting rows. Failures in
// the first stage are captured as data in the State so the reply stage can
// still respond.
//
// Basic usage:
//
//	p, err := pipeline.New(store, client, pipeline.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	answer, err := p.GenerateText(ctx, "Who acted in The Matrix?")
package pipeline
