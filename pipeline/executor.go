package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zero-day-ai/moviequery/cypher"
	"github.com/zero-day-ai/moviequery/graphstore"
)

const emptyQueryMessage = "no query could be synthesized for this question"

// Executor runs synthesized statements against the graph store. It never
// returns an error: every failure is captured in the returned Rows.
type Executor struct {
	store  graphstore.Store
	guard  *cypher.Guard
	logger *slog.Logger
}

// NewExecutor creates an Executor. guard may be nil to run every statement as is.
func NewExecutor(store graphstore.Store, guard *cypher.Guard, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, guard: guard, logger: logger}
}

// Execute runs query and returns its records, or the error variant of Rows
// when the query is empty, refused by the guard, or fails in the store.
// schema is the introspection summary the guard compares references against.
func (e *Executor) Execute(ctx context.Context, query, schema string) Rows {
	if query == "" {
		return FailedRows(emptyQueryMessage)
	}

	if e.guard != nil {
		labels, relTypes := graphstore.ParseSummary(schema)
		vocab := cypher.Vocabulary{Labels: labels, RelationshipTypes: relTypes}
		if err := e.guard.Check(query, vocab); err != nil {
			var rejected *cypher.RejectionError
			if errors.As(err, &rejected) {
				e.logger.Info("query rejected by guard",
					"query", query,
					"labels", rejected.References.Labels,
					"relationship_types", rejected.References.RelationshipTypes)
			} else {
				e.logger.Warn("query guard evaluation failed", "error", err)
			}
			return FailedRows(err.Error())
		}
	}

	records, err := e.store.Run(ctx, query)
	if err != nil {
		e.logger.Warn("query execution failed",
			"query", query,
			"error", err)
		return FailedRows(err.Error())
	}

	return RowsOf(records)
}
