package graphstore

import "context"

// Record is one result row keyed by column name.
type Record map[string]any

// Store runs a Cypher statement and returns its rows in order.
//
// Implementations acquire whatever connection they need at the start of Run
// and release it before returning, on success and on error. A Store must be
// safe for concurrent use.
type Store interface {
	Run(ctx context.Context, query string) ([]Record, error)
}

// StoreFunc adapts a plain function to the Store interface.
type StoreFunc func(ctx context.Context, query string) ([]Record, error)

// Run calls f(ctx, query).
func (f StoreFunc) Run(ctx context.Context, query string) ([]Record, error) {
	return f(ctx, query)
}
