package pipeline

import (
	"encoding/json"

	"github.com/zero-day-ai/moviequery/graphstore"
	"github.com/zero-day-ai/moviequery/llm"
)

// Rows is the outcome of executing a query: either a list of records, which
// may be empty, or an execution error message. The zero value is an empty
// successful result.
type Rows struct {
	records []graphstore.Record
	errMsg  string
	failed  bool
}

// RowsOf wraps records as a successful result.
func RowsOf(records []graphstore.Record) Rows {
	return Rows{records: records}
}

// FailedRows wraps an execution error message.
func FailedRows(msg string) Rows {
	return Rows{errMsg: msg, failed: true}
}

// Records returns the rows as they are presented to the answer model. It is
// never nil. The error variant yields exactly one row: {"error": msg}.
func (r Rows) Records() []graphstore.Record {
	if r.failed {
		return []graphstore.Record{{"error": r.errMsg}}
	}
	if r.records == nil {
		return []graphstore.Record{}
	}
	return r.records
}

// Err returns the execution error message and whether the rows carry one.
func (r Rows) Err() (string, bool) {
	return r.errMsg, r.failed
}

// Len returns the number of data rows. The error variant has none.
func (r Rows) Len() int {
	if r.failed {
		return 0
	}
	return len(r.records)
}

// MarshalJSON encodes the rows as the list returned by Records.
func (r Rows) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Records())
}

// State is the value threaded through the pipeline. Each stage reads it and
// returns an Update; the orchestrator merges updates into a fresh State.
type State struct {
	// Question is the user's question, set once at creation.
	Question string `json:"question"`

	// Schema is the introspected schema summary, or empty when unavailable.
	Schema string `json:"schema"`

	// Query is the synthesized Cypher statement. It may be empty.
	Query string `json:"query"`

	// Rows holds the execution outcome.
	Rows Rows `json:"rows"`

	// Answer is the final natural-language reply.
	Answer string `json:"answer"`

	// Usage accumulates token usage across every model call of the invocation.
	Usage llm.TokenUsage `json:"usage"`
}

// Update carries the fields a stage computed. Nil fields are left untouched
// by Merge. Usage is added to the running total.
type Update struct {
	Schema *string
	Query  *string
	Rows   *Rows
	Answer *string
	Usage  llm.TokenUsage
}

// Merge returns a copy of s with u applied. s is not modified.
func (s State) Merge(u Update) State {
	next := s
	if u.Schema != nil {
		next.Schema = *u.Schema
	}
	if u.Query != nil {
		next.Query = *u.Query
	}
	if u.Rows != nil {
		next.Rows = *u.Rows
	}
	if u.Answer != nil {
		next.Answer = *u.Answer
	}
	next.Usage = s.Usage.Add(u.Usage)
	return next
}
