package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/zero-day-ai/moviequery/graphstore"
	"github.com/zero-day-ai/moviequery/llm"
)

const visualizationQuery = "CALL db.schema.visualization()"

// fakeStore answers statements from a fixed table and records every call.
type fakeStore struct {
	mu    sync.Mutex
	rows  map[string][]graphstore.Record
	errs  map[string]error
	calls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows: make(map[string][]graphstore.Record),
		errs: make(map[string]error),
	}
}

func (s *fakeStore) on(query string, rows ...graphstore.Record) *fakeStore {
	s.rows[query] = rows
	return s
}

func (s *fakeStore) fail(query string, err error) *fakeStore {
	s.errs[query] = err
	return s
}

func (s *fakeStore) Run(_ context.Context, query string) ([]graphstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, query)
	if err, ok := s.errs[query]; ok {
		return nil, err
	}
	if rows, ok := s.rows[query]; ok {
		return rows, nil
	}
	return nil, errors.New("there is no procedure with that name")
}

func (s *fakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// fakeModel replies per stage, telling stages apart by their system instruction.
type fakeModel struct {
	mu           sync.Mutex
	synthesis    string
	reply        string
	synthesisErr error
	replyErr     error
	usage        llm.TokenUsage
	requests     []*llm.CompletionRequest
}

func (m *fakeModel) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if isSynthesis(req) {
		if m.synthesisErr != nil {
			return nil, m.synthesisErr
		}
		return &llm.CompletionResponse{Content: m.synthesis, FinishReason: "stop", Usage: m.usage}, nil
	}
	if m.replyErr != nil {
		return nil, m.replyErr
	}
	return &llm.CompletionResponse{Content: m.reply, FinishReason: "stop", Usage: m.usage}, nil
}

func (m *fakeModel) Requests() []*llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.CompletionRequest(nil), m.requests...)
}

func isSynthesis(req *llm.CompletionRequest) bool {
	return len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "expert in Neo4j Cypher")
}

// movieSchemaStore returns a store whose visualization lists Movie, Person and ACTED_IN.
func movieSchemaStore() *fakeStore {
	return newFakeStore().on(visualizationQuery, graphstore.Record{
		"nodes": []any{
			graphstore.Node{Labels: []string{"Movie"}, Props: map[string]any{"name": "Movie"}},
			graphstore.Node{Labels: []string{"Person"}, Props: map[string]any{"name": "Person"}},
		},
		"relationships": []any{
			graphstore.Relationship{Type: "ACTED_IN"},
		},
	})
}
