package graphstore

import (
	"context"
	"sync"
)

// scriptedStore answers queries from a fixed script and records every call.
type scriptedStore struct {
	mu     sync.Mutex
	rows   map[string][]Record
	errs   map[string]error
	calls  []string
	opened int
	closed int
}

func newScriptedStore() *scriptedStore {
	return &scriptedStore{
		rows: make(map[string][]Record),
		errs: make(map[string]error),
	}
}

func (s *scriptedStore) on(query string, rows ...Record) *scriptedStore {
	s.rows[query] = rows
	return s
}

func (s *scriptedStore) fail(query string, err error) *scriptedStore {
	s.errs[query] = err
	return s
}

func (s *scriptedStore) Run(_ context.Context, query string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opened++
	defer func() { s.closed++ }()

	s.calls = append(s.calls, query)
	if err, ok := s.errs[query]; ok {
		return nil, err
	}
	if rows, ok := s.rows[query]; ok {
		return rows, nil
	}
	return nil, errUnknownProcedure
}

type procedureError string

func (e procedureError) Error() string { return string(e) }

const errUnknownProcedure = procedureError("There is no procedure with that name")
