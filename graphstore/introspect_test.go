package graphstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntrospector_Visualization(t *testing.T) {
	store := newScriptedStore().on(visualizationQuery, Record{
		"nodes": []any{
			Node{Labels: []string{"Person"}, Props: map[string]any{"name": "Person"}},
			Node{Labels: []string{"Movie"}, Props: map[string]any{"name": "Movie"}},
			Node{Labels: []string{"Person"}},
		},
		"relationships": []any{
			Relationship{Type: "DIRECTED"},
			Relationship{Type: "ACTED_IN"},
			Relationship{Type: "ACTED_IN"},
		},
	})

	got := NewIntrospector(store, nil).Introspect(context.Background())

	assert.Equal(t, "Node labels: Movie, Person; Relationship types: ACTED_IN, DIRECTED", got)
	assert.Equal(t, []string{visualizationQuery}, store.calls)
}

func TestIntrospector_VisualizationNameProperty(t *testing.T) {
	store := newScriptedStore().on(visualizationQuery, Record{
		"nodes":         []any{Node{Props: map[string]any{"name": "Genre"}}},
		"relationships": []any{},
	})

	got := NewIntrospector(store, nil).Introspect(context.Background())

	assert.Equal(t, "Node labels: Genre", got)
}

func TestIntrospector_FallbackToProcedures(t *testing.T) {
	store := newScriptedStore().
		fail(visualizationQuery, errors.New("procedure not found")).
		on(labelsQuery, Record{"label": "Person"}, Record{"label": "Movie"}).
		on(relTypesProcedure, Record{"relationshipType": "REVIEWED"}, Record{"relationshipType": "ACTED_IN"})

	got := NewIntrospector(store, nil).Introspect(context.Background())

	assert.Equal(t, "Node labels: Movie, Person; Relationship types: ACTED_IN, REVIEWED", got)
	assert.Equal(t, []string{visualizationQuery, labelsQuery, relTypesProcedure}, store.calls)
}

func TestIntrospector_SecondRelationshipDialect(t *testing.T) {
	store := newScriptedStore().
		fail(visualizationQuery, errors.New("procedure not found")).
		on(labelsQuery, Record{"label": "Movie"}).
		fail(relTypesProcedure, errors.New("procedure not found")).
		on(relTypesShowCommand, Record{"name": "PRODUCED"})

	got := NewIntrospector(store, nil).Introspect(context.Background())

	assert.Equal(t, "Node labels: Movie; Relationship types: PRODUCED", got)
	assert.Equal(t, []string{visualizationQuery, labelsQuery, relTypesProcedure, relTypesShowCommand}, store.calls)
}

func TestIntrospector_NoRelationshipTypes(t *testing.T) {
	store := newScriptedStore().
		fail(visualizationQuery, errors.New("procedure not found")).
		on(labelsQuery, Record{"label": "Movie"}).
		fail(relTypesProcedure, errors.New("no")).
		fail(relTypesShowCommand, errors.New("no"))

	got := NewIntrospector(store, nil).Introspect(context.Background())

	assert.Equal(t, "Node labels: Movie", got)
}

func TestIntrospector_EmptyVisualizationFallsThrough(t *testing.T) {
	store := newScriptedStore().
		on(visualizationQuery).
		on(labelsQuery, Record{"label": "Movie"}).
		on(relTypesProcedure)

	got := NewIntrospector(store, nil).Introspect(context.Background())

	assert.Equal(t, "Node labels: Movie", got)
}

func TestIntrospector_TotalFailure(t *testing.T) {
	tests := []struct {
		name  string
		store *scriptedStore
	}{
		{
			name: "every statement fails",
			store: newScriptedStore().
				fail(visualizationQuery, errors.New("connection refused")).
				fail(labelsQuery, errors.New("connection refused")),
		},
		{
			name: "empty database",
			store: newScriptedStore().
				on(visualizationQuery, Record{"nodes": []any{}, "relationships": []any{}}).
				on(labelsQuery).
				on(relTypesProcedure),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewIntrospector(tt.store, nil).Introspect(context.Background())

			assert.Equal(t, "", got)
			assert.Contains(t, tt.store.calls, labelsQuery, "fallback must be attempted")
			assert.Equal(t, tt.store.opened, tt.store.closed)
		})
	}
}

func TestIntrospector_UnexpectedShapes(t *testing.T) {
	store := newScriptedStore().on(visualizationQuery, Record{
		"nodes":         []any{42, map[string]any{"labels": []any{"Studio"}}},
		"relationships": "not a list",
	})

	got := NewIntrospector(store, nil).Introspect(context.Background())

	assert.Equal(t, "Node labels: ?, Studio", got)
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name       string
		summary    string
		wantLabels []string
		wantRels   []string
	}{
		{"full", "Node labels: Movie, Person; Relationship types: ACTED_IN, DIRECTED", []string{"Movie", "Person"}, []string{"ACTED_IN", "DIRECTED"}},
		{"labels only", "Node labels: Movie", []string{"Movie"}, nil},
		{"unknown entries dropped", "Node labels: ?, Movie; Relationship types: ?", []string{"Movie"}, nil},
		{"empty", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, rels := ParseSummary(tt.summary)
			assert.Equal(t, tt.wantLabels, labels)
			assert.Equal(t, tt.wantRels, rels)
		})
	}
}
