package graphstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Schema inspection statements, in the order they are tried.
const (
	visualizationQuery   = "CALL db.schema.visualization()"
	labelsQuery          = "CALL db.labels()"
	relTypesProcedure    = "CALL db.relationshipTypes()"
	relTypesShowCommand  = "SHOW RELATIONSHIP TYPES"
	unknownSchemaElement = "?"
)

var errNoSchema = errors.New("schema inspection returned nothing")

// relTypeDialects lists the statements that can enumerate relationship types,
// most widely supported first. The first one that succeeds wins.
var relTypeDialects = []string{relTypesProcedure, relTypesShowCommand}

// relTypeColumns are the column names the dialects above report the type under.
var relTypeColumns = []string{"relationshipType", "name", "type"}

// attempt is one tier of the introspection fallback chain.
type attempt struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// Introspector produces a compact, deterministic summary of the labels and
// relationship types present in a graph store.
type Introspector struct {
	store  Store
	logger *slog.Logger
}

// NewIntrospector creates an Introspector over store. A nil logger uses slog.Default().
func NewIntrospector(store Store, logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Introspector{store: store, logger: logger}
}

// Introspect returns "Node labels: A, B; Relationship types: X, Y" or "" when
// every tier fails. It never returns an error and never panics on odd rows.
func (i *Introspector) Introspect(ctx context.Context) string {
	for _, a := range i.attempts() {
		summary, err := a.run(ctx)
		if err != nil {
			i.logger.Debug("schema introspection attempt failed",
				"attempt", a.name,
				"error", err)
			continue
		}
		return summary
	}

	i.logger.Warn("schema introspection unavailable, continuing without schema")
	return ""
}

func (i *Introspector) attempts() []attempt {
	return []attempt{
		{name: "visualization", run: i.fromVisualization},
		{name: "procedures", run: i.fromProcedures},
	}
}

func (i *Introspector) fromVisualization(ctx context.Context) (string, error) {
	rows, err := i.store.Run(ctx, visualizationQuery)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errNoSchema
	}

	var labels, relTypes []string
	for _, n := range asSlice(rows[0]["nodes"]) {
		labels = append(labels, nodeLabel(n))
	}
	for _, r := range asSlice(rows[0]["relationships"]) {
		relTypes = append(relTypes, relationshipType(r))
	}

	return formatSummary(labels, relTypes)
}

func (i *Introspector) fromProcedures(ctx context.Context) (string, error) {
	labelRows, err := i.store.Run(ctx, labelsQuery)
	if err != nil {
		return "", err
	}

	labels := make([]string, 0, len(labelRows))
	for _, row := range labelRows {
		labels = append(labels, firstString(row, "label"))
	}

	var relTypes []string
	for _, query := range relTypeDialects {
		relRows, err := i.store.Run(ctx, query)
		if err != nil {
			i.logger.Debug("relationship type dialect failed",
				"query", query,
				"error", err)
			continue
		}
		for _, row := range relRows {
			relTypes = append(relTypes, firstString(row, relTypeColumns...))
		}
		break
	}

	return formatSummary(labels, relTypes)
}

// formatSummary deduplicates and sorts both lists. The relationship section is
// omitted when no types are known.
func formatSummary(labels, relTypes []string) (string, error) {
	labels = sortedUnique(labels)
	relTypes = sortedUnique(relTypes)

	if len(labels) == 0 && len(relTypes) == 0 {
		return "", errNoSchema
	}

	summary := fmt.Sprintf("Node labels: %s", strings.Join(labels, ", "))
	if len(relTypes) > 0 {
		summary += fmt.Sprintf("; Relationship types: %s", strings.Join(relTypes, ", "))
	}
	return summary, nil
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// nodeLabel reads the label of a visualization node. Schema visualization
// returns virtual nodes that carry their label both as a label and as the
// "name" property, so either is accepted.
func nodeLabel(v any) string {
	switch n := v.(type) {
	case Node:
		if l := n.FirstLabel(); l != "" {
			return l
		}
		return firstString(n.Props, "name")
	case map[string]any:
		if labels := asSlice(n["labels"]); len(labels) > 0 {
			if s, ok := labels[0].(string); ok && s != "" {
				return s
			}
		}
		return firstString(n, "name")
	default:
		return unknownSchemaElement
	}
}

func relationshipType(v any) string {
	switch r := v.(type) {
	case Relationship:
		if r.Type != "" {
			return r.Type
		}
		return unknownSchemaElement
	case map[string]any:
		return firstString(r, "type")
	default:
		return unknownSchemaElement
	}
}

// firstString returns the first non-empty string found under keys, or "?".
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return unknownSchemaElement
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []Node:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []Relationship:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	default:
		return nil
	}
}

// ParseSummary splits a summary produced by Introspect back into its label and
// relationship type lists. Unknown ("?") entries are dropped. An empty or
// malformed summary yields two nil slices.
func ParseSummary(summary string) (labels, relTypes []string) {
	for _, section := range strings.Split(summary, ";") {
		section = strings.TrimSpace(section)
		switch {
		case strings.HasPrefix(section, "Node labels:"):
			labels = splitList(strings.TrimPrefix(section, "Node labels:"))
		case strings.HasPrefix(section, "Relationship types:"):
			relTypes = splitList(strings.TrimPrefix(section, "Relationship types:"))
		}
	}
	return labels, relTypes
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" || item == unknownSchemaElement {
			continue
		}
		out = append(out, item)
	}
	return out
}
