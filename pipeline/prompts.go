package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const synthesisInstruction = "You are an expert in Neo4j Cypher. " +
	"Use ONLY the node labels and relationship types explicitly listed in the provided schema. " +
	"Do not invent labels or relationship types. If a label is not listed, do not use it. " +
	"Return ONLY a single valid Cypher query. No commentary. No markdown fences."

const replyInstruction = "You answer the user's question using ONLY the provided Neo4j query results. " +
	"If the results are empty, explain that you don't have hard data in the database and provide " +
	"a result to the best of your knowledge. Don't say that you don't have enough data and cannot " +
	"confirm anything, just answer to the best of your ability and comment that you could refine " +
	"your answer given more data. Be concise and precise. If there was an execution error, surface " +
	"it succinctly and politely."

// unknownSchema stands in for the summary when introspection produced nothing.
const unknownSchema = "Unknown"

func synthesisPrompt(question, schema string) string {
	if strings.TrimSpace(schema) == "" {
		schema = unknownSchema
	}
	return fmt.Sprintf("Schema: %s\n\nQuestion: %s", schema, question)
}

func replyPrompt(question string, rows Rows) (string, error) {
	data, err := indentJSON(rows)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Question: %s\n\nData (JSON):\n%s", question, data), nil
}

// indentJSON encodes v with two-space indentation. Non-ASCII text and HTML
// characters are written as-is.
func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
