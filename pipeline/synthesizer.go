package pipeline

import (
	"context"
	"log/slog"

	"github.com/zero-day-ai/moviequery/cypher"
	"github.com/zero-day-ai/moviequery/llm"
)

// QuerySynthesizer turns a question into a Cypher statement with one model call.
type QuerySynthesizer struct {
	client llm.Client
	slot   llm.SlotDefinition
	logger *slog.Logger
}

// NewQuerySynthesizer creates a QuerySynthesizer that calls client with the
// model and temperature of slot.
func NewQuerySynthesizer(client llm.Client, slot llm.SlotDefinition, logger *slog.Logger) *QuerySynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuerySynthesizer{client: client, slot: slot, logger: logger}
}

// Synthesize asks the model for a query over schema and extracts the statement
// from its reply. The returned query is empty when nothing usable came back.
// Errors are only returned for a failed model call.
func (s *QuerySynthesizer) Synthesize(ctx context.Context, question, schema string) (string, llm.TokenUsage, error) {
	req := s.slot.Request(
		llm.SystemMessage(synthesisInstruction),
		llm.UserMessage(synthesisPrompt(question, schema)),
	)

	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return "", llm.TokenUsage{}, err
	}

	if resp.Truncated() {
		s.logger.Warn("synthesis output hit the token limit, query may be incomplete",
			"model", s.slot.Model)
	}

	query := cypher.Extract(resp.Content)
	s.logger.Debug("query synthesized",
		"model", s.slot.Model,
		"query", query,
		"raw_length", len(resp.Content))

	return query, resp.Usage, nil
}
