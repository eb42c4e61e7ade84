package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/zero-day-ai/moviequery/llm"
)

// AnswerSynthesizer phrases the final reply from the question and the rows.
type AnswerSynthesizer struct {
	client llm.Client
	slot   llm.SlotDefinition
	logger *slog.Logger
}

// NewAnswerSynthesizer creates an AnswerSynthesizer that calls client with the
// model and temperature of slot.
func NewAnswerSynthesizer(client llm.Client, slot llm.SlotDefinition, logger *slog.Logger) *AnswerSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerSynthesizer{client: client, slot: slot, logger: logger}
}

// Answer returns the model's reply with reasoning blocks removed and
// surrounding whitespace trimmed.
func (a *AnswerSynthesizer) Answer(ctx context.Context, question string, rows Rows) (string, llm.TokenUsage, error) {
	prompt, err := replyPrompt(question, rows)
	if err != nil {
		return "", llm.TokenUsage{}, err
	}

	req := a.slot.Request(
		llm.SystemMessage(replyInstruction),
		llm.UserMessage(prompt),
	)

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return "", llm.TokenUsage{}, err
	}

	answer := strings.TrimSpace(llm.StripReasoning(resp.Content))
	a.logger.Debug("answer synthesized",
		"model", a.slot.Model,
		"rows", rows.Len(),
		"answer_length", len(answer))

	return answer, resp.Usage, nil
}
