package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/moviequery"
)

type fakeGenerator struct {
	input []*schema.Message
	opts  *model.Options
	reply *schema.Message
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.input = input
	f.opts = model.GetCommonOptions(nil, opts...)
	return f.reply, f.err
}

func TestEinoClient_Complete(t *testing.T) {
	gen := &fakeGenerator{
		reply: &schema.Message{
			Role:    schema.Assistant,
			Content: "MATCH (m:Movie) RETURN m.title",
			ResponseMeta: &schema.ResponseMeta{
				FinishReason: "stop",
				Usage:        &schema.TokenUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20},
			},
		},
	}
	client := NewEinoClient(gen)

	slot := SlotDefinition{Name: SlotSynthesis, Model: "Meta-Llama-3.3-70B-Instruct", Temperature: 0}
	resp, err := client.Complete(context.Background(), slot.Request(SystemMessage("sys"), UserMessage("q")))
	require.NoError(t, err)

	assert.Equal(t, "MATCH (m:Movie) RETURN m.title", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, TokenUsage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20}, resp.Usage)

	require.Len(t, gen.input, 2)
	assert.Equal(t, schema.System, gen.input[0].Role)
	assert.Equal(t, schema.User, gen.input[1].Role)

	require.NotNil(t, gen.opts.Model)
	assert.Equal(t, "Meta-Llama-3.3-70B-Instruct", *gen.opts.Model)
	require.NotNil(t, gen.opts.Temperature)
	assert.Equal(t, float32(0), *gen.opts.Temperature)
}

func TestEinoClient_CompleteNilMessage(t *testing.T) {
	client := NewEinoClient(&fakeGenerator{})

	resp, err := client.Complete(context.Background(), NewCompletionRequest([]Message{UserMessage("q")}))
	require.NoError(t, err)
	assert.Empty(t, resp.Content)
}

func TestEinoClient_CompleteErrors(t *testing.T) {
	t.Run("no messages", func(t *testing.T) {
		_, err := NewEinoClient(&fakeGenerator{}).Complete(context.Background(), &CompletionRequest{})
		assert.True(t, moviequery.IsKind(err, moviequery.KindValidation))
	})

	t.Run("provider failure", func(t *testing.T) {
		boom := errors.New("503 upstream")
		_, err := NewEinoClient(&fakeGenerator{err: boom}).Complete(context.Background(),
			NewCompletionRequest([]Message{UserMessage("q")}, WithModel("m")))
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.True(t, moviequery.IsKind(err, moviequery.KindExecution))
	})
}

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	_, err := NewOpenAIClient(context.Background(), OpenAIConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, moviequery.ErrMissingCredentials)
	assert.True(t, moviequery.IsKind(err, moviequery.KindConfiguration))
}
