package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zero-day-ai/moviequery"
)

// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
const DefaultBaseURL = "https://api.sambanova.ai/v1/"

// ChatGenerator is the subset of an eino chat model the client needs.
// *openai.ChatModel satisfies it.
type ChatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// OpenAIConfig configures an OpenAI-compatible chat completion client.
type OpenAIConfig struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey authenticates against the provider. Required.
	APIKey string

	// DefaultModel is used for requests that do not name a model.
	DefaultModel string

	// Timeout bounds a single HTTP round trip. Zero leaves the provider default.
	Timeout time.Duration
}

// EinoClient implements Client on top of an eino chat model.
type EinoClient struct {
	gen ChatGenerator
}

// NewEinoClient wraps an existing eino chat model.
func NewEinoClient(gen ChatGenerator) *EinoClient {
	return &EinoClient{gen: gen}
}

// NewOpenAIClient builds a Client for any OpenAI-compatible endpoint.
// Credentials are validated here so a misconfigured process fails at startup.
func NewOpenAIClient(ctx context.Context, cfg OpenAIConfig) (*EinoClient, error) {
	const op = "llm.NewOpenAIClient"

	if cfg.APIKey == "" {
		return nil, moviequery.NewConfigurationError(op, fmt.Errorf("%w: language model API key is not set", moviequery.ErrMissingCredentials))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.DefaultModel,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, moviequery.NewConfigurationError(op, fmt.Errorf("create chat model: %w", err))
	}

	return NewEinoClient(chatModel), nil
}

// Complete sends the request as a single non-streaming generation.
func (c *EinoClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, moviequery.NewValidationError("EinoClient.Complete", fmt.Errorf("completion request has no messages"))
	}

	msg, err := c.gen.Generate(ctx, toSchemaMessages(req.Messages), generateOptions(req)...)
	if err != nil {
		return nil, moviequery.NewExecutionError("EinoClient.Complete", err).
			WithContext(map[string]any{"model": req.Model})
	}

	return fromSchemaMessage(msg), nil
}

func generateOptions(req *CompletionRequest) []model.Option {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	if req.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*req.MaxTokens))
	}
	return opts
}

func toSchemaMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func fromSchemaMessage(msg *schema.Message) *CompletionResponse {
	resp := &CompletionResponse{}
	if msg == nil {
		return resp
	}

	resp.Content = msg.Content
	if meta := msg.ResponseMeta; meta != nil {
		resp.FinishReason = meta.FinishReason
		if meta.Usage != nil {
			resp.Usage = TokenUsage{
				InputTokens:  meta.Usage.PromptTokens,
				OutputTokens: meta.Usage.CompletionTokens,
				TotalTokens:  meta.Usage.TotalTokens,
			}
		}
	}
	return resp
}
