package llm

// Finish reasons reported by OpenAI-compatible providers.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// CompletionRequest is one non-streaming chat completion call.
type CompletionRequest struct {
	// Model is the model identifier. Empty uses the client's default model.
	Model string

	Messages []Message

	// Temperature is sent even when zero; nil leaves the provider default.
	Temperature *float64

	// MaxTokens caps the completion length; nil leaves the provider default.
	MaxTokens *int
}

// CompletionResponse is the provider's answer to a CompletionRequest.
type CompletionResponse struct {
	// Content is the raw generated text, reasoning traces included.
	Content string

	// FinishReason is FinishStop, FinishLength or a provider-specific value.
	FinishReason string

	Usage TokenUsage
}

// Truncated reports whether generation stopped at the token limit, which for
// query synthesis usually means an incomplete statement.
func (r *CompletionResponse) Truncated() bool {
	return r.FinishReason == FinishLength
}

// TokenUsage counts the tokens consumed by one or more calls.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// IsZero reports whether no tokens were counted, as happens with providers
// that omit usage metadata.
func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// CompletionOption adjusts a CompletionRequest.
type CompletionOption func(*CompletionRequest)

// WithModel selects the model.
func WithModel(model string) CompletionOption {
	return func(r *CompletionRequest) { r.Model = model }
}

// WithTemperature sets the sampling temperature. Zero is sent explicitly.
func WithTemperature(t float64) CompletionOption {
	return func(r *CompletionRequest) { r.Temperature = &t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CompletionOption {
	return func(r *CompletionRequest) { r.MaxTokens = &n }
}

// NewCompletionRequest builds a request from messages and options.
func NewCompletionRequest(messages []Message, opts ...CompletionOption) *CompletionRequest {
	req := &CompletionRequest{Messages: messages}
	for _, opt := range opts {
		opt(req)
	}
	return req
}
