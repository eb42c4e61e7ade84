package llm

import "fmt"

// Well-known slot names used by the question answering pipeline.
const (
	// SlotSynthesis is the slot that turns a question into a Cypher query.
	SlotSynthesis = "synthesis"

	// SlotReply is the slot that phrases the final answer.
	SlotReply = "reply"
)

// SlotDefinition binds a pipeline stage to a model and its sampling settings.
// Slots keep per-stage model selection in configuration instead of code.
type SlotDefinition struct {
	// Name is the unique identifier for this slot.
	Name string `yaml:"name"`

	// Model is the model identifier requested for this slot.
	Model string `yaml:"model"`

	// Temperature is the sampling temperature for this slot (0.0 to 2.0).
	Temperature float64 `yaml:"temperature"`

	// MaxTokens limits the completion length. Zero means provider default.
	MaxTokens int `yaml:"max_tokens,omitempty"`
}

// Validate checks if the slot definition is valid.
func (s *SlotDefinition) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "Name", Message: "slot name cannot be empty"}
	}
	if s.Model == "" {
		return &ValidationError{Field: "Model", Message: fmt.Sprintf("slot %q has no model", s.Name)}
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return &ValidationError{Field: "Temperature", Message: fmt.Sprintf("slot %q temperature %v outside [0, 2]", s.Name, s.Temperature)}
	}
	if s.MaxTokens < 0 {
		return &ValidationError{Field: "MaxTokens", Message: "max tokens cannot be negative"}
	}
	return nil
}

// Options converts the slot into completion options.
func (s SlotDefinition) Options() []CompletionOption {
	opts := []CompletionOption{
		WithModel(s.Model),
		WithTemperature(s.Temperature),
	}
	if s.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(s.MaxTokens))
	}
	return opts
}

// Request builds a completion request for this slot.
func (s SlotDefinition) Request(messages ...Message) *CompletionRequest {
	return NewCompletionRequest(messages, s.Options()...)
}

// ValidationError represents an error in slot validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
