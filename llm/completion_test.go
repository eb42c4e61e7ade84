package llm

import "testing"

func TestNewCompletionRequest(t *testing.T) {
	messages := []Message{UserMessage("Hello")}

	req := NewCompletionRequest(messages,
		WithModel("DeepSeek-V3.1"),
		WithTemperature(0.2),
		WithMaxTokens(512),
	)

	if req.Model != "DeepSeek-V3.1" {
		t.Errorf("Model = %q, want DeepSeek-V3.1", req.Model)
	}
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", req.Temperature)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 512 {
		t.Errorf("MaxTokens = %v, want 512", req.MaxTokens)
	}
	if len(req.Messages) != 1 {
		t.Errorf("len(Messages) = %d, want 1", len(req.Messages))
	}
}

func TestWithTemperature_Zero(t *testing.T) {
	req := NewCompletionRequest(nil, WithTemperature(0))

	if req.Temperature == nil {
		t.Fatal("zero temperature must still be sent")
	}
	if *req.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", *req.Temperature)
	}
}

func TestCompletionResponse_Truncated(t *testing.T) {
	tests := []struct {
		reason string
		want   bool
	}{
		{reason: FinishStop, want: false},
		{reason: FinishLength, want: true},
		{reason: "", want: false},
		{reason: "content_filter", want: false},
	}
	for _, tt := range tests {
		resp := &CompletionResponse{Content: "MATCH (m:Movie)", FinishReason: tt.reason}
		if got := resp.Truncated(); got != tt.want {
			t.Errorf("Truncated() with %q = %v, want %v", tt.reason, got, tt.want)
		}
	}
}

func TestTokenUsage_IsZero(t *testing.T) {
	if !(TokenUsage{}).IsZero() {
		t.Error("zero value reported non-zero")
	}
	if (TokenUsage{OutputTokens: 1}).IsZero() {
		t.Error("usage with output tokens reported zero")
	}
}

func TestTokenUsage_Add(t *testing.T) {
	a := TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	b := TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}

	want := TokenUsage{InputTokens: 11, OutputTokens: 7, TotalTokens: 18}
	if got := a.Add(b); got != want {
		t.Errorf("Add() = %v, want %v", got, want)
	}
}
