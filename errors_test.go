package moviequery

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestSentinelErrors verifies that all sentinel errors are defined correctly.
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "ErrEmptyQuestion", err: ErrEmptyQuestion, want: "question is required"},
		{name: "ErrEmptyPrompt", err: ErrEmptyPrompt, want: "prompt must be a non-empty string"},
		{name: "ErrMissingCredentials", err: ErrMissingCredentials, want: "missing credentials"},
		{name: "ErrInvalidConfig", err: ErrInvalidConfig, want: "invalid configuration"},
		{name: "ErrExecutionFailed", err: ErrExecutionFailed, want: "execution failed"},
		{name: "ErrNoImage", err: ErrNoImage, want: "no image data returned by the model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("sentinel error %s is nil", tt.name)
			}
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("error message = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestErrorError verifies the Error() method formatting.
func TestErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without underlying error",
			err:  &Error{Op: "Pipeline.Run", Kind: KindValidation},
			want: "moviequery: Pipeline.Run: validation",
		},
		{
			name: "with underlying error",
			err:  &Error{Op: "Pipeline.Run", Kind: KindValidation, Err: ErrEmptyQuestion},
			want: "moviequery: Pipeline.Run (validation): question is required",
		},
		{
			name: "with context",
			err: &Error{
				Op:      "Pipeline.reply",
				Kind:    KindExecution,
				Err:     errors.New("status 503"),
				Context: map[string]any{"model": "DeepSeek-V3.1"},
			},
			want: "moviequery: Pipeline.reply (execution): status 503 [context: map[model:DeepSeek-V3.1]]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestErrorUnwrap verifies errors.Is reaches wrapped sentinels.
func TestErrorUnwrap(t *testing.T) {
	err := NewValidationError("Pipeline.Run", ErrEmptyQuestion)

	if got := err.Unwrap(); got != ErrEmptyQuestion {
		t.Errorf("Unwrap() = %v, want %v", got, ErrEmptyQuestion)
	}
	if !errors.Is(err, ErrEmptyQuestion) {
		t.Error("errors.Is should find ErrEmptyQuestion")
	}

	wrapped := fmt.Errorf("handle request: %w", err)
	if !errors.Is(wrapped, ErrEmptyQuestion) {
		t.Error("errors.Is should find ErrEmptyQuestion through fmt wrapping")
	}
}

// TestErrorIs verifies kind and operation matching.
func TestErrorIs(t *testing.T) {
	err := NewExecutionError("Pipeline.reply", ErrExecutionFailed)

	tests := []struct {
		name   string
		target error
		want   bool
	}{
		{name: "same kind", target: &Error{Kind: KindExecution}, want: true},
		{name: "same kind and op", target: &Error{Kind: KindExecution, Op: "Pipeline.reply"}, want: true},
		{name: "same kind other op", target: &Error{Kind: KindExecution, Op: "Pipeline.Run"}, want: false},
		{name: "other kind", target: &Error{Kind: KindNetwork}, want: false},
		{name: "wrapped sentinel", target: ErrExecutionFailed, want: true},
		{name: "unrelated sentinel", target: ErrEmptyPrompt, want: false},
		{name: "nil target", target: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := err.Is(tt.target); got != tt.want {
				t.Errorf("Is(%v) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

// TestErrorAs verifies errors.As extracts the structured error.
func TestErrorAs(t *testing.T) {
	err := fmt.Errorf("serve: %w", NewNetworkError("Server.Serve", errors.New("address already in use")))

	var target *Error
	if !errors.As(err, &target) {
		t.Fatal("errors.As should find *Error")
	}
	if target.Op != "Server.Serve" || target.Kind != KindNetwork {
		t.Errorf("got Op=%q Kind=%q", target.Op, target.Kind)
	}
}

// TestErrorWithContext verifies the original error is not mutated.
func TestErrorWithContext(t *testing.T) {
	original := NewExecutionError("Pipeline.reply", ErrExecutionFailed).
		WithContext(map[string]any{"model": "DeepSeek-V3.1"})

	extended := original.WithContext(map[string]any{"stage": "reply"})

	if len(original.Context) != 1 {
		t.Errorf("original context modified: %v", original.Context)
	}
	if extended.Context["model"] != "DeepSeek-V3.1" || extended.Context["stage"] != "reply" {
		t.Errorf("extended context = %v", extended.Context)
	}
	if !errors.Is(extended, ErrExecutionFailed) {
		t.Error("WithContext should keep the wrapped error")
	}
}

// TestNewErrorFunctions verifies each constructor sets its kind.
func TestNewErrorFunctions(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name string
		err  *Error
		kind string
	}{
		{name: "NewNotFoundError", err: NewNotFoundError("op", cause), kind: KindNotFound},
		{name: "NewValidationError", err: NewValidationError("op", cause), kind: KindValidation},
		{name: "NewExecutionError", err: NewExecutionError("op", cause), kind: KindExecution},
		{name: "NewConfigurationError", err: NewConfigurationError("op", cause), kind: KindConfiguration},
		{name: "NewNetworkError", err: NewNetworkError("op", cause), kind: KindNetwork},
		{name: "NewInternalError", err: NewInternalError("op", cause), kind: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.kind)
			}
			if tt.err.Op != "op" || tt.err.Err != cause {
				t.Errorf("unexpected error %+v", tt.err)
			}
			if !IsKind(tt.err, tt.kind) {
				t.Errorf("IsKind(%q) = false", tt.kind)
			}
		})
	}
}

// TestIsKind verifies kind lookup through wrapping.
func TestIsKind(t *testing.T) {
	err := fmt.Errorf("ask: %w", NewConfigurationError("config.Validate", ErrMissingCredentials))

	if !IsKind(err, KindConfiguration) {
		t.Error("IsKind should see through fmt wrapping")
	}
	if IsKind(err, KindNetwork) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsKind(errors.New("plain"), KindConfiguration) {
		t.Error("IsKind matched a plain error")
	}
	if !strings.Contains(err.Error(), "missing credentials") {
		t.Errorf("message lost the cause: %q", err.Error())
	}
}
