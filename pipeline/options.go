package pipeline

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/moviequery/cypher"
	"github.com/zero-day-ai/moviequery/llm"
)

// Default models and temperatures for the two model-backed stages.
const (
	DefaultSynthesisModel       = "Meta-Llama-3.3-70B-Instruct"
	DefaultSynthesisTemperature = 0.0
	DefaultReplyModel           = "DeepSeek-V3.1"
	DefaultReplyTemperature     = 0.2
)

// DefaultSlots returns the synthesis and reply slots used when none are configured.
func DefaultSlots() (synthesis, reply llm.SlotDefinition) {
	synthesis = llm.SlotDefinition{
		Name:        llm.SlotSynthesis,
		Model:       DefaultSynthesisModel,
		Temperature: DefaultSynthesisTemperature,
	}
	reply = llm.SlotDefinition{
		Name:        llm.SlotReply,
		Model:       DefaultReplyModel,
		Temperature: DefaultReplyTemperature,
	}
	return synthesis, reply
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline and its stages.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithMeter sets the meter the pipeline creates its instruments from.
func WithMeter(meter metric.Meter) Option {
	return func(p *Pipeline) {
		if meter != nil {
			p.meter = meter
		}
	}
}

// WithGuard enables a policy check on every synthesized statement before it runs.
func WithGuard(guard *cypher.Guard) Option {
	return func(p *Pipeline) {
		p.guard = guard
	}
}

// WithSlots overrides the model and sampling settings of both stages.
func WithSlots(synthesis, reply llm.SlotDefinition) Option {
	return func(p *Pipeline) {
		p.synthesisSlot = synthesis
		p.replySlot = reply
	}
}

// WithTokenTracker records the token usage of every model call by slot.
func WithTokenTracker(tracker llm.TokenTracker) Option {
	return func(p *Pipeline) {
		p.tracker = tracker
	}
}
