package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zero-day-ai/moviequery/llm"
)

// pipelineMetrics holds the OpenTelemetry instruments for pipeline runs.
type pipelineMetrics struct {
	// stageDuration records stage duration in milliseconds
	stageDuration metric.Float64Histogram

	// executionFailures counts queries that produced an error row
	executionFailures metric.Int64Counter

	// tokens counts model tokens by slot and direction
	tokens metric.Int64Counter
}

func newPipelineMetrics(meter metric.Meter) (*pipelineMetrics, error) {
	m := &pipelineMetrics{}
	var err error

	m.stageDuration, err = meter.Float64Histogram(
		"moviequery.stage.duration",
		metric.WithDescription("Pipeline stage duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stage duration histogram: %w", err)
	}

	m.executionFailures, err = meter.Int64Counter(
		"moviequery.execution.failures",
		metric.WithDescription("Number of queries whose execution produced an error row"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create execution failure counter: %w", err)
	}

	m.tokens, err = meter.Int64Counter(
		"moviequery.tokens",
		metric.WithDescription("Language model tokens consumed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create token counter: %w", err)
	}

	return m, nil
}

func (m *pipelineMetrics) recordStage(ctx context.Context, stage string, ms float64) {
	m.stageDuration.Record(ctx, ms, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *pipelineMetrics) recordUsage(ctx context.Context, slot string, usage llm.TokenUsage) {
	m.tokens.Add(ctx, int64(usage.InputTokens), metric.WithAttributes(
		attribute.String("slot", slot),
		attribute.String("direction", "input"),
	))
	m.tokens.Add(ctx, int64(usage.OutputTokens), metric.WithAttributes(
		attribute.String("slot", slot),
		attribute.String("direction", "output"),
	))
}
