// Package telemetry wires OpenTelemetry tracing and metrics for the service binary.
package telemetry

import (
	"context"
	"encoding/hex"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies this service in trace resources.
const ServiceName = "moviequery"

// NewTracerProvider creates a TracerProvider that logs finished spans through
// logger. A SimpleSpanProcessor exports each span as soon as it ends.
func NewTracerProvider(logger *slog.Logger, level slog.Level) *sdktrace.TracerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	exporter := NewLogSpanExporter(logger, level)
	processor := sdktrace.NewSimpleSpanProcessor(exporter)

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(serviceResource(logger)),
	)
}

// serviceResource describes this process to traces and metrics.
func serviceResource(logger *slog.Logger) *resource.Resource {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
		),
	)
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		return resource.Default()
	}
	return res
}

// SpanIDs returns the hex-encoded trace and span IDs of the span in ctx,
// or two empty strings when ctx carries no valid span.
func SpanIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	tid := sc.TraceID()
	sid := sc.SpanID()
	return hex.EncodeToString(tid[:]), hex.EncodeToString(sid[:])
}

// CreateParentContext returns ctx with a remote parent span built from
// hex-encoded IDs, linking spans started from it to the submitter's trace.
// ctx is returned unchanged when the IDs are missing or malformed.
func CreateParentContext(ctx context.Context, traceID, parentSpanID string) context.Context {
	if traceID == "" || parentSpanID == "" {
		return ctx
	}

	traceIDBytes, err := hex.DecodeString(traceID)
	if err != nil || len(traceIDBytes) != 16 {
		return ctx
	}

	spanIDBytes, err := hex.DecodeString(parentSpanID)
	if err != nil || len(spanIDBytes) != 8 {
		return ctx
	}

	var tid trace.TraceID
	copy(tid[:], traceIDBytes)

	var sid trace.SpanID
	copy(sid[:], spanIDBytes)

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithSpanContext(ctx, parent)
}
