package telemetry

import (
	"context"
	"encoding/hex"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogSpanExporter implements the OpenTelemetry SpanExporter interface and
// writes every finished span as one structured log record.
//
// Export never fails; the exporter has nothing to retry against.
type LogSpanExporter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSpanExporter creates an exporter that logs spans at level.
func NewLogSpanExporter(logger *slog.Logger, level slog.Level) *LogSpanExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSpanExporter{logger: logger, level: level}
}

// ExportSpans logs a batch of spans.
func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		e.logger.LogAttrs(ctx, e.level, "span", spanAttrs(span)...)
	}
	return nil
}

// Shutdown is a no-op; the logger's handler owns its output.
func (e *LogSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

func spanAttrs(span sdktrace.ReadOnlySpan) []slog.Attr {
	sc := span.SpanContext()
	traceID := sc.TraceID()
	spanID := sc.SpanID()

	attrs := []slog.Attr{
		slog.String("name", span.Name()),
		slog.String("trace_id", hex.EncodeToString(traceID[:])),
		slog.String("span_id", hex.EncodeToString(spanID[:])),
		slog.Float64("duration_ms", float64(span.EndTime().Sub(span.StartTime()).Microseconds())/1000),
		slog.String("status", statusString(span.Status())),
	}

	if span.Parent().IsValid() {
		parentID := span.Parent().SpanID()
		attrs = append(attrs, slog.String("parent_span_id", hex.EncodeToString(parentID[:])))
	}
	if desc := span.Status().Description; desc != "" {
		attrs = append(attrs, slog.String("status_message", desc))
	}
	if kv := span.Attributes(); len(kv) > 0 {
		attrs = append(attrs, slog.Any("attributes", attributeMap(kv)))
	}
	if events := span.Events(); len(events) > 0 {
		names := make([]string, 0, len(events))
		for _, ev := range events {
			names = append(names, ev.Name)
		}
		attrs = append(attrs, slog.Any("events", names))
	}

	return attrs
}

func statusString(status sdktrace.Status) string {
	switch status.Code {
	case codes.Ok:
		return "ok"
	case codes.Error:
		return "error"
	default:
		return "unset"
	}
}

// attributeMap converts span attributes to plain values for the log handler.
func attributeMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		switch attr.Value.Type() {
		case attribute.BOOL:
			m[string(attr.Key)] = attr.Value.AsBool()
		case attribute.INT64:
			m[string(attr.Key)] = attr.Value.AsInt64()
		case attribute.FLOAT64:
			m[string(attr.Key)] = attr.Value.AsFloat64()
		case attribute.STRING:
			m[string(attr.Key)] = attr.Value.AsString()
		default:
			m[string(attr.Key)] = attr.Value.Emit()
		}
	}
	return m
}
