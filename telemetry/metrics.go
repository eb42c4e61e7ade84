package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider creates a MeterProvider whose instruments are collected
// through registerer, so they appear on the same /metrics page as the
// Prometheus-native HTTP metrics. Instrument names are translated to the
// Prometheus convention ("moviequery.execution.failures" becomes
// "moviequery_execution_failures_total").
func NewMeterProvider(registerer prometheus.Registerer, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("create prometheus metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(serviceResource(logger)),
	), nil
}
