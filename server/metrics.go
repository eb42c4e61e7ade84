package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// httpMetrics holds Prometheus metrics for the HTTP layer.
type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec   // By route, method and code
	requestDuration *prometheus.HistogramVec // By route
	inFlight        prometheus.Gauge
	answersTotal    *prometheus.CounterVec // By outcome (success/invalid/error)
	imagesTotal     *prometheus.CounterVec // By outcome (success/invalid/error)
}

// newHTTPMetrics creates the HTTP metrics and registers them with registerer.
func newHTTPMetrics(registerer prometheus.Registerer) (*httpMetrics, error) {
	m := &httpMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviequery",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"route", "method", "code"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moviequery",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}, // model calls dominate
		}, []string{"route"}),

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moviequery",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		}),

		answersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviequery",
			Name:      "answers_total",
			Help:      "Total number of question answering requests by outcome",
		}, []string{"outcome"}),

		imagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviequery",
			Name:      "images_total",
			Help:      "Total number of image generation requests by outcome",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.inFlight, m.answersTotal, m.imagesTotal} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
