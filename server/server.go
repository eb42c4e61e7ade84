// Package server exposes the question answering pipeline and the image
// generator over HTTP.
//
// Routes:
//
//	POST /ask-movie-question  {"question": "..."}  -> answer JSON
//	POST /generate-image      {"text": "..."}      -> image/png
//	GET  /health                                   -> aggregated health report
//	GET  /metrics                                  -> Prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zero-day-ai/moviequery"
	"github.com/zero-day-ai/moviequery/health"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Response details returned to clients. Internal errors are never echoed.
const (
	detailInternal     = "Internal server error"
	detailImage        = "Error generating image"
	detailInvalidBody  = "Invalid request body"
	detailNoQuestion   = "Question is required"
	detailNoPromptText = "Text is required"
)

// Answerer answers one natural-language question.
type Answerer interface {
	GenerateText(ctx context.Context, question string) (string, error)
}

// ImageGenerator renders a text prompt into PNG bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Server routes HTTP requests to the pipeline and the image generator.
type Server struct {
	answerer Answerer
	images   ImageGenerator
	checks   map[string]health.Check
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	metrics  *httpMetrics
	now      func() time.Time
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithImageGenerator enables /generate-image. Without one the route answers 500.
func WithImageGenerator(g ImageGenerator) Option {
	return func(s *Server) {
		s.images = g
	}
}

// WithHealthCheck adds a named dependency check to /health.
func WithHealthCheck(name string, check health.Check) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithLogger sets the logger for access and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server. Metrics are registered with registry, which also
// backs /metrics; pass prometheus.NewRegistry() unless the process shares one.
func New(answerer Answerer, registry *prometheus.Registry, opts ...Option) (*Server, error) {
	if answerer == nil {
		return nil, moviequery.NewConfigurationError("server.New", fmt.Errorf("%w: answerer is required", moviequery.ErrInvalidConfig))
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		answerer: answerer,
		checks:   make(map[string]health.Check),
		logger:   slog.Default(),
		gatherer: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics, err := newHTTPMetrics(registry)
	if err != nil {
		return nil, moviequery.NewConfigurationError("server.New", fmt.Errorf("register metrics: %w", err))
	}
	s.metrics = metrics
	s.handler = s.routes()

	return s, nil
}

// Handler returns the root handler with CORS and request IDs applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /ask-movie-question", s.instrument("/ask-movie-question", s.handleAsk))
	mux.Handle("POST /generate-image", s.instrument("/generate-image", s.handleGenerateImage))
	mux.Handle("GET /health", s.instrument("/health", s.handleHealth))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	return withCORS(withRequestID(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return moviequery.NewNetworkError("Server.ListenAndServe", err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return moviequery.NewNetworkError("Server.Serve", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return moviequery.NewInternalError("Server.Serve", fmt.Errorf("graceful shutdown: %w", err))
	}
	return nil
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	ModelResponse    string `json:"model_response"`
	Status           string `json:"status"`
	QuestionReceived string `json:"question_received"`
	Timestamp        string `json:"timestamp"`
}

type imageRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.answersTotal.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detailInvalidBody})
		return
	}

	answer, err := s.answerer.GenerateText(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, moviequery.ErrEmptyQuestion) {
			s.metrics.answersTotal.WithLabelValues("invalid").Inc()
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detailNoQuestion})
			return
		}
		s.metrics.answersTotal.WithLabelValues("error").Inc()
		s.logger.Error("question answering failed",
			"request_id", RequestID(r.Context()),
			"error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: detailInternal})
		return
	}

	s.metrics.answersTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, askResponse{
		ModelResponse:    answer,
		Status:           "success",
		QuestionReceived: req.Question,
		Timestamp:        s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.imagesTotal.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detailInvalidBody})
		return
	}

	if s.images == nil {
		s.metrics.imagesTotal.WithLabelValues("error").Inc()
		s.logger.Error("image generation is not configured", "request_id", RequestID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: detailImage})
		return
	}

	data, err := s.images.Generate(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, moviequery.ErrEmptyPrompt) {
			s.metrics.imagesTotal.WithLabelValues("invalid").Inc()
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detailNoPromptText})
			return
		}
		s.metrics.imagesTotal.WithLabelValues("error").Inc()
		s.logger.Error("image generation failed",
			"request_id", RequestID(r.Context()),
			"error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: detailImage})
		return
	}

	s.metrics.imagesTotal.WithLabelValues("success").Inc()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="generated_image.png"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := health.Run(r.Context(), s.checks)

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
