package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/moviequery"
	"github.com/zero-day-ai/moviequery/config"
	"github.com/zero-day-ai/moviequery/cypher"
	"github.com/zero-day-ai/moviequery/graphstore"
	"github.com/zero-day-ai/moviequery/health"
	"github.com/zero-day-ai/moviequery/imagegen"
	"github.com/zero-day-ai/moviequery/llm"
	"github.com/zero-day-ai/moviequery/pipeline"
	"github.com/zero-day-ai/moviequery/queue"
	"github.com/zero-day-ai/moviequery/telemetry"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
	meters   *sdkmetric.MeterProvider
	tracer   trace.Tracer
	store    *graphstore.Neo4jStore
	tokens   *llm.UsageLedger
	pipeline *pipeline.Pipeline
}

// newLogger builds the process logger. format is "json" or "text".
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, moviequery.NewConfigurationError("newLogger", fmt.Errorf("%w: log level %q", moviequery.ErrInvalidConfig, level))
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json", "":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, moviequery.NewConfigurationError("newLogger", fmt.Errorf("%w: log format %q", moviequery.ErrInvalidConfig, format))
	}
}

// newApp validates cfg and connects the graph store and the model client.
// Pipeline metrics are registered with registerer; nil gives them a private
// registry that nothing serves.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, registerer prometheus.Registerer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	meters, err := telemetry.NewMeterProvider(registerer, logger)
	if err != nil {
		return nil, moviequery.NewConfigurationError("newApp", err)
	}

	provider := telemetry.NewTracerProvider(logger, slog.LevelDebug)
	tracer := provider.Tracer(telemetry.ServiceName)
	shutdown := func() {
		_ = provider.Shutdown(ctx)
		_ = meters.Shutdown(ctx)
	}

	store, err := graphstore.NewNeo4jStore(cfg.Neo4j,
		graphstore.WithLogger(logger),
		graphstore.WithTracer(tracer))
	if err != nil {
		shutdown()
		return nil, err
	}

	client, err := llm.NewOpenAIClient(ctx, llm.OpenAIConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.GetTimeout(),
	})
	if err != nil {
		moviequery.CloseContextWithLog(ctx, store, logger, "neo4j store")
		shutdown()
		return nil, err
	}

	tokens := llm.NewUsageLedger()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithTracer(tracer),
		pipeline.WithMeter(meters.Meter("moviequery/pipeline")),
		pipeline.WithSlots(cfg.LLM.Synthesis, cfg.LLM.Reply),
		pipeline.WithTokenTracker(tokens),
	}
	if expr := cfg.Guard.GuardExpression(); expr != "" {
		guard, err := cypher.NewGuard(expr)
		if err != nil {
			moviequery.CloseContextWithLog(ctx, store, logger, "neo4j store")
			shutdown()
			return nil, moviequery.NewConfigurationError("newApp", err)
		}
		logger.Info("query guard enabled", "policy", cfg.Guard.Policy)
		opts = append(opts, pipeline.WithGuard(guard))
	}

	p, err := pipeline.New(store, client, opts...)
	if err != nil {
		moviequery.CloseContextWithLog(ctx, store, logger, "neo4j store")
		shutdown()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		meters:   meters,
		tracer:   tracer,
		store:    store,
		tokens:   tokens,
		pipeline: p,
	}, nil
}

// close releases the graph driver and flushes spans.
func (a *app) close(ctx context.Context) {
	for slot, entry := range a.tokens.Snapshot() {
		a.logger.Info("token usage",
			"slot", slot,
			"calls", entry.Calls,
			"input_tokens", entry.Usage.InputTokens,
			"output_tokens", entry.Usage.OutputTokens,
			"total_tokens", entry.Usage.TotalTokens)
	}

	moviequery.CloseContextWithLog(ctx, a.store, a.logger, "neo4j store")
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("tracer provider shutdown failed", "error", err)
	}
	if err := a.meters.Shutdown(ctx); err != nil {
		a.logger.Warn("meter provider shutdown failed", "error", err)
	}
}

// newQueueClient connects to the configured Redis queue.
func newQueueClient(cfg *config.Config) (*queue.RedisClient, error) {
	return queue.NewRedisClient(queue.RedisOptions{URL: cfg.Queue.RedisURL})
}

// newImageGenerator returns nil when no image API key is configured, which
// leaves /generate-image answering 500.
func newImageGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*imagegen.Generator, error) {
	if cfg.Image.APIKey == "" {
		logger.Warn("image generation disabled: no API key configured")
		return nil, nil
	}
	return imagegen.New(ctx, imagegen.Config{APIKey: cfg.Image.APIKey, Model: cfg.Image.Model}, logger)
}

// queueCheck reports the Redis queue together with its running worker count.
// The queue is optional, so failures degrade.
func queueCheck(client queue.Client) health.Check {
	ping := health.PingCheck("redis", client, health.StatusDegraded)
	return func(ctx context.Context) health.Status {
		st := ping(ctx)
		if !st.IsHealthy() {
			return st
		}
		workers, err := client.WorkerCount(ctx)
		if err != nil {
			return health.Degraded("redis worker count unavailable", map[string]any{"error": err.Error()})
		}
		st.Details = map[string]any{"workers": workers}
		return st
	}
}

// degrade reports a failing optional dependency as degraded.
func degrade(check health.Check) health.Check {
	return func(ctx context.Context) health.Status {
		st := check(ctx)
		if st.IsUnhealthy() {
			return health.Degraded(st.Message, st.Details)
		}
		return st
	}
}
