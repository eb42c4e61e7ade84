package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/moviequery/pipeline"
	"github.com/zero-day-ai/moviequery/queue"
	"github.com/zero-day-ai/moviequery/telemetry"
)

// Answerer runs the pipeline for one question.
type Answerer interface {
	Run(ctx context.Context, question string) (pipeline.State, error)
}

// Options configures the worker behavior. Zero values take defaults.
type Options struct {
	// Queue is the list jobs are popped from. Default: queue.DefaultQueueName
	Queue string

	// Concurrency is the number of worker goroutines to start. Default: 4
	Concurrency int

	// ShutdownTimeout is the time to wait for in-flight jobs. Default: 30s
	ShutdownTimeout time.Duration

	// HeartbeatInterval is the interval between heartbeats. Default: 10s
	HeartbeatInterval time.Duration

	// Logger is the structured logger for worker operations.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Tracer starts one span per job, parented to the submitter's span.
	// If nil, a noop tracer is used.
	Tracer trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.Queue == "" {
		o.Queue = queue.DefaultQueueName
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 30 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("moviequery/worker")
	}
	return o
}

// Worker consumes question jobs and publishes their answers.
type Worker struct {
	id       string
	client   queue.Client
	answerer Answerer
	opts     Options
	logger   *slog.Logger
}

// New creates a Worker with a unique ID.
func New(client queue.Client, answerer Answerer, opts Options) *Worker {
	opts = opts.withDefaults()
	id := generateWorkerID()
	return &Worker{
		id:       id,
		client:   client,
		answerer: answerer,
		opts:     opts,
		logger:   opts.Logger.With("worker_id", id, "queue", opts.Queue),
	}
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() string {
	return w.id
}

// Run starts the worker goroutines and the heartbeat, and blocks until ctx
// is cancelled. It then waits up to the shutdown timeout for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker starting", "concurrency", w.opts.Concurrency)

	if err := w.client.IncrementWorkerCount(ctx); err != nil {
		w.logger.Error("failed to increment worker count", "error", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.client.DecrementWorkerCount(cleanupCtx); err != nil {
			w.logger.Error("failed to decrement worker count", "error", err)
		}
	}()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.runHeartbeat(heartbeatCtx)

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			w.loop(ctx, workerNum)
		}(i)
	}

	w.logger.Info("worker started", "workers", w.opts.Concurrency)

	<-ctx.Done()
	w.logger.Info("shutdown requested, waiting for in-flight jobs")

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		w.logger.Info("worker shutdown complete")
		return nil
	case <-time.After(w.opts.ShutdownTimeout):
		w.logger.Warn("worker shutdown timeout exceeded", "timeout", w.opts.ShutdownTimeout)
		return fmt.Errorf("worker shutdown timed out after %s", w.opts.ShutdownTimeout)
	}
}

// runHeartbeat refreshes the worker's health key until ctx is cancelled.
func (w *Worker) runHeartbeat(ctx context.Context) {
	ttl := 3 * w.opts.HeartbeatInterval
	beat := func() {
		if err := w.client.Heartbeat(ctx, w.id, ttl); err != nil {
			// transient; the key simply expires if this keeps failing
			w.logger.Debug("heartbeat failed", "error", err)
		}
	}

	beat()
	ticker := time.NewTicker(w.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}

// loop pops and processes jobs until ctx is cancelled.
func (w *Worker) loop(ctx context.Context, workerNum int) {
	logger := w.logger.With("worker_num", workerNum)
	logger.Debug("worker loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker loop stopped", "reason", "context_cancelled")
			return
		default:
		}

		job, err := w.client.Pop(ctx, w.opts.Queue)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("worker loop stopped", "reason", "context_error")
				return
			}
			logger.Error("failed to pop job", "error", err)
			continue
		}
		if job == nil {
			continue
		}

		logger.Info("received job",
			"job_id", job.ID,
			"queue_wait_ms", job.Age().Milliseconds())

		// in-flight jobs finish even when shutdown starts
		jobCtx := telemetry.CreateParentContext(context.WithoutCancel(ctx), job.TraceID, job.SpanID)
		jobCtx, span := w.opts.Tracer.Start(jobCtx, "worker.job",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(attribute.String("moviequery.job_id", job.ID)))

		result := w.process(jobCtx, *job, logger)
		if result.HasError() {
			span.SetStatus(codes.Error, result.Error)
		}

		if err := w.client.Publish(jobCtx, queue.ResultChannel(job.ID), result); err != nil {
			logger.Error("failed to publish result", "job_id", job.ID, "error", err)
		}
		span.End()
	}
}

// process answers one job. A result is always returned.
func (w *Worker) process(ctx context.Context, job queue.Job, logger *slog.Logger) queue.Result {
	result := queue.Result{
		JobID:     job.ID,
		WorkerID:  w.id,
		StartedAt: time.Now().UnixMilli(),
	}

	if err := job.IsValid(); err != nil {
		result.Error = fmt.Sprintf("invalid job: %v", err)
		result.CompletedAt = time.Now().UnixMilli()
		logger.Error("invalid job", "job_id", job.ID, "error", err)
		return result
	}

	state, err := w.answerer.Run(ctx, job.Question)
	result.Query = state.Query
	result.CompletedAt = time.Now().UnixMilli()
	if err != nil {
		result.Error = err.Error()
		logger.Error("job failed", "job_id", job.ID, "error", err)
		return result
	}

	result.Answer = state.Answer
	logger.Info("job completed",
		"job_id", job.ID,
		"duration_ms", result.CompletedAt-result.StartedAt,
		"tokens", state.Usage.TotalTokens)

	return result
}

// generateWorkerID creates a unique identifier from hostname, PID and a UUID prefix.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
}
