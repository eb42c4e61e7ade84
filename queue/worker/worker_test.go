package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/moviequery/pipeline"
	"github.com/zero-day-ai/moviequery/queue"
)

// fakeAnswerer answers every question with a canned state.
type fakeAnswerer struct {
	calls atomic.Int32
	fail  error
	delay time.Duration
}

func (f *fakeAnswerer) Run(ctx context.Context, question string) (pipeline.State, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail != nil {
		return pipeline.State{Question: question, Query: "MATCH (n) RETURN n"}, f.fail
	}
	return pipeline.State{
		Question: question,
		Query:    "MATCH (m:Movie) RETURN m.title",
		Answer:   "Answer to: " + question,
	}, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setupClient(t *testing.T) (*queue.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := queue.NewRedisClient(queue.RedisOptions{
		URL:         fmt.Sprintf("redis://%s", mr.Addr()),
		PollTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// startWorker runs w in the background and returns a stop function that
// cancels it and returns Run's error.
func startWorker(t *testing.T, w *Worker) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	var once sync.Once
	var runErr error
	return func() error {
		once.Do(func() {
			cancel()
			runErr = <-errCh
		})
		return runErr
	}
}

func TestWorker_AnswersJobs(t *testing.T) {
	client, _ := setupClient(t)
	answerer := &fakeAnswerer{}

	w := New(client, answerer, Options{Queue: "questions", Concurrency: 2, Logger: newTestLogger()})
	stop := startWorker(t, w)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	questions := []string{"Who directed Heat?", "Who starred in Alien?", "When was Up released?"}
	for _, q := range questions {
		result, err := queue.Ask(ctx, client, "questions", q)
		require.NoError(t, err)
		assert.Equal(t, "Answer to: "+q, result.Answer)
		assert.Equal(t, "MATCH (m:Movie) RETURN m.title", result.Query)
		assert.Equal(t, w.ID(), result.WorkerID)
		assert.False(t, result.HasError())
		assert.GreaterOrEqual(t, result.CompletedAt, result.StartedAt)
	}

	assert.Equal(t, int32(len(questions)), answerer.calls.Load())
	require.NoError(t, stop())
}

func TestWorker_PipelineErrorIsPublished(t *testing.T) {
	client, _ := setupClient(t)
	answerer := &fakeAnswerer{fail: errors.New("reply model unavailable")}

	w := New(client, answerer, Options{Queue: "questions", Concurrency: 1, Logger: newTestLogger()})
	stop := startWorker(t, w)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := queue.Ask(ctx, client, "questions", "Who directed Heat?")
	require.NoError(t, err)
	assert.True(t, result.HasError())
	assert.Equal(t, "reply model unavailable", result.Error)
	assert.Empty(t, result.Answer)
	assert.Equal(t, "MATCH (n) RETURN n", result.Query)
}

func TestWorker_InvalidJob(t *testing.T) {
	client, _ := setupClient(t)
	answerer := &fakeAnswerer{}
	w := New(client, answerer, Options{Logger: newTestLogger()})

	result := w.process(context.Background(), queue.Job{ID: "j1", Question: ""}, newTestLogger())
	assert.True(t, result.HasError())
	assert.True(t, strings.HasPrefix(result.Error, "invalid job"))
	assert.Equal(t, int32(0), answerer.calls.Load())
}

func TestWorker_HeartbeatAndCount(t *testing.T) {
	client, mr := setupClient(t)

	w := New(client, &fakeAnswerer{}, Options{
		Concurrency:       1,
		HeartbeatInterval: 50 * time.Millisecond,
		Logger:            newTestLogger(),
	})
	stop := startWorker(t, w)

	healthKey := "moviequery:worker:" + w.ID() + ":health"
	require.Eventually(t, func() bool {
		return mr.Exists(healthKey)
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		count, err := client.WorkerCount(context.Background())
		return err == nil && count == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, stop())

	count, err := client.WorkerCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestWorker_GracefulShutdownFinishesInFlightJob(t *testing.T) {
	client, _ := setupClient(t)
	answerer := &fakeAnswerer{delay: 300 * time.Millisecond}

	w := New(client, answerer, Options{Queue: "questions", Concurrency: 1, Logger: newTestLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job := queue.NewJob("Who directed Heat?")
	results, err := client.Subscribe(ctx, queue.ResultChannel(job.ID))
	require.NoError(t, err)
	require.NoError(t, client.Push(ctx, "questions", job))

	stop := startWorker(t, w)
	require.Eventually(t, func() bool { return answerer.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, stop())

	select {
	case result := <-results:
		assert.Equal(t, job.ID, result.JobID)
		assert.Equal(t, "Answer to: Who directed Heat?", result.Answer)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight job result was not published")
	}
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, queue.DefaultQueueName, opts.Queue)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, 30*time.Second, opts.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, opts.HeartbeatInterval)
	assert.NotNil(t, opts.Logger)

	custom := Options{Concurrency: 8, ShutdownTimeout: time.Second}.withDefaults()
	assert.Equal(t, 8, custom.Concurrency)
	assert.Equal(t, time.Second, custom.ShutdownTimeout)
}

func TestGenerateWorkerID(t *testing.T) {
	a := generateWorkerID()
	b := generateWorkerID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestWorker_JobSpanJoinsSubmitterTrace(t *testing.T) {
	client, _ := setupClient(t)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	w := New(client, &fakeAnswerer{}, Options{
		Queue:       "questions",
		Concurrency: 1,
		Logger:      newTestLogger(),
		Tracer:      tracer,
	})
	stop := startWorker(t, w)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ctx, submit := tracer.Start(ctx, "cli.ask")
	_, err := queue.Ask(ctx, client, "questions", "Who directed Heat?")
	require.NoError(t, err)
	submit.End()

	require.NoError(t, stop())

	var job sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "worker.job" {
			job = span
		}
	}
	require.NotNil(t, job)
	assert.Equal(t, submit.SpanContext().TraceID(), job.SpanContext().TraceID())
	assert.Equal(t, submit.SpanContext().SpanID(), job.Parent().SpanID())
}
