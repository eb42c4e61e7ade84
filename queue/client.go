package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/moviequery"
	"github.com/zero-day-ai/moviequery/telemetry"
)

const workerCountKey = "moviequery:workers"

// Client defines the interface for interacting with the Redis question queue.
type Client interface {
	// Push adds a job to the end of a queue (LPUSH).
	Push(ctx context.Context, queue string, job Job) error

	// Pop removes and returns a job from the front of a queue (BRPOP).
	// It returns nil, nil when the poll timeout elapses with nothing queued.
	Pop(ctx context.Context, queue string) (*Job, error)

	// Publish sends a result to a pub/sub channel.
	Publish(ctx context.Context, channel string, result Result) error

	// Subscribe creates a subscription to a pub/sub channel.
	// The returned channel is closed when ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan Result, error)

	// Heartbeat refreshes the health key of a worker with the given TTL.
	Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error

	// WorkerCount returns the number of running workers.
	WorkerCount(ctx context.Context) (int, error)

	// IncrementWorkerCount increments the running worker counter.
	IncrementWorkerCount(ctx context.Context) error

	// DecrementWorkerCount decrements the running worker counter.
	DecrementWorkerCount(ctx context.Context) error

	// Ping verifies the Redis connection.
	Ping(ctx context.Context) error

	// Close closes the Redis connection.
	Close() error
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// PollTimeout bounds each BRPOP so Pop callers can observe cancellation.
	PollTimeout time.Duration
}

// RedisClient implements the Client interface using go-redis/v9.
type RedisClient struct {
	client      *redis.Client
	pollTimeout time.Duration
}

// NewRedisClient creates a new Redis queue client with the given options.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	if opts.PollTimeout == 0 {
		opts.PollTimeout = time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, moviequery.NewConfigurationError("queue.NewRedisClient",
			fmt.Errorf("failed to parse Redis URL: %w", err))
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, moviequery.NewNetworkError("queue.NewRedisClient",
			fmt.Errorf("failed to connect to Redis: %w", err))
	}

	return &RedisClient{client: client, pollTimeout: opts.PollTimeout}, nil
}

// Push adds a job to the end of a queue.
func (c *RedisClient) Push(ctx context.Context, queue string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := c.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}

	return nil
}

// Pop removes and returns a job from the front of a queue.
func (c *RedisClient) Pop(ctx context.Context, queue string) (*Job, error) {
	// BRPOP returns [queue_name, value] or redis.Nil on timeout
	result, err := c.client.BRPop(ctx, c.pollTimeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", queue, err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Publish sends a result to a pub/sub channel.
func (c *RedisClient) Publish(ctx context.Context, channel string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	return nil
}

// Subscribe creates a subscription to a pub/sub channel.
func (c *RedisClient) Subscribe(ctx context.Context, channel string) (<-chan Result, error) {
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	resultChan := make(chan Result)

	go func() {
		defer close(resultChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var result Result
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					continue
				}

				select {
				case resultChan <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return resultChan, nil
}

// Heartbeat refreshes the health key of a worker.
func (c *RedisClient) Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, healthKey(workerID), "ok", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for worker %s: %w", workerID, err)
	}
	return nil
}

// WorkerCount returns the number of running workers.
func (c *RedisClient) WorkerCount(ctx context.Context) (int, error) {
	countStr, err := c.client.Get(ctx, workerCountKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get worker count: %w", err)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid worker count value: %w", err)
	}

	return count, nil
}

// IncrementWorkerCount increments the running worker counter.
func (c *RedisClient) IncrementWorkerCount(ctx context.Context) error {
	if err := c.client.Incr(ctx, workerCountKey).Err(); err != nil {
		return fmt.Errorf("failed to increment worker count: %w", err)
	}
	return nil
}

// DecrementWorkerCount decrements the running worker counter.
func (c *RedisClient) DecrementWorkerCount(ctx context.Context) error {
	if err := c.client.Decr(ctx, workerCountKey).Err(); err != nil {
		return fmt.Errorf("failed to decrement worker count: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

func healthKey(workerID string) string {
	return "moviequery:worker:" + workerID + ":health"
}

// NewJob creates a job with a fresh ID for question.
func NewJob(question string) Job {
	return Job{
		ID:          uuid.New().String(),
		Question:    question,
		SubmittedAt: time.Now().UnixMilli(),
	}
}

// Ask submits question to queue and waits for its result. The subscription
// is established before the job is pushed so a fast worker cannot be missed.
// The span in ctx, if any, becomes the parent of the worker's span.
// Bound the wait with a deadline on ctx.
func Ask(ctx context.Context, client Client, queue, question string) (*Result, error) {
	job := NewJob(question)
	job.TraceID, job.SpanID = telemetry.SpanIDs(ctx)
	if err := job.IsValid(); err != nil {
		return nil, moviequery.NewValidationError("queue.Ask", fmt.Errorf("%w: %v", moviequery.ErrEmptyQuestion, err))
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := client.Subscribe(subCtx, ResultChannel(job.ID))
	if err != nil {
		return nil, moviequery.NewNetworkError("queue.Ask", err)
	}

	if err := client.Push(ctx, queue, job); err != nil {
		return nil, moviequery.NewNetworkError("queue.Ask", err)
	}

	select {
	case result, ok := <-results:
		if !ok {
			return nil, moviequery.NewNetworkError("queue.Ask", fmt.Errorf("result subscription for job %s closed", job.ID))
		}
		return &result, nil
	case <-ctx.Done():
		return nil, moviequery.NewExecutionError("queue.Ask", ctx.Err()).
			WithContext(map[string]any{"job_id": job.ID})
	}
}
