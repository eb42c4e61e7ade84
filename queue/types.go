package queue

import (
	"fmt"
	"strings"
	"time"
)

// DefaultQueueName is the list jobs are pushed to when no name is configured.
const DefaultQueueName = "moviequery:questions"

// Job is one question submitted for asynchronous answering.
type Job struct {
	// ID is a UUID that names the job's result channel
	ID string `json:"id"`

	// Question is the natural-language question to answer
	Question string `json:"question"`

	// TraceID is the distributed tracing trace ID for observability
	TraceID string `json:"trace_id,omitempty"`

	// SpanID is the distributed tracing span ID for observability
	SpanID string `json:"span_id,omitempty"`

	// SubmittedAt is the Unix timestamp in milliseconds when the job was submitted
	SubmittedAt int64 `json:"submitted_at"`
}

// Result is the outcome of answering a Job, published on ResultChannel(job.ID).
type Result struct {
	// JobID correlates this result with the job
	JobID string `json:"job_id"`

	// Answer is the natural-language answer. Empty if Error is set.
	Answer string `json:"answer,omitempty"`

	// Query is the Cypher statement the answer was based on, if any
	Query string `json:"query,omitempty"`

	// Error is the error message if answering failed
	Error string `json:"error,omitempty"`

	// WorkerID is the unique identifier of the worker that processed the job
	WorkerID string `json:"worker_id"`

	// StartedAt is the Unix timestamp in milliseconds when processing started
	StartedAt int64 `json:"started_at"`

	// CompletedAt is the Unix timestamp in milliseconds when processing completed
	CompletedAt int64 `json:"completed_at"`
}

// ResultChannel returns the pub/sub channel a job's result is published on.
func ResultChannel(jobID string) string {
	return "results:" + jobID
}

// IsValid checks that the job can be processed.
func (j *Job) IsValid() error {
	if j.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(j.Question) == "" {
		return fmt.Errorf("question is required")
	}
	if j.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", j.SubmittedAt)
	}
	return nil
}

// Age returns the duration since this job was submitted.
func (j *Job) Age() time.Duration {
	if j.SubmittedAt <= 0 {
		return 0
	}
	return time.Duration(time.Now().UnixMilli()-j.SubmittedAt) * time.Millisecond
}

// HasError returns true if the result represents a failed job.
func (r *Result) HasError() bool {
	return r.Error != ""
}

// Duration returns the wall-clock time the worker spent on the job.
func (r *Result) Duration() time.Duration {
	if r.StartedAt <= 0 || r.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(r.CompletedAt-r.StartedAt) * time.Millisecond
}
