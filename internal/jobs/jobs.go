// Package jobs defines the asynchronous work-item contract between the
// recurring-transaction scanner and its processors. The scanner publishes one
// job per due template; consumers process them independently so one slow or
// failing firing cannot block discovery of the others.
package jobs

import (
	"context"
	"time"
)

// ProcessRecurringJob asks a consumer to fire one recurring transaction
// template. A job is advisory: the processor re-checks that the template is
// still due, so stale or duplicate deliveries are harmless.
type ProcessRecurringJob struct {
	JobID         string    `json:"job_id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publisher enqueues recurrence-processing jobs.
// This abstraction allows for different queue implementations
// (in-memory, Cloud Tasks, Pub/Sub).
type Publisher interface {
	// PublishProcessRecurring enqueues a job for asynchronous processing.
	PublishProcessRecurring(ctx context.Context, job *ProcessRecurringJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Handler processes a single job. A returned error is logged; the item is
// not re-queued because the next scheduled scan rediscovers anything that
// remained due.
type Handler func(ctx context.Context, job *ProcessRecurringJob) error

// Consumer drains jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs, invoking handler for each one.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}
