// Package inmemory provides a channel-backed job queue suitable for
// single-instance deployments and tests. For multi-instance deployments,
// replace it with a shared broker behind the same interfaces.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"finsight/internal/jobs"
	"finsight/internal/logger"
)

// Queue is an in-memory implementation of jobs.Publisher and jobs.Consumer.
// It fans jobs out to a fixed worker pool and caps concurrent processing per
// user, bounding contention on a single user's account balance.
type Queue struct {
	jobChan   chan *jobs.ProcessRecurringJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool

	workers      int
	perUserLimit int

	slotMu    sync.Mutex
	userSlots map[string]chan struct{}
}

// NewQueue creates a new in-memory job queue. bufferSize determines how many
// jobs can be pending before PublishProcessRecurring blocks; perUserLimit
// caps concurrent jobs per user.
func NewQueue(bufferSize, workers, perUserLimit int) *Queue {
	if workers <= 0 {
		workers = 5
	}
	if perUserLimit <= 0 {
		perUserLimit = 10
	}
	return &Queue{
		jobChan:      make(chan *jobs.ProcessRecurringJob, bufferSize),
		closeChan:    make(chan struct{}),
		workers:      workers,
		perUserLimit: perUserLimit,
		userSlots:    make(map[string]chan struct{}),
	}
}

// PublishProcessRecurring implements the jobs.Publisher interface.
func (q *Queue) PublishProcessRecurring(ctx context.Context, job *jobs.ProcessRecurringJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the jobs.Consumer interface. The handler is invoked
// concurrently, up to the configured worker count.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs a single job under the per-user concurrency cap. Handler
// errors are logged and dropped: a template that remained due is rediscovered
// by the next scheduled scan.
func (q *Queue) processJob(ctx context.Context, job *jobs.ProcessRecurringJob, handler jobs.Handler) {
	release := q.acquireUserSlot(job.UserID)
	defer release()

	if err := handler(ctx, job); err != nil {
		logger.Get().Errorw("recurring job failed",
			"job_id", job.JobID,
			"transaction_id", job.TransactionID,
			"user_id", job.UserID,
			"error", err.Error(),
		)
	}
}

// acquireUserSlot blocks until the user is below the per-user concurrency
// limit and returns a release function.
func (q *Queue) acquireUserSlot(userID string) func() {
	q.slotMu.Lock()
	sem, ok := q.userSlots[userID]
	if !ok {
		sem = make(chan struct{}, q.perUserLimit)
		q.userSlots[userID] = sem
	}
	q.slotMu.Unlock()

	sem <- struct{}{}
	return func() { <-sem }
}

// Stop implements the jobs.Consumer interface. It stops the queue and waits
// for in-flight jobs to complete or the context to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the jobs.Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
