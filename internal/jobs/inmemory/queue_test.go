package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finsight/internal/jobs"
)

func TestQueueDeliversJobs(t *testing.T) {
	q := NewQueue(16, 3, 10)
	defer q.Close()

	var (
		mu       sync.Mutex
		received []string
		wg       sync.WaitGroup
	)

	wg.Add(3)
	err := q.Start(context.Background(), func(ctx context.Context, job *jobs.ProcessRecurringJob) error {
		mu.Lock()
		received = append(received, job.TransactionID)
		mu.Unlock()
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start queue: %v", err)
	}

	for _, id := range []string{"tx-1", "tx-2", "tx-3"} {
		job := &jobs.ProcessRecurringJob{TransactionID: id, UserID: "user-1"}
		if err := q.PublishProcessRecurring(context.Background(), job); err != nil {
			t.Fatalf("failed to publish job: %v", err)
		}
		if job.JobID == "" {
			t.Error("expected a job ID to be assigned on publish")
		}
	}

	waitTimeout(t, &wg, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Errorf("expected 3 jobs processed, got %d", len(received))
	}
}

func TestQueuePerUserLimit(t *testing.T) {
	q := NewQueue(16, 4, 1)
	defer q.Close()

	var (
		current atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)

	wg.Add(4)
	err := q.Start(context.Background(), func(ctx context.Context, job *jobs.ProcessRecurringJob) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start queue: %v", err)
	}

	for i := 0; i < 4; i++ {
		job := &jobs.ProcessRecurringJob{TransactionID: "tx", UserID: "same-user"}
		if err := q.PublishProcessRecurring(context.Background(), job); err != nil {
			t.Fatalf("failed to publish job: %v", err)
		}
	}

	waitTimeout(t, &wg, 5*time.Second)

	if p := peak.Load(); p > 1 {
		t.Errorf("expected at most 1 concurrent job per user, observed %d", p)
	}
}

func TestQueueHandlerErrorsAreDropped(t *testing.T) {
	q := NewQueue(16, 2, 10)
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	err := q.Start(context.Background(), func(ctx context.Context, job *jobs.ProcessRecurringJob) error {
		defer wg.Done()
		if job.TransactionID == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start queue: %v", err)
	}

	for _, id := range []string{"bad", "good"} {
		job := &jobs.ProcessRecurringJob{TransactionID: id, UserID: "user-1"}
		if err := q.PublishProcessRecurring(context.Background(), job); err != nil {
			t.Fatalf("failed to publish job: %v", err)
		}
	}

	// Both jobs complete; the failing one must not wedge the workers.
	waitTimeout(t, &wg, 2*time.Second)
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, 1)
	if err := q.Close(); err != nil {
		t.Fatalf("failed to close queue: %v", err)
	}

	job := &jobs.ProcessRecurringJob{TransactionID: "tx", UserID: "user-1"}
	if err := q.PublishProcessRecurring(context.Background(), job); err == nil {
		t.Error("expected publish on a closed queue to fail")
	}
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for jobs to complete")
	}
}
