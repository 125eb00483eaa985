package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestQueue_ProcessesJobsInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []int64
	done := make(chan struct{}, 3)

	runner := RunnerFunc(func(ctx context.Context, id int64) error {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(runner, 8, zerolog.Nop())
	q.Start(ctx)

	for _, id := range []int64{1, 2, 3} {
		if !q.Enqueue(id) {
			t.Fatalf("enqueue %d rejected", id)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []int64{1, 2, 3} {
		if seen[i] != want {
			t.Errorf("position %d: expected %d, got %d", i, want, seen[i])
		}
	}
}

func TestQueue_FullBufferRejects(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, id int64) error { return nil })
	q := NewQueue(runner, 1, zerolog.Nop())
	// Not started: the buffer holds one job.

	if !q.Enqueue(1) {
		t.Fatal("first enqueue should be accepted")
	}
	if q.Enqueue(2) {
		t.Error("second enqueue should be rejected when the buffer is full")
	}
}

func TestQueue_FailedJobDoesNotStopLoop(t *testing.T) {
	done := make(chan int64, 2)
	runner := RunnerFunc(func(ctx context.Context, id int64) error {
		done <- id
		if id == 1 {
			return errors.New("boom")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(runner, 4, zerolog.Nop())
	q.Start(ctx)
	q.Enqueue(1)
	q.Enqueue(2)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker loop stopped after a failed job")
		}
	}
}
