// Package worker runs provisioning jobs asynchronously relative to the HTTP
// request that triggered registration. Jobs are processed strictly one at a
// time per worker, so each job's tenant work is fully scoped before the next
// begins.
package worker

import (
	"context"

	"github.com/rs/zerolog"
)

// Runner executes a provisioning job for one hospital.
type Runner interface {
	Run(ctx context.Context, hospitalID int64) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, hospitalID int64) error

func (f RunnerFunc) Run(ctx context.Context, hospitalID int64) error {
	return f(ctx, hospitalID)
}

// Queue is an in-process job queue with a bounded buffer. Enqueue never
// blocks the registration request; if the buffer is full the job is dropped
// and logged, and an operator can re-trigger provisioning from the CLI.
type Queue struct {
	jobs   chan int64
	runner Runner
	logger zerolog.Logger
}

func NewQueue(runner Runner, buffer int, logger zerolog.Logger) *Queue {
	return &Queue{
		jobs:   make(chan int64, buffer),
		runner: runner,
		logger: logger,
	}
}

// Enqueue schedules provisioning for a hospital. It reports whether the job
// was accepted.
func (q *Queue) Enqueue(hospitalID int64) bool {
	select {
	case q.jobs <- hospitalID:
		return true
	default:
		q.logger.Error().Int64("hospital_id", hospitalID).
			Msg("provisioning queue full, job dropped")
		return false
	}
}

// Start launches the worker loop. Jobs run sequentially; a failed job is
// reflected in registry state by the runner and never retried automatically.
// The loop stops when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case hospitalID := <-q.jobs:
				if err := q.runner.Run(ctx, hospitalID); err != nil {
					q.logger.Error().Int64("hospital_id", hospitalID).Err(err).
						Msg("provisioning job failed")
				}
			}
		}
	}()
}
