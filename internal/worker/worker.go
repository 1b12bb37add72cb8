package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Job is work run after a delay. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs delayed jobs on goroutines bound to one context. Stop
// cancels every job that has not started and waits for running ones.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	pending atomic.Int64
}

// New creates a Scheduler whose jobs are cancelled when parent is.
func New(parent context.Context, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{ctx: ctx, cancel: cancel, log: log}
}

// After schedules job to run once delay has elapsed. It reports false when
// the scheduler is already stopped.
func (s *Scheduler) After(delay time.Duration, job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	s.wg.Add(1)
	s.pending.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.pending.Add(-1)

		if !s.sleep(delay) {
			s.log.Debug().Dur("delay", delay).Msg("delayed job cancelled")
			return
		}
		job(s.ctx)
	}()
	return true
}

// Pending returns the number of jobs scheduled but not yet finished.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Stop cancels outstanding jobs and blocks until every goroutine exits.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// sleep waits for d and reports whether the scheduler is still running.
func (s *Scheduler) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return s.ctx.Err() == nil
	}
}
