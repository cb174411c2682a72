package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viaacode/teamleader2db/internal/logger"
)

// Runner executes one background job at a time. A second Start while a job
// is in flight is refused; this is the single "job running" flag that keeps
// two syncs (or two exports) from overlapping.
type Runner struct {
	name    string
	running atomic.Bool
	wg      sync.WaitGroup

	mu      sync.Mutex
	lastRun *time.Time
}

// NewRunner creates a new Runner with a name used in logs.
func NewRunner(name string) *Runner {
	return &Runner{name: name}
}

// Start launches job on a fresh background context (the triggering HTTP
// request's context dies with the response). Returns false when a previous
// job is still running.
func (r *Runner) Start(job func(ctx context.Context)) bool {
	if !r.running.CompareAndSwap(false, true) {
		return false
	}

	ctx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
	log := logger.FromContext(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)

		log.Info("Background job started", "job", r.name)
		job(ctx)

		now := time.Now()
		r.mu.Lock()
		r.lastRun = &now
		r.mu.Unlock()
		log.Info("Background job finished", "job", r.name)
	}()
	return true
}

// Running reports whether a job is currently in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// LastRun returns the completion time of the most recent job, if any.
func (r *Runner) LastRun() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// Shutdown waits for an in-flight job to finish or the context to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.FromContext(ctx).Warn("Shutdown timeout waiting for job", "job", r.name)
		return ctx.Err()
	}
}
