// Package shutdown coordinates the end of a run: natural completion of every scheduled job,
// or a termination signal followed by a bounded drain and a forced cancellation.
package shutdown

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// State is the lifecycle state of the Coordinator.
type State int32

const (
	StateRunning State = iota
	StateTerminating
	StateExited
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateTerminating:
		return "TERMINATING"
	case StateExited:
		return "EXITED"
	default:
		return "UNKNOWN"
	}
}

// Pool is the part of the worker pool the Coordinator observes.
type Pool interface {
	Done() <-chan struct{}
	Terminated() bool
	ShutdownNow() int
}

// FinalizeFunc releases the resources of the run (log files, metrics endpoint, tracer).
type FinalizeFunc func(ctx context.Context) error

// Outcome describes how a run ended.
type Outcome struct {
	// Completed is true when every scheduled job finished or was dropped before finalization.
	Completed bool
	// Forced is true when running jobs had to be cancelled.
	Forced bool
	// Dropped is the number of scheduled jobs that never started because of the forced shutdown.
	Dropped int
	// Err is the error returned by the finalize routine.
	Err error
}

// Coordinator waits for the pool and finalizes exactly once.
type Coordinator struct {
	pool         Pool
	drainTimeout time.Duration
	finalize     FinalizeFunc

	state       atomic.Int32
	once        sync.Once
	finalizeErr error
}

// New creates a Coordinator. drainTimeout bounds both the cooperative and the forced wait.
func New(pool Pool, drainTimeout time.Duration, finalize FinalizeFunc) *Coordinator {
	if finalize == nil {
		finalize = func(context.Context) error { return nil }
	}
	return &Coordinator{
		pool:         pool,
		drainTimeout: drainTimeout,
		finalize:     finalize,
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run blocks until the pool terminates or ctx is cancelled (by a termination signal),
// drains or forces the pool as needed, and then finalizes.
func (c *Coordinator) Run(ctx context.Context) Outcome {
	select {
	case <-c.pool.Done():
		logger.Infof("All scheduled tests finished!")
		return Outcome{Completed: true, Err: c.Finalize()}
	case <-ctx.Done():
	}

	c.state.CompareAndSwap(int32(StateRunning), int32(StateTerminating))
	if c.pool.Terminated() {
		logger.Infof("All scheduled tests finished!")
		return Outcome{Completed: true, Err: c.Finalize()}
	}

	logger.Infof("User initiated shutdown. Waiting %s for tests to finish", c.drainTimeout)
	if c.await(c.drainTimeout) {
		return Outcome{Completed: true, Err: c.Finalize()}
	}

	logger.Infof("Some tests are still running. Forcing shutdown and waiting %s more", c.drainTimeout)
	dropped := c.pool.ShutdownNow()
	completed := c.await(c.drainTimeout)
	if !completed {
		logger.Warnf("Some tests did not stop within %s after forced shutdown.", c.drainTimeout)
	}
	logger.Infof("%d scheduled tests dropped", dropped)
	return Outcome{Completed: completed, Forced: true, Dropped: dropped, Err: c.Finalize()}
}

func (c *Coordinator) await(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.pool.Done():
		return true
	case <-timer.C:
		return c.pool.Terminated()
	}
}

// Finalize runs the finalize routine once, whichever path calls it first, and moves to EXITED.
// Later calls return the first result.
func (c *Coordinator) Finalize() error {
	c.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
		defer cancel()
		c.finalizeErr = c.finalize(ctx)
		if c.finalizeErr != nil {
			logger.Errorf("Shutdown finished with errors: %v", c.finalizeErr)
		}
		c.state.Store(int32(StateExited))
		logger.Infof("Shutdown")
	})
	return c.finalizeErr
}
