// Package pool provides the bounded worker pool that runs delayed test jobs.
package pool

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// Task is a unit of work run by the pool. ctx is cancelled by ShutdownNow.
type Task func(ctx context.Context)

// ScheduledPool runs delayed tasks on at most size concurrent worker slots.
// Each task waits on its own timer and then for a free slot, so it never starts
// before its delay has elapsed but may start later when all slots are busy.
type ScheduledPool struct {
	size   int64
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	shutdown    bool
	nextID      uint64
	waiting     map[uint64]struct{} // scheduled but not started
	outstanding int                 // waiting + running
	running     int

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a pool with size worker slots.
func New(size int) *ScheduledPool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ScheduledPool{
		size:    int64(size),
		sem:     semaphore.NewWeighted(int64(size)),
		ctx:     ctx,
		cancel:  cancel,
		waiting: make(map[uint64]struct{}),
		done:    make(chan struct{}),
	}
}

// Size returns the number of worker slots.
func (p *ScheduledPool) Size() int {
	return int(p.size)
}

// Schedule submits task to run once after delay. The delay is measured from this call.
// It returns exception.ErrPoolShutdown after Shutdown or ShutdownNow.
func (p *ScheduledPool) Schedule(delay time.Duration, task Task) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return exception.ErrPoolShutdown
	}
	id := p.nextID
	p.nextID++
	p.waiting[id] = struct{}{}
	p.outstanding++
	p.mu.Unlock()

	go p.runAfter(id, delay, task)
	return nil
}

func (p *ScheduledPool) runAfter(id uint64, delay time.Duration, task Task) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-p.ctx.Done():
		p.finish(false)
		return
	}

	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		p.finish(false)
		return
	}
	defer p.sem.Release(1)

	p.mu.Lock()
	if p.ctx.Err() != nil {
		// ShutdownNow already counted this task as dropped.
		p.mu.Unlock()
		p.finish(false)
		return
	}
	delete(p.waiting, id)
	p.running++
	p.mu.Unlock()

	p.execute(task)
	p.finish(true)
}

func (p *ScheduledPool) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Pool: Task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	task(p.ctx)
}

func (p *ScheduledPool) finish(started bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding--
	if started {
		p.running--
	}
	p.checkTerminatedLocked()
}

func (p *ScheduledPool) checkTerminatedLocked() {
	if p.shutdown && p.outstanding == 0 {
		p.doneOnce.Do(func() { close(p.done) })
	}
}

// Shutdown closes submission. Already scheduled tasks still run at their time.
func (p *ScheduledPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	p.checkTerminatedLocked()
}

// ShutdownNow closes submission, cancels the context of running tasks and drops every task
// that has not started. It returns the number of dropped tasks.
func (p *ScheduledPool) ShutdownNow() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	dropped := len(p.waiting)
	p.waiting = make(map[uint64]struct{})
	p.cancel()
	p.checkTerminatedLocked()
	return dropped
}

// Done is closed once the pool is shut down and every task has finished or been dropped.
func (p *ScheduledPool) Done() <-chan struct{} {
	return p.done
}

// Terminated reports whether Done is closed.
func (p *ScheduledPool) Terminated() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// AwaitTermination blocks until the pool terminates or ctx is done, and reports whether it terminated.
func (p *ScheduledPool) AwaitTermination(ctx context.Context) bool {
	select {
	case <-p.done:
		return true
	case <-ctx.Done():
		return p.Terminated()
	}
}

// Running returns the number of tasks currently executing.
func (p *ScheduledPool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Waiting returns the number of scheduled tasks that have not started.
func (p *ScheduledPool) Waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}
