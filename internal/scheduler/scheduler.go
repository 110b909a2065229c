// Package scheduler provides the periodic reconciliation trigger.
//
// The scheduler is a single-slot timer: enabling it installs a ticker task,
// disabling it removes and stops the task. Enable and Disable race safely
// from concurrent goroutines; exactly one caller wins each transition.
package scheduler

import (
	"sync"
	"time"

	"github.com/profscale/profscale/types"
)

// task is one scheduling session: a ticker goroutine plus its stop signal.
type task struct {
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Scheduler fires a callback at a fixed interval while enabled.
//
// The first invocation happens one full interval after Enable, never
// immediately. Callbacks are invoked sequentially from the task goroutine;
// a slow callback delays subsequent ticks rather than overlapping them.
type Scheduler struct {
	callback func()
	logger   types.Logger

	mu      sync.Mutex
	current *task
	last    *task
}

// New creates a scheduler that invokes callback on each tick.
//
// Parameters:
//   - callback: Function invoked once per interval while enabled
//   - logger: Logger instance
//
// Returns:
//   - *Scheduler: A new scheduler in the disabled state
func New(callback func(), logger types.Logger) *Scheduler {
	return &Scheduler{
		callback: callback,
		logger:   logger,
	}
}

// Enable installs a periodic task with the given interval.
//
// If the scheduler is already enabled, Enable is a no-op and returns false;
// the existing task keeps its original interval.
//
// Parameters:
//   - interval: Tick period, must be positive
//
// Returns:
//   - bool: true if a new task was installed, false if already enabled
func (s *Scheduler) Enable(interval time.Duration) bool {
	if interval <= 0 {
		s.logger.Warn("Ignoring enable with non-positive interval", "interval", interval)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return false
	}

	t := &task{
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	s.current = t

	go s.run(t)

	s.logger.Debug("Scheduler enabled", "interval", interval)

	return true
}

// Disable removes and stops the current task, if any.
//
// Disable does not wait for an in-flight callback to return; it only
// guarantees no further ticks are delivered after the call. Idempotent.
//
// Returns:
//   - bool: true if a task was removed, false if already disabled
func (s *Scheduler) Disable() bool {
	s.mu.Lock()
	t := s.current
	s.current = nil
	if t != nil {
		s.last = t
	}
	s.mu.Unlock()

	if t == nil {
		return false
	}

	close(t.stopCh)
	s.logger.Debug("Scheduler disabled")

	return true
}

// Enabled reports whether a task is currently installed.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current != nil
}

// Wait blocks until the most recently stopped task goroutine has exited.
// Used by tests to avoid observing a tick that was already in flight when
// Disable was called; returns immediately if nothing was ever disabled.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	t := s.last
	s.mu.Unlock()

	if t == nil {
		return
	}

	<-t.doneCh
}

func (s *Scheduler) run(t *task) {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			// Re-check the stop signal: a Disable racing the tick must win,
			// otherwise a demoted node could fire one extra pass.
			select {
			case <-t.stopCh:
				return
			default:
			}

			s.callback()
		}
	}
}
