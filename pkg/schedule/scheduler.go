// Package schedule runs deferred work on one logical thread.
//
// Tasks are keyed: scheduling a key that is already pending replaces the
// earlier task, which is how bursts of edits coalesce into one write.
// Callbacks never run concurrently with each other.
package schedule

import (
	"sync"
	"time"
)

// Scheduler runs keyed, debounced callbacks.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	tasks   map[string]*task
	stopped bool

	run sync.Mutex
}

type task struct {
	timer Timer
	due   time.Time
}

// New creates a scheduler on clock. A nil clock uses RealClock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		clock: clock,
		tasks: make(map[string]*task),
	}
}

// Clock returns the scheduler's time source.
func (s *Scheduler) Clock() Clock {
	return s.clock
}

// Debounce schedules fn under key after delay, replacing any pending task
// with the same key.
func (s *Scheduler) Debounce(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}

	t := &task{due: s.clock.Now().Add(delay)}
	t.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.tasks[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, key)
		s.mu.Unlock()

		s.run.Lock()
		defer s.run.Unlock()
		fn()
	})
	s.tasks[key] = t
}

// Cancel drops the pending task for key and reports whether there was one.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Pending reports whether a task is scheduled under key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Due returns when the task under key will run.
func (s *Scheduler) Due(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return time.Time{}, false
	}
	return t.due, true
}

// Keys returns the keys of all pending tasks.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tasks))
	for k := range s.tasks {
		out = append(out, k)
	}
	return out
}

// Stop cancels every pending task and rejects new ones. It waits for a
// running callback to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for k, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, k)
	}
	s.mu.Unlock()

	s.run.Lock()
	defer s.run.Unlock()
}
