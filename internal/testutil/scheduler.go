package testutil

import (
	"sync"
	"time"
)

type scheduled struct {
	delay time.Duration
	fn    func()
}

// ManualScheduler collects deferred work instead of arming timers, so
// tests fire unload delays at a point of their choosing.
//
// Non-positive delays run inline, matching the real scheduler's
// contract.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex; fired funcs run outside it.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []scheduled
}

// NewManualScheduler creates an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After records fn for a later FireNext or FireAll call. A
// non-positive d runs fn inline before After returns.
func (s *ManualScheduler) After(d time.Duration, fn func()) {
	if d <= 0 {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, scheduled{delay: d, fn: fn})
}

// Len returns the number of deferred funcs not yet fired.
func (s *ManualScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// FireNext runs the oldest deferred func and reports whether one ran.
func (s *ManualScheduler) FireNext() bool {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	next.fn()
	return true
}

// FireAll runs deferred funcs in order until none remain, including
// any scheduled by the fired funcs themselves. Returns the number
// fired.
func (s *ManualScheduler) FireAll() int {
	fired := 0
	for s.FireNext() {
		fired++
	}
	return fired
}
