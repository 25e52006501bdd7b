// Package testutil provides deterministic stand-ins for the model's
// pluggable collaborators: a fixed id source and a manual scheduler.
package testutil

import "sync"

// FixedIDSource returns predetermined document ids in order.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario with the same FixedIDSource produces
// byte-identical traces.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type FixedIDSource struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDSource creates a source that returns ids in order.
//
// Example:
//
//	ids := NewFixedIDSource("doc-1", "doc-2")
//	ids.NewID() // "doc-1"
//	ids.NewID() // "doc-2"
//	ids.NewID() // panic: all ids exhausted
func NewFixedIDSource(ids ...string) *FixedIDSource {
	return &FixedIDSource{
		ids: ids,
		idx: 0,
	}
}

// NewID returns the next predetermined id.
//
// Panics if all ids have been consumed. This is a fail-fast approach
// to catch test misconfiguration (the test created more documents than
// expected).
func (s *FixedIDSource) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.ids) {
		panic("FixedIDSource: all ids exhausted")
	}
	id := s.ids[s.idx]
	s.idx++
	return id
}
