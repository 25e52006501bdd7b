package dispatch

import (
	"sync"

	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// queued is one deferred mutation event awaiting a drain pass.
type queued struct {
	path     path.Path
	mutation event.Mutation
}

// pendingQueue is a FIFO of mutation events generated while a dispatch
// is in flight.
//
// The queue is unbounded so cascading listeners can enqueue freely
// without blocking; the emitter's pass budget bounds total work
// instead. The mutex covers completion callbacks landing from backend
// goroutines; dispatch itself drains on a single logical thread.
type pendingQueue struct {
	mu     sync.Mutex
	events []queued
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{events: make([]queued, 0, 16)}
}

// Append adds an event to the back of the queue.
func (q *pendingQueue) Append(e queued) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// TakeAll removes and returns the whole queue as one batch, leaving a
// fresh queue behind for the events the batch's listeners generate.
func (q *pendingQueue) TakeAll() []queued {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	batch := q.events
	q.events = make([]queued, 0, 16)
	return batch
}

// Snapshot copies the queue without draining it, for diagnostics.
func (q *pendingQueue) Snapshot() []queued {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]queued, len(q.events))
	copy(out, q.events)
	return out
}

// Len returns the current queue length.
func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Reset drops all queued events, releasing their mutation pointers.
func (q *pendingQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.events {
		q.events[i] = queued{}
	}
	q.events = q.events[:0]
}
