package store

import (
	"context"
	"sync"

	"github.com/roach88/ripple/internal/model"
)

// DocHandle is the per-document sync handle minted by Conn. Fetch and
// Subscribe load the stored snapshot inline; operation delivery honors
// the connection's pause state so pending work is observable.
type DocHandle struct {
	conn       *Conn
	collection string
	id         string

	mu         sync.Mutex
	subscribed bool
	data       any
	onOp       func(op model.Op)
	pending    []model.Op
	idle       []func()
	destroyed  bool
}

// Fetch loads the current stored snapshot into the handle.
func (h *DocHandle) Fetch(done func(err error)) {
	done(h.load())
}

// Subscribe loads the snapshot and marks the handle live for
// operation delivery.
func (h *DocHandle) Subscribe(done func(err error)) {
	err := h.load()
	if err == nil {
		h.mu.Lock()
		h.subscribed = true
		h.mu.Unlock()
	}
	done(err)
}

// Unsubscribe stops future operation delivery. Operations already
// buffered still count as pending until the connection flushes, so
// eviction keeps waiting for them.
func (h *DocHandle) Unsubscribe(done func(err error)) {
	h.mu.Lock()
	h.subscribed = false
	h.mu.Unlock()
	done(nil)
}

func (h *DocHandle) load() error {
	data, _, ok, err := h.conn.store.GetDoc(context.Background(), h.collection, h.id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	if ok {
		h.data = data
	}
	h.mu.Unlock()
	return nil
}

// Subscribed reports whether the handle delivers operations.
func (h *DocHandle) Subscribed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribed
}

// Data returns the last loaded snapshot.
func (h *DocHandle) Data() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// HasPending reports whether buffered operations await delivery.
func (h *DocHandle) HasPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending) > 0
}

// WhenNothingPending runs fn once the buffer is empty, immediately
// when it already is.
func (h *DocHandle) WhenNothingPending(fn func()) {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		fn()
		return
	}
	h.idle = append(h.idle, fn)
	h.mu.Unlock()
}

// OnOp registers the operation callback. The model registers exactly
// one per handle.
func (h *DocHandle) OnOp(fn func(op model.Op)) {
	h.mu.Lock()
	h.onOp = fn
	h.mu.Unlock()
}

// Destroy detaches the handle from its connection. Nothing is
// delivered afterwards; the next Doc call mints a fresh handle.
func (h *DocHandle) Destroy() {
	h.mu.Lock()
	h.destroyed = true
	h.subscribed = false
	h.onOp = nil
	h.pending = nil
	h.idle = nil
	h.mu.Unlock()
	h.conn.dropHandle(h.collection, h.id)
}

// deliver hands one operation to the model, or buffers it while the
// connection is paused. Unsubscribed handles drop operations: a plain
// fetch does not follow the document.
func (h *DocHandle) deliver(op model.Op) {
	paused := h.conn.isPaused()
	h.mu.Lock()
	if h.destroyed || !h.subscribed {
		h.mu.Unlock()
		return
	}
	if paused {
		h.pending = append(h.pending, op)
		h.mu.Unlock()
		return
	}
	fn := h.onOp
	h.mu.Unlock()

	if fn != nil {
		fn(op)
	}
}

// flush drains buffered operations in arrival order, then runs the
// callbacks parked by WhenNothingPending. Operations buffered for a
// subscription that has since ended are dropped, not delivered.
func (h *DocHandle) flush() {
	h.mu.Lock()
	ops := h.pending
	h.pending = nil
	idle := h.idle
	h.idle = nil
	fn := h.onOp
	subscribed := h.subscribed
	h.mu.Unlock()

	if subscribed && fn != nil {
		for _, op := range ops {
			fn(op)
		}
	}
	for _, cb := range idle {
		cb()
	}
}
