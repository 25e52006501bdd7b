package dispatch

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// DefaultMaxPasses bounds how many queue drain passes one dispatch may
// take before it is declared a runaway feedback loop.
const DefaultMaxPasses = 1000

// ObserverFunc sees every dispatched event exactly once, before its
// listeners run. seq is the emitter's logical delivery stamp.
type ObserverFunc func(seq int64, p path.Path, m event.Mutation)

// Option configures an Emitter.
type Option func(*Emitter)

// WithMaxPasses overrides the drain pass budget.
func WithMaxPasses(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// WithObserver installs a hook that records each dispatched event.
func WithObserver(fn ObserverFunc) Option {
	return func(e *Emitter) {
		e.observer = fn
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// Emitter routes mutation events to pattern-matched listeners, one
// tree per event type.
//
// A mutation emitted while another dispatch is in flight, typically
// from inside a listener, is queued rather than dispatched recursively.
// The in-flight dispatch then drains the queue in whole-batch FIFO
// passes until it is empty or the pass budget runs out. Immediate-phase
// listeners bypass the queue entirely and run at the mutation site.
//
// A listener error aborts the dispatch: queued events are discarded,
// the in-flight flag resets, and the error propagates to the caller of
// the triggering mutation. Listener panics are not recovered; they
// unwind through Emit after the same state reset.
type Emitter struct {
	mu    sync.Mutex
	trees map[event.Type]*Tree

	queue    *pendingQueue
	inFlight atomic.Bool
	clock    *Clock

	maxPasses int
	observer  ObserverFunc
	logger    *slog.Logger
}

// New creates an emitter with empty listener trees.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		trees:     make(map[event.Type]*Tree),
		queue:     newPendingQueue(),
		clock:     NewClock(),
		maxPasses: DefaultMaxPasses,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Clock exposes the delivery sequence clock.
func (e *Emitter) Clock() *Clock {
	return e.clock
}

// Tree returns the listener tree for an event type, creating it on
// first use. Immediate variants and the "all" pseudo-type get their
// own trees.
func (e *Emitter) Tree(t event.Type) *Tree {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, ok := e.trees[t]
	if !ok {
		tr = NewTree()
		e.trees[t] = tr
	}
	return tr
}

func (e *Emitter) treeIfAny(t event.Type) *Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trees[t]
}

// On registers a listener for an event type and returns its handle.
func (e *Emitter) On(t event.Type, l *Listener) *Handle {
	return e.Tree(t).Add(l)
}

// RemoveBranch removes listeners at or below a literal path prefix.
// With typ empty, every tree is swept, immediate and "all" included;
// otherwise only the named type's tree.
func (e *Emitter) RemoveBranch(typ event.Type, prefix path.Path) {
	if typ != "" {
		if tr := e.treeIfAny(typ); tr != nil {
			tr.RemoveBranch(prefix)
		}
		return
	}
	for _, tr := range e.allTrees() {
		tr.RemoveBranch(prefix)
	}
}

// RemoveContext removes every listener registered under the given
// event-context tag, across all trees.
func (e *Emitter) RemoveContext(ctx string) {
	for _, tr := range e.allTrees() {
		tr.RemoveContext(ctx)
	}
}

func (e *Emitter) allTrees() []*Tree {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Tree, 0, len(e.trees))
	for _, tr := range e.trees {
		out = append(out, tr)
	}
	return out
}

// Emit delivers one mutation event at a path.
//
// Immediate-phase listeners fire first, unconditionally. If a dispatch
// is already in flight the event is then queued and Emit returns nil;
// the in-flight drain will deliver it. Otherwise this call becomes the
// dispatcher: it delivers the event and drains everything the
// listeners generate before returning.
func (e *Emitter) Emit(p path.Path, m event.Mutation) error {
	if err := e.deliver(e.treeIfAny(m.Type().Immediate()), p, m); err != nil {
		return err
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		e.queue.Append(queued{path: p, mutation: m})
		return nil
	}

	completed := false
	defer func() {
		if !completed {
			// Listener error or panic: events queued by the failed
			// dispatch must not leak into the next one.
			e.queue.Reset()
		}
		e.inFlight.Store(false)
	}()

	if err := e.drain(p, m); err != nil {
		return err
	}
	completed = true
	return nil
}

// drain dispatches the triggering event, then drains the pending queue
// in whole-batch passes. Each pass takes the entire current queue, so
// events enqueued while a batch runs always land in a later pass.
func (e *Emitter) drain(p path.Path, m event.Mutation) error {
	if err := e.dispatch(p, m); err != nil {
		return err
	}
	for pass := 1; ; pass++ {
		batch := e.queue.TakeAll()
		if len(batch) == 0 {
			return nil
		}
		if pass >= e.maxPasses {
			return e.overflow(batch)
		}
		for _, q := range batch {
			if err := e.dispatch(q.path, q.mutation); err != nil {
				return err
			}
		}
	}
}

// dispatch delivers one event to its own-type listeners, then to "all"
// listeners.
func (e *Emitter) dispatch(p path.Path, m event.Mutation) error {
	seq := e.clock.Next()
	if e.observer != nil {
		e.observer(seq, p, m)
	}
	e.logger.Debug("dispatch mutation event",
		"seq", seq,
		"type", string(m.Type()),
		"path", p.String(),
	)

	if err := e.deliver(e.treeIfAny(m.Type()), p, m); err != nil {
		return err
	}
	return e.deliver(e.treeIfAny(event.TypeAll), p, m)
}

// deliver snapshots the matching listeners and invokes them in order.
func (e *Emitter) deliver(tr *Tree, p path.Path, m event.Mutation) error {
	if tr == nil {
		return nil
	}
	for _, l := range tr.Match(p) {
		captures, _ := l.Pattern.Captures(p)
		if err := l.Fn(captures, m); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) overflow(batch []queued) error {
	rest := e.queue.Snapshot()
	pending := make([]QueuedEvent, 0, len(batch)+len(rest))
	for _, q := range batch {
		pending = append(pending, QueuedEvent{Path: q.path.String(), Type: q.mutation.Type()})
	}
	for _, q := range rest {
		pending = append(pending, QueuedEvent{Path: q.path.String(), Type: q.mutation.Type()})
	}

	e.logger.Error("mutation dispatch exceeded pass budget",
		"passes", e.maxPasses,
		"pending", len(pending),
	)
	return &OverflowError{Passes: e.maxPasses, Pending: pending}
}
