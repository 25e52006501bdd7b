package model

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/ripple/internal/dispatch"
	"github.com/roach88/ripple/internal/path"
	"github.com/roach88/ripple/internal/policy"
)

// DefaultUnloadDelay is how long an unfetch or unsubscribe waits
// before decrementing its counter and re-checking eviction. Server
// processes run with zero delay instead (WithServer).
const DefaultUnloadDelay = 500 * time.Millisecond

// localPrefix marks collections that never touch the backend.
const localPrefix = "_"

type errorHandler struct {
	id int
	fn func(error)
}

// Root owns every piece of state the scoped views share: the emitter,
// the document map, both reference counters, the live-query registry,
// and the error handler list. Derived Model values hold a pointer to
// one Root plus their own overlay fields.
//
// The mutex guards only the document and query maps. It is never held
// across an emit, a backend call, or a user callback.
type Root struct {
	emitter *dispatch.Emitter

	mu          sync.Mutex
	collections map[string]map[string]*Doc
	queries     map[QueryRef]struct{}

	fetched    *CollectionCounter
	subscribed *CollectionCounter

	errMu    sync.Mutex
	errorSeq int
	errorFns []errorHandler

	backend Backend
	bulk    BulkStarter

	unloadDelay time.Duration
	fetchOnly   bool
	policies    policy.Set
	scheduler   Scheduler
	ids         IDSource
	logger      *slog.Logger

	emitterOpts []dispatch.Option

	rootModel *Model
}

func newRoot(opts ...Option) *Root {
	r := &Root{
		collections: make(map[string]map[string]*Doc),
		queries:     make(map[QueryRef]struct{}),
		fetched:     NewCollectionCounter(),
		subscribed:  NewCollectionCounter(),
		unloadDelay: DefaultUnloadDelay,
		scheduler:   realScheduler{},
		ids:         UUIDSource{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	emitterOpts := append([]dispatch.Option{dispatch.WithLogger(r.logger)}, r.emitterOpts...)
	r.emitter = dispatch.New(emitterOpts...)
	if b, ok := r.backend.(BulkStarter); ok {
		r.bulk = b
	}
	return r
}

func (r *Root) getDoc(collection, id string) *Doc {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collections[collection][id]
}

// getOrCreateDoc returns the document, creating it on first access.
// Remote documents get a backend handle and a retention machine; the
// handle's remote-op callback feeds applyRemoteOp.
func (r *Root) getOrCreateDoc(collection, id string) *Doc {
	r.mu.Lock()
	docs := r.collections[collection]
	if docs == nil {
		docs = make(map[string]*Doc)
		r.collections[collection] = docs
	}
	if doc := docs[id]; doc != nil {
		r.mu.Unlock()
		return doc
	}
	doc := newDoc(collection, id)
	if !r.isLocal(collection) && r.backend != nil {
		doc.sync = r.backend.Doc(collection, id)
		doc.retention = newRetention(collection, id, r.logger)
	}
	docs[id] = doc
	r.mu.Unlock()

	if doc.sync != nil {
		doc.sync.OnOp(func(op Op) {
			r.applyRemoteOp(collection, id, op)
		})
	}
	return doc
}

// remoteDoc validates that (collection, id) can be synced before
// creating it: local-only collections and backendless roots are
// caller errors.
func (r *Root) remoteDoc(collection, id string) (*Doc, error) {
	target := collection + path.Separator + id
	if r.isLocal(collection) {
		return nil, newValidationError(ErrCodeLocalCollection, target,
			"collection %q is local-only and cannot be synced", collection)
	}
	if r.backend == nil {
		return nil, newValidationError(ErrCodeNoBackend, target,
			"no backend configured")
	}
	return r.getOrCreateDoc(collection, id), nil
}

func (r *Root) removeDoc(collection, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.collections[collection]
	delete(docs, id)
	if len(docs) == 0 {
		delete(r.collections, collection)
	}
}

func (r *Root) isLocal(collection string) bool {
	if strings.HasPrefix(collection, localPrefix) {
		return true
	}
	p, ok := r.policies.For(collection)
	return ok && p.Local
}

func (r *Root) unloadDelayFor(collection string) time.Duration {
	if p, ok := r.policies.For(collection); ok && p.UnloadDelaySet {
		return p.UnloadDelay
	}
	return r.unloadDelay
}

func (r *Root) fetchOnlyFor(collection string) bool {
	if r.fetchOnly {
		return true
	}
	p, ok := r.policies.For(collection)
	return ok && p.FetchOnly
}

// addErrorFn registers an asynchronous error handler and returns its
// remover. Handlers run in registration order.
func (r *Root) addErrorFn(fn func(error)) func() {
	r.errMu.Lock()
	r.errorSeq++
	id := r.errorSeq
	r.errorFns = append(r.errorFns, errorHandler{id: id, fn: fn})
	r.errMu.Unlock()

	return func() {
		r.errMu.Lock()
		defer r.errMu.Unlock()
		for i, h := range r.errorFns {
			if h.id == id {
				r.errorFns = append(r.errorFns[:i], r.errorFns[i+1:]...)
				return
			}
		}
	}
}

// emitError funnels an asynchronous failure to the registered error
// handlers. Handlers are snapshotted first so one may remove itself.
func (r *Root) emitError(err error) {
	if err == nil {
		return
	}
	r.logger.Error("asynchronous model error", "error", err)

	r.errMu.Lock()
	fns := make([]errorHandler, len(r.errorFns))
	copy(fns, r.errorFns)
	r.errMu.Unlock()

	for _, h := range fns {
		h.fn(err)
	}
}

func (r *Root) registerQuery(q QueryRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[q] = struct{}{}
}

// maybeUnregisterQuery drops a query from the eviction registry once
// both of its own reference counts are zero.
func (r *Root) maybeUnregisterQuery(q QueryRef) {
	if q.FetchCount() > 0 || q.SubscribeCount() > 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queries, q)
}

// hasQueryReference reports whether any registered, actively loaded
// query lists the id with positive membership. Queries are snapshotted
// under the lock and consulted outside it.
func (r *Root) hasQueryReference(collection, id string) bool {
	r.mu.Lock()
	queries := make([]QueryRef, 0, len(r.queries))
	for q := range r.queries {
		queries = append(queries, q)
	}
	r.mu.Unlock()

	for _, q := range queries {
		if q.Collection() != collection {
			continue
		}
		if q.FetchCount() <= 0 && q.SubscribeCount() <= 0 {
			continue
		}
		if q.IDMap()[id] > 0 {
			return true
		}
	}
	return false
}
