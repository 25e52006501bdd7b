package model

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// Target names one thing to fetch or subscribe: a document by dotted
// collection.id path, or a live query by reference. At most one field
// is set; a zero Target names the calling scope's own path.
type Target struct {
	Path  string
	Query QueryRef
}

// Paths builds document targets from dotted paths.
func Paths(paths ...string) []Target {
	out := make([]Target, len(paths))
	for i, p := range paths {
		out[i] = Target{Path: p}
	}
	return out
}

// Queries builds query targets.
func Queries(qs ...QueryRef) []Target {
	out := make([]Target, len(qs))
	for i, q := range qs {
		out[i] = Target{Query: q}
	}
	return out
}

// group aggregates the completions of one bulk operation. The wrapped
// done fires exactly once, after close and after every added
// completion has landed, with the first error observed.
type group struct {
	mu      sync.Mutex
	pending int
	err     error
	done    func(error)
}

func newGroup(done func(error)) *group {
	return &group{pending: 1, done: done}
}

// add reserves one completion slot. The returned func tolerates being
// called more than once; extra calls are ignored.
func (g *group) add() func(error) {
	g.mu.Lock()
	g.pending++
	g.mu.Unlock()

	var once sync.Once
	return func(err error) {
		once.Do(func() { g.complete(err) })
	}
}

// close releases the slot held since construction, so a group with no
// added completions still fires.
func (g *group) close() {
	g.complete(nil)
}

func (g *group) complete(err error) {
	g.mu.Lock()
	if err != nil && g.err == nil {
		g.err = err
	}
	g.pending--
	fire := g.pending == 0
	err = g.err
	g.mu.Unlock()

	if fire {
		g.done(err)
	}
}

// wrapDone routes a completion. A nil done falls through to the root
// error handlers; panics inside a caller's done are recovered and
// routed there too, so a completion bug cannot unwind the dispatching
// stack.
func (m *Model) wrapDone(done func(error)) func(error) {
	if done == nil {
		return func(err error) { m.root.emitError(err) }
	}
	return func(err error) {
		defer m.recoverCallback()
		done(err)
	}
}

func (m *Model) wrapCountDone(done func(remaining int, err error)) func(int, error) {
	if done == nil {
		return func(_ int, err error) { m.root.emitError(err) }
	}
	return func(remaining int, err error) {
		defer m.recoverCallback()
		done(remaining, err)
	}
}

func (m *Model) recoverCallback() {
	if r := recover(); r != nil {
		m.root.emitError(fmt.Errorf("panic in completion callback: %v", r))
	}
}

// FetchAsync loads every target and calls done once all completions
// have landed, with the first error. No targets means this scope's own
// path. A nil done routes errors to the root error handlers.
func (m *Model) FetchAsync(done func(error), targets ...Target) {
	m.bulkOp(done, targets, m.fetchTarget)
}

// SubscribeAsync loads every target and keeps each updated with
// remote operations.
func (m *Model) SubscribeAsync(done func(error), targets ...Target) {
	m.bulkOp(done, targets, m.subscribeTarget)
}

// UnfetchAsync releases one fetch reference per target.
func (m *Model) UnfetchAsync(done func(error), targets ...Target) {
	m.bulkOp(done, targets, m.unfetchTarget)
}

// UnsubscribeAsync releases one subscribe reference per target.
func (m *Model) UnsubscribeAsync(done func(error), targets ...Target) {
	m.bulkOp(done, targets, m.unsubscribeTarget)
}

// Fetch is FetchAsync blocking on completion or ctx.
func (m *Model) Fetch(ctx context.Context, targets ...Target) error {
	return m.await(ctx, func(done func(error)) { m.FetchAsync(done, targets...) })
}

// Subscribe is SubscribeAsync blocking on completion or ctx.
func (m *Model) Subscribe(ctx context.Context, targets ...Target) error {
	return m.await(ctx, func(done func(error)) { m.SubscribeAsync(done, targets...) })
}

// Unfetch is UnfetchAsync blocking on completion or ctx. Note that the
// completion includes the configured unload delay.
func (m *Model) Unfetch(ctx context.Context, targets ...Target) error {
	return m.await(ctx, func(done func(error)) { m.UnfetchAsync(done, targets...) })
}

// Unsubscribe is UnsubscribeAsync blocking on completion or ctx.
func (m *Model) Unsubscribe(ctx context.Context, targets ...Target) error {
	return m.await(ctx, func(done func(error)) { m.UnsubscribeAsync(done, targets...) })
}

func (m *Model) await(ctx context.Context, start func(done func(error))) error {
	ch := make(chan error, 1)
	start(func(err error) { ch <- err })
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bulkOp runs one operation over a target list as a single backend
// batch. Validation failures of individual targets flow through the
// group like backend errors.
func (m *Model) bulkOp(done func(error), targets []Target, op func(t Target, done func(error))) {
	g := newGroup(m.wrapDone(done))
	if len(targets) == 0 {
		// an empty target path resolves to this scope's own path
		targets = []Target{{}}
	}
	if m.root.bulk != nil {
		m.root.bulk.StartBulk()
	}
	for _, t := range targets {
		op(t, g.add())
	}
	if m.root.bulk != nil {
		m.root.bulk.EndBulk()
	}
	g.close()
}

func (m *Model) fetchTarget(t Target, done func(error)) {
	if t.Query != nil {
		m.fetchQuery(t.Query, done)
		return
	}
	collection, id, err := m.resolveTarget(t.Path)
	if err != nil {
		done(err)
		return
	}
	m.fetchDoc(collection, id, done)
}

func (m *Model) subscribeTarget(t Target, done func(error)) {
	if t.Query != nil {
		m.subscribeQuery(t.Query, done)
		return
	}
	collection, id, err := m.resolveTarget(t.Path)
	if err != nil {
		done(err)
		return
	}
	m.subscribeDoc(collection, id, done)
}

func (m *Model) unfetchTarget(t Target, done func(error)) {
	if t.Query != nil {
		m.unfetchQuery(t.Query, done)
		return
	}
	collection, id, err := m.resolveTarget(t.Path)
	if err != nil {
		done(err)
		return
	}
	m.unfetchDoc(collection, id, func(_ int, err error) { done(err) })
}

func (m *Model) unsubscribeTarget(t Target, done func(error)) {
	if t.Query != nil {
		m.unsubscribeQuery(t.Query, done)
		return
	}
	collection, id, err := m.resolveTarget(t.Path)
	if err != nil {
		done(err)
		return
	}
	m.unsubscribeDoc(collection, id, func(_ int, err error) { done(err) })
}

// FetchDoc loads one document without a standing subscription.
func (m *Model) FetchDoc(collection, id string, done func(err error)) {
	m.fetchDoc(collection, id, m.wrapDone(done))
}

// SubscribeDoc loads one document and keeps it updated with remote
// operations. Already-subscribed documents complete without a network
// call; in fetch-only mode the subscription degrades to a fetch.
func (m *Model) SubscribeDoc(collection, id string, done func(err error)) {
	m.subscribeDoc(collection, id, m.wrapDone(done))
}

// UnfetchDoc releases one fetch reference after the configured unload
// delay and reports the remaining count. At zero the document becomes
// an eviction candidate.
func (m *Model) UnfetchDoc(collection, id string, done func(remaining int, err error)) {
	m.unfetchDoc(collection, id, m.wrapCountDone(done))
}

// UnsubscribeDoc releases one subscribe reference after the configured
// unload delay and reports the remaining count. The last release tears
// down the backend subscription before the eviction check.
func (m *Model) UnsubscribeDoc(collection, id string, done func(remaining int, err error)) {
	m.unsubscribeDoc(collection, id, m.wrapCountDone(done))
}

func (m *Model) fetchDoc(collection, id string, done func(error)) {
	doc, err := m.root.remoteDoc(collection, id)
	if err != nil {
		done(err)
		return
	}
	m.root.fetched.Increment(collection, id)
	doc.retention.Reference()
	doc.sync.Fetch(func(err error) {
		if err != nil {
			done(err)
			return
		}
		done(m.docLoaded(doc))
	})
}

func (m *Model) subscribeDoc(collection, id string, done func(error)) {
	doc, err := m.root.remoteDoc(collection, id)
	if err != nil {
		done(err)
		return
	}
	m.root.subscribed.Increment(collection, id)
	doc.retention.Reference()
	if doc.sync.Subscribed() {
		done(m.docLoaded(doc))
		return
	}
	complete := func(err error) {
		if err != nil {
			done(err)
			return
		}
		done(m.docLoaded(doc))
	}
	if m.root.fetchOnlyFor(collection) {
		doc.sync.Fetch(complete)
		return
	}
	doc.sync.Subscribe(complete)
}

// docLoaded adopts the backend snapshot after a successful load and
// emits Load once per residency. Later loads of an already resident
// document keep the local tree, which remote operations maintain.
func (m *Model) docLoaded(doc *Doc) error {
	doc.retention.Resident()
	if doc.loaded {
		return nil
	}
	doc.loaded = true
	doc.data = doc.sync.Data()
	ev := event.NewLoad(doc.data, m.passed)
	return m.emit(path.Path{doc.Collection, doc.ID}, ev)
}

func (m *Model) unfetchDoc(collection, id string, done func(remaining int, err error)) {
	if m.root.isLocal(collection) {
		done(0, newValidationError(ErrCodeLocalCollection, collection+path.Separator+id,
			"collection %q is local-only and cannot be synced", collection))
		return
	}
	finish := func() {
		remaining := m.root.fetched.Decrement(collection, id)
		if remaining == 0 {
			m.maybeUnloadDoc(collection, id)
		}
		done(remaining, nil)
	}
	m.root.scheduler.After(m.root.unloadDelayFor(collection), finish)
}

func (m *Model) unsubscribeDoc(collection, id string, done func(remaining int, err error)) {
	if m.root.isLocal(collection) {
		done(0, newValidationError(ErrCodeLocalCollection, collection+path.Separator+id,
			"collection %q is local-only and cannot be synced", collection))
		return
	}
	finish := func() {
		remaining := m.root.subscribed.Decrement(collection, id)
		if remaining > 0 {
			done(remaining, nil)
			return
		}
		doc := m.root.getDoc(collection, id)
		if doc == nil || doc.sync == nil || m.root.fetchOnlyFor(collection) {
			m.maybeUnloadDoc(collection, id)
			done(0, nil)
			return
		}
		doc.sync.Unsubscribe(func(err error) {
			if err != nil {
				done(0, err)
				return
			}
			m.maybeUnloadDoc(collection, id)
			done(0, nil)
		})
	}
	m.root.scheduler.After(m.root.unloadDelayFor(collection), finish)
}

// maybeUnloadDoc evicts a document unless something still justifies
// residency: a direct reference, a live query listing the id, or
// pending backend operations. The pending case re-arms the check on
// the handle's drain callback instead of polling.
func (m *Model) maybeUnloadDoc(collection, id string) {
	doc := m.root.getDoc(collection, id)
	if doc == nil || doc.sync == nil {
		return
	}
	if m.root.fetched.Get(collection, id) > 0 || m.root.subscribed.Get(collection, id) > 0 {
		doc.retention.Retain()
		return
	}
	if m.root.hasQueryReference(collection, id) {
		doc.retention.Retain()
		return
	}
	doc.retention.Release()
	if doc.sync.HasPending() {
		doc.sync.WhenNothingPending(func() {
			m.maybeUnloadDoc(collection, id)
		})
		return
	}
	m.evictDoc(doc)
}

// evictDoc removes the document, destroys its backend handle, and
// emits Unload with the final snapshot. An Unload listener error has
// no mutation caller to land in and goes to the error handlers.
func (m *Model) evictDoc(doc *Doc) {
	previous := doc.data
	m.root.removeDoc(doc.Collection, doc.ID)
	doc.sync.Destroy()
	doc.retention.Evict()
	m.root.logger.Debug("document evicted",
		"collection", doc.Collection,
		"id", doc.ID)
	ev := event.NewUnload(previous, m.passed)
	if err := m.emit(path.Path{doc.Collection, doc.ID}, ev); err != nil {
		m.root.emitError(err)
	}
}

func (m *Model) fetchQuery(q QueryRef, done func(error)) {
	m.root.registerQuery(q)
	q.Fetch(done)
}

func (m *Model) subscribeQuery(q QueryRef, done func(error)) {
	m.root.registerQuery(q)
	q.Subscribe(done)
}

// unfetchQuery releases the query and then sweeps the documents it was
// holding resident. The id set is snapshotted before the release so
// the sweep covers exactly what the query contributed.
func (m *Model) unfetchQuery(q QueryRef, done func(error)) {
	ids := queryIDs(q)
	q.Unfetch(func(err error) {
		if err != nil {
			done(err)
			return
		}
		m.root.maybeUnregisterQuery(q)
		for _, id := range ids {
			m.maybeUnloadDoc(q.Collection(), id)
		}
		done(nil)
	})
}

func (m *Model) unsubscribeQuery(q QueryRef, done func(error)) {
	ids := queryIDs(q)
	q.Unsubscribe(func(err error) {
		if err != nil {
			done(err)
			return
		}
		m.root.maybeUnregisterQuery(q)
		for _, id := range ids {
			m.maybeUnloadDoc(q.Collection(), id)
		}
		done(nil)
	})
}

// queryIDs snapshots a query's member ids in sorted order so eviction
// sweeps are deterministic.
func queryIDs(q QueryRef) []string {
	idMap := q.IDMap()
	ids := make([]string, 0, len(idMap))
	for id := range idMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IngestSnapshot adopts a backend snapshot for a document that arrived
// outside a direct fetch, typically a query result. The first snapshot
// of a residency emits Load; later ones are ignored, the local tree is
// maintained by remote operations instead.
func (m *Model) IngestSnapshot(collection, id string, data any) error {
	doc, err := m.root.remoteDoc(collection, id)
	if err != nil {
		return err
	}
	doc.retention.Reference()
	doc.retention.Resident()
	if doc.loaded {
		return nil
	}
	doc.loaded = true
	doc.data = data
	ev := event.NewLoad(doc.data, m.passed)
	return m.emit(path.Path{collection, id}, ev)
}

// RetentionState reports where a document is in its residency
// lifecycle: one of the State constants, StateLocal for local-only
// documents, or empty when no document exists.
func (m *Model) RetentionState(collection, id string) string {
	doc := m.root.getDoc(collection, id)
	if doc == nil {
		return ""
	}
	if doc.retention == nil {
		return StateLocal
	}
	return doc.retention.Current()
}
