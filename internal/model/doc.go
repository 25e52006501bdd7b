// Package model implements the document model: scoped views over a
// shared dispatch state, JSON-like document trees grouped into
// collections, mutation events, and the reference-counted residency
// lifecycle that decides when a document may be evicted.
//
// # Scopes
//
// A Model is a cheap view onto one Root. Deriving a scope adjusts a
// path prefix (At, Scope), the passed-context bag (Pass), the silent
// flag (Silent), or the event-context tag (EventContext); every scope
// shares the Root's emitter, collections, counters, and query registry.
// All mutation and notification logic runs on one logical thread of
// control; suspension happens only at the backend boundary and in
// eviction delay timers, both of which resume via callbacks.
//
// # Residency lifecycle
//
// Remote documents are loaded through fetch and subscribe references,
// tracked per (collection, id) in two counters. Releasing the last
// reference starts a delayed re-check; the document is evicted only
// when both counters are zero, no registered live query lists the id,
// and the backend reports no pending operations. Eviction removes the
// document, destroys its backend handle, and emits an Unload event
// carrying the final snapshot. The per-document state machine records
// the journey and can be inspected with RetentionState.
//
// Collections whose name starts with "_" are local-only: they never
// touch the backend and cannot be fetched or subscribed.
package model
