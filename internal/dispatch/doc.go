// Package dispatch implements ordered delivery of mutation events to
// pattern-matched listeners.
//
// Listeners for one event type live in a Tree, a trie over pattern
// segments with dedicated edges for the "*" and trailing "**"
// wildcards. Nodes are arena-allocated and addressed by index;
// registration order inside a node survives removal because removed
// listeners leave tombstone slots behind until compaction.
//
// The Emitter owns one tree per event type, plus trees for the
// immediate-phase variants and the "all" pseudo-type. Delivery is
// re-entrant but never parallel: a mutation emitted by a listener while
// a dispatch is in flight is appended to a pending queue and drained in
// whole-batch FIFO passes after the current batch finishes. A dispatch
// whose listeners keep generating new events past the pass budget fails
// with OverflowError carrying the undelivered queue.
//
// All dispatch state belongs to a single root model instance and runs
// on one logical thread of control. Queue appends are mutex-guarded so
// completion callbacks landing from backend goroutines cannot corrupt
// the batch, but callers remain responsible for serializing dispatch
// itself.
package dispatch
