package dispatch

import (
	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// Func is a listener callback. captures holds the wildcard bindings of
// the listener's pattern against the delivered path, in pattern order.
// A non-nil error aborts the dispatch in progress and propagates to the
// caller of the triggering mutation.
type Func func(captures []string, m event.Mutation) error

// A Listener pairs a pattern with its callback. Context is the
// event-context tag the listener was registered under, empty for none.
// Each registration needs its own Listener value; registering the same
// value twice confuses removal.
type Listener struct {
	Pattern path.Pattern
	Context string
	Fn      Func
}

// A Handle identifies one listener registration in one tree. Removal
// through a handle is idempotent, and a handle left over from a
// RemoveBranch or RemoveContext sweep is safely inert.
type Handle struct {
	tree *Tree
	node int32
	slot int
	l    *Listener
}

// Listener returns the registered listener.
func (h *Handle) Listener() *Listener {
	return h.l
}

// Remove detaches the registration from its tree. Safe to call from
// inside a listener callback, including the listener being removed.
func (h *Handle) Remove() {
	h.tree.remove(h)
}
