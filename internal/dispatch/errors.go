package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/ripple/internal/event"
)

// maxReportedPending caps how many undelivered events an OverflowError
// message spells out.
const maxReportedPending = 8

// QueuedEvent summarizes one undelivered event for diagnostics.
type QueuedEvent struct {
	Path string
	Type event.Type
}

// OverflowError reports a dispatch whose listeners kept generating new
// mutation events past the drain pass budget. This is fatal and not
// retried: some listener re-triggers its own trigger condition,
// directly or through a chain, and the dispatch would never terminate.
// Pending holds the events still queued when the budget ran out.
type OverflowError struct {
	Passes  int
	Pending []QueuedEvent
}

func (e *OverflowError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mutation event queue still growing after %d drain passes, %d events pending",
		e.Passes, len(e.Pending))
	for i, q := range e.Pending {
		if i == maxReportedPending {
			fmt.Fprintf(&b, "; +%d more", len(e.Pending)-i)
			break
		}
		fmt.Fprintf(&b, "; %s %s", q.Type, q.Path)
	}
	return b.String()
}

// IsOverflowError reports whether err is an OverflowError. Uses
// errors.As to handle wrapped errors.
func IsOverflowError(err error) bool {
	var oe *OverflowError
	return errors.As(err, &oe)
}
