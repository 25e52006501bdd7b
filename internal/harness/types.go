package harness

import (
	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// TraceEvent is one recorded mutation event. Type and Path are always
// set; the payload fields depend on the event kind. Seq is the
// delivery sequence number stamped by the dispatch clock.
type TraceEvent struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	Value    any    `json:"value,omitempty"`
	Previous any    `json:"previous,omitempty"`
	Document any    `json:"document,omitempty"`
	Index    int    `json:"index,omitempty"`
	Values   []any  `json:"values,omitempty"`
	Removed  []any  `json:"removed,omitempty"`
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	HowMany  int    `json:"how_many,omitempty"`
	Remote   bool   `json:"remote,omitempty"`
	Source   string `json:"source,omitempty"`
	Seq      int64  `json:"seq"`
}

// Result holds the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion succeeded.
	Pass bool `json:"pass"`

	// Trace records every ordered-phase event in delivery order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// Observe records a dispatched event. It is installed on the model as
// the event observer; scenarios run on a single goroutine, so no
// locking is needed.
func (r *Result) Observe(seq int64, p path.Path, m event.Mutation) {
	ev := TraceEvent{
		Type: string(m.Type()),
		Path: p.String(),
		Seq:  seq,
	}

	switch e := m.(type) {
	case *event.Change:
		ev.Value = e.Value
		ev.Previous = e.Previous
	case *event.Load:
		ev.Document = e.Document
	case *event.Unload:
		ev.Previous = e.Previous
	case *event.Insert:
		ev.Index = e.Index
		ev.Values = e.Values
	case *event.Remove:
		ev.Index = e.Index
		ev.Removed = e.Removed
	case *event.Move:
		ev.From = e.From
		ev.To = e.To
		ev.HowMany = e.HowMany
	}

	if passed := m.Passed(); passed.Remote() {
		ev.Remote = true
		ev.Source = passed.Source()
	}

	r.Trace = append(r.Trace, ev)
}
