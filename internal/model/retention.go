package model

import (
	"context"
	"log/slog"

	"github.com/looplab/fsm"
)

// Retention states for a remote document. Local-only documents are
// never tracked; RetentionState reports StateLocal for them.
const (
	StateUnreferenced      = "unreferenced"
	StateReferencedPending = "referenced_pending"
	StateReferenced        = "referenced"
	StatePendingEviction   = "pending_eviction"
	StateLocal             = "local"
)

const (
	eventReference = "reference"
	eventResident  = "resident"
	eventRelease   = "release"
	eventRetain    = "retain"
	eventEvict     = "evict"
)

// retention records the residency journey of one remote document. The
// machine is observational: the lifecycle decisions themselves are
// driven by counters and query membership, and transitions that do not
// apply in the current state are silently skipped.
type retention struct {
	fsm *fsm.FSM
}

func newRetention(collection, id string, logger *slog.Logger) *retention {
	return &retention{
		fsm: fsm.NewFSM(
			StateUnreferenced,
			fsm.Events{
				{Name: eventReference, Src: []string{StateUnreferenced}, Dst: StateReferencedPending},
				{Name: eventResident, Src: []string{StateReferencedPending}, Dst: StateReferenced},
				{Name: eventRelease, Src: []string{StateReferenced, StateReferencedPending}, Dst: StatePendingEviction},
				{Name: eventRetain, Src: []string{StatePendingEviction}, Dst: StateReferenced},
				{Name: eventEvict, Src: []string{StatePendingEviction}, Dst: StateUnreferenced},
			},
			fsm.Callbacks{
				"enter_state": func(_ context.Context, e *fsm.Event) {
					logger.Debug("document retention transition",
						"collection", collection,
						"id", id,
						"event", e.Event,
						"from", e.Src,
						"to", e.Dst)
				},
			},
		),
	}
}

func (r *retention) step(event string) {
	if !r.fsm.Can(event) {
		return
	}
	_ = r.fsm.Event(context.Background(), event)
}

// Reference records a new direct reference. A fresh document moves to
// referenced_pending while the network call runs; a reference arriving
// during pending_eviction retains the document instead.
func (r *retention) Reference() {
	if r.fsm.Can(eventReference) {
		r.step(eventReference)
		return
	}
	r.step(eventRetain)
}

// Resident marks the pending network load as complete.
func (r *retention) Resident() { r.step(eventResident) }

// Release marks the last direct reference gone and eviction pending.
func (r *retention) Release() { r.step(eventRelease) }

// Retain cancels a pending eviction after a re-check found the
// document referenced again.
func (r *retention) Retain() { r.step(eventRetain) }

// Evict marks the document gone.
func (r *retention) Evict() { r.step(eventEvict) }

// Current returns the machine's state name.
func (r *retention) Current() string { return r.fsm.Current() }
