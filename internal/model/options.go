package model

import (
	"log/slog"
	"time"

	"github.com/roach88/ripple/internal/dispatch"
	"github.com/roach88/ripple/internal/policy"
)

// Option configures a root model at construction.
type Option func(*Root)

// WithBackend installs the document synchronization backend. Without
// one the model is purely local: fetch and subscribe fail validation.
func WithBackend(b Backend) Option {
	return func(r *Root) { r.backend = b }
}

// WithUnloadDelay overrides the delay between releasing a document
// reference and the eviction re-check.
func WithUnloadDelay(d time.Duration) Option {
	return func(r *Root) { r.unloadDelay = d }
}

// WithServer configures server-side behavior: no unload delay, so
// released documents are re-checked inline.
func WithServer() Option {
	return func(r *Root) { r.unloadDelay = 0 }
}

// WithFetchOnly degrades every subscribe to a fetch. Useful for
// render-once processes that never want standing subscriptions.
func WithFetchOnly() Option {
	return func(r *Root) { r.fetchOnly = true }
}

// WithPolicies installs compiled per-collection policies.
func WithPolicies(p policy.Set) Option {
	return func(r *Root) { r.policies = p }
}

// WithScheduler replaces the timer scheduler. Tests install a manual
// scheduler to fire unload delays deterministically.
func WithScheduler(s Scheduler) Option {
	return func(r *Root) { r.scheduler = s }
}

// WithIDSource replaces the document id generator.
func WithIDSource(ids IDSource) Option {
	return func(r *Root) { r.ids = ids }
}

// WithLogger sets the structured logger for the root and its emitter.
func WithLogger(l *slog.Logger) Option {
	return func(r *Root) { r.logger = l }
}

// WithMaxPasses overrides the emitter's drain pass budget.
func WithMaxPasses(n int) Option {
	return func(r *Root) {
		r.emitterOpts = append(r.emitterOpts, dispatch.WithMaxPasses(n))
	}
}

// WithObserver taps every dispatched event, in dispatch order. Used by
// the scenario harness to record traces.
func WithObserver(fn dispatch.ObserverFunc) Option {
	return func(r *Root) {
		r.emitterOpts = append(r.emitterOpts, dispatch.WithObserver(fn))
	}
}
