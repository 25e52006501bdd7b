package model

import "time"

// Scheduler defers the delayed phase of unfetch and unsubscribe. The
// default implementation uses real timers; tests install a manual one
// to fire deferred work deterministically.
type Scheduler interface {
	// After runs fn once d has elapsed. A non-positive d runs fn
	// inline before After returns.
	After(d time.Duration, fn func())
}

type realScheduler struct{}

func (realScheduler) After(d time.Duration, fn func()) {
	if d <= 0 {
		fn()
		return
	}
	time.AfterFunc(d, fn)
}
