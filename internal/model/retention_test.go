package model

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRetention() *retention {
	return newRetention("posts", "1", slog.Default())
}

func TestRetention_StartsUnreferenced(t *testing.T) {
	r := newTestRetention()

	assert.Equal(t, StateUnreferenced, r.Current())
}

func TestRetention_ReferenceThenResident(t *testing.T) {
	r := newTestRetention()

	r.Reference()
	assert.Equal(t, StateReferencedPending, r.Current())

	r.Resident()
	assert.Equal(t, StateReferenced, r.Current())
}

func TestRetention_ReleaseThenEvict(t *testing.T) {
	r := newTestRetention()
	r.Reference()
	r.Resident()

	r.Release()
	assert.Equal(t, StatePendingEviction, r.Current())

	r.Evict()
	assert.Equal(t, StateUnreferenced, r.Current())
}

func TestRetention_RetainCancelsPendingEviction(t *testing.T) {
	r := newTestRetention()
	r.Reference()
	r.Resident()
	r.Release()

	r.Retain()
	assert.Equal(t, StateReferenced, r.Current())
}

func TestRetention_ReferenceDuringPendingEvictionRetains(t *testing.T) {
	r := newTestRetention()
	r.Reference()
	r.Resident()
	r.Release()

	r.Reference()
	assert.Equal(t, StateReferenced, r.Current())
}

func TestRetention_ReleaseBeforeLoadCompletes(t *testing.T) {
	r := newTestRetention()
	r.Reference()

	r.Release()
	assert.Equal(t, StatePendingEviction, r.Current())

	// the late load completion must not resurrect the document
	r.Resident()
	assert.Equal(t, StatePendingEviction, r.Current())
}

func TestRetention_InvalidStepsAreNoOps(t *testing.T) {
	r := newTestRetention()

	r.Evict()
	assert.Equal(t, StateUnreferenced, r.Current())

	r.Release()
	assert.Equal(t, StateUnreferenced, r.Current())

	r.Reference()
	r.Reference()
	assert.Equal(t, StateReferencedPending, r.Current())
}
