package model

import (
	"errors"

	"github.com/roach88/ripple/internal/dispatch"
	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// Func is the listener callback signature.
type Func = dispatch.Func

// On registers a listener for an event type at a pattern relative to
// this scope. The empty pattern listens to everything below the scope.
// The returned handle removes the registration; it is the handle, not
// the callback, that identifies a listener.
//
// Listener errors propagate synchronously to the caller of the
// triggering mutation and abort the dispatch in progress.
func (m *Model) On(t event.Type, pattern string, fn Func) (*dispatch.Handle, error) {
	if !t.CanListen() {
		return nil, newValidationError(ErrCodeBadEventType, "",
			"cannot listen for event type %q", t)
	}
	pat, err := m.scopedPattern(pattern)
	if err != nil {
		return nil, err
	}
	l := &dispatch.Listener{Pattern: pat, Context: m.evctx, Fn: fn}
	return m.root.emitter.On(t, l), nil
}

// Once registers a listener that removes itself before its first
// invocation runs, so a mutation issued from inside fn cannot re-enter
// it.
func (m *Model) Once(t event.Type, pattern string, fn Func) (*dispatch.Handle, error) {
	var h *dispatch.Handle
	handle, err := m.On(t, pattern, func(captures []string, mut event.Mutation) error {
		h.Remove()
		return fn(captures, mut)
	})
	if err != nil {
		return nil, err
	}
	h = handle
	return handle, nil
}

// RemoveListener detaches a listener registration. Nil handles are
// ignored; removal is idempotent.
func (m *Model) RemoveListener(h *dispatch.Handle) {
	if h == nil {
		return
	}
	h.Remove()
}

// RemoveAllListeners drops every listener registered at or below a
// subpath of this scope. With t empty all event types are swept,
// otherwise only the named type.
func (m *Model) RemoveAllListeners(t event.Type, sub string) error {
	if t != "" && !t.CanListen() {
		return newValidationError(ErrCodeBadEventType, "",
			"cannot listen for event type %q", t)
	}
	full, err := m.resolve(sub)
	if err != nil {
		return err
	}
	m.root.emitter.RemoveBranch(t, full)
	return nil
}

// RemoveContextListeners drops every listener registered through a
// scope carrying this scope's event-context tag. A scope without a
// tag removes nothing.
func (m *Model) RemoveContextListeners() {
	if m.evctx == "" {
		return
	}
	m.root.emitter.RemoveContext(m.evctx)
}

// scopedPattern parses pattern and prefixes it with the scope's path
// as literal segments. The empty pattern becomes the scope's whole
// subtree.
func (m *Model) scopedPattern(s string) (path.Pattern, error) {
	if s == "" {
		s = "**"
	}
	parsed, err := path.ParsePattern(s)
	if err != nil {
		var pe *path.ParseError
		if errors.As(err, &pe) {
			return nil, newValidationError(ErrCodeBadPattern, s, "%s", pe.Reason)
		}
		return nil, err
	}
	if len(m.prefix) == 0 {
		return parsed, nil
	}
	pat := make(path.Pattern, 0, len(m.prefix)+len(parsed))
	for _, seg := range m.prefix {
		pat = append(pat, path.Segment{Kind: path.Literal, Text: seg})
	}
	return append(pat, parsed...), nil
}
