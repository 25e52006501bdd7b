package model

import (
	"errors"

	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// Model is a scoped view onto a Root. Deriving a scope copies the view
// and adjusts one overlay field; the underlying state is shared, so a
// mutation through any scope is visible to every other.
type Model struct {
	root   *Root
	prefix path.Path
	passed event.Passed
	silent bool
	evctx  string
}

// New builds a root model.
func New(opts ...Option) *Model {
	r := newRoot(opts...)
	m := &Model{root: r}
	r.rootModel = m
	return m
}

func (m *Model) derive() *Model {
	d := *m
	return &d
}

// RootModel returns the unscoped view onto the same Root.
func (m *Model) RootModel() *Model {
	return m.root.rootModel
}

// Path returns this scope's dotted prefix, empty for the root.
func (m *Model) Path() string {
	return m.prefix.String()
}

// Scope derives a view anchored at an absolute path, ignoring the
// receiver's own prefix.
func (m *Model) Scope(p string) (*Model, error) {
	parsed, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	d := m.derive()
	d.prefix = parsed
	return d, nil
}

// At derives a view anchored at a path relative to the receiver.
func (m *Model) At(p string) (*Model, error) {
	parsed, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	d := m.derive()
	d.prefix = m.prefix.Join(parsed)
	return d, nil
}

// Pass derives a view whose context bag merges the receiver's bag with
// override. With invert false the override's keys win; with invert
// true inherited keys win.
func (m *Model) Pass(override event.Passed, invert bool) *Model {
	d := m.derive()
	d.passed = m.passed.Merge(override, invert)
	return d
}

// Silent derives a view that suppresses event emission for mutations
// issued through it.
func (m *Model) Silent(v bool) *Model {
	d := m.derive()
	d.silent = v
	return d
}

// EventContext derives a view whose listener registrations carry the
// given context tag, so RemoveContextListeners can drop them in bulk.
func (m *Model) EventContext(id string) *Model {
	d := m.derive()
	d.evctx = id
	return d
}

// NewID mints a fresh document id.
func (m *Model) NewID() string {
	return m.root.ids.NewID()
}

// FetchCount returns the direct fetch reference count for a document.
func (m *Model) FetchCount(collection, id string) int {
	return m.root.fetched.Get(collection, id)
}

// SubscribeCount returns the direct subscribe reference count for a
// document.
func (m *Model) SubscribeCount(collection, id string) int {
	return m.root.subscribed.Get(collection, id)
}

// OnError registers a handler for asynchronous errors that had no
// caller callback to land in. The returned func removes it.
func (m *Model) OnError(fn func(error)) func() {
	return m.root.addErrorFn(fn)
}

// Get reads the value at a path relative to this scope. The empty
// path on the root scope reads the whole tree as nested maps; one
// segment reads a collection view; two or more read into a document.
// Absent values are nil. Containers are returned by reference, use
// GetCopy for a snapshot the caller may mutate.
func (m *Model) Get(sub string) (any, error) {
	full, err := m.resolve(sub)
	if err != nil {
		return nil, err
	}
	switch len(full) {
	case 0:
		return m.rootView(), nil
	case 1:
		return m.collectionView(full[0]), nil
	default:
		doc := m.root.getDoc(full[0], full[1])
		if doc == nil {
			return nil, nil
		}
		v, _ := doc.Get(full[2:])
		return v, nil
	}
}

// GetCopy is Get with a deep copy of the result.
func (m *Model) GetCopy(sub string) (any, error) {
	v, err := m.Get(sub)
	if err != nil {
		return nil, err
	}
	return deepCopy(v), nil
}

func (m *Model) rootView() map[string]any {
	m.root.mu.Lock()
	defer m.root.mu.Unlock()
	out := make(map[string]any, len(m.root.collections))
	for name, docs := range m.root.collections {
		col := make(map[string]any, len(docs))
		for id, doc := range docs {
			col[id] = doc.data
		}
		out[name] = col
	}
	return out
}

func (m *Model) collectionView(name string) map[string]any {
	m.root.mu.Lock()
	defer m.root.mu.Unlock()
	docs := m.root.collections[name]
	out := make(map[string]any, len(docs))
	for id, doc := range docs {
		out[id] = doc.data
	}
	return out
}

// resolve joins sub onto the scope prefix.
func (m *Model) resolve(sub string) (path.Path, error) {
	parsed, err := splitPath(sub)
	if err != nil {
		return nil, err
	}
	return m.prefix.Join(parsed), nil
}

// resolveTarget resolves a fetch or subscribe target, which must be
// exactly a collection.id pair.
func (m *Model) resolveTarget(sub string) (collection, id string, err error) {
	full, err := m.resolve(sub)
	if err != nil {
		return "", "", err
	}
	if len(full) != 2 {
		return "", "", newValidationError(ErrCodeBadTarget, full.String(),
			"target must name collection.id, got %d segments", len(full))
	}
	return full[0], full[1], nil
}

// resolveDocPath resolves a mutation path, which must reach at least
// into a document.
func (m *Model) resolveDocPath(sub string) (collection, id string, rest path.Path, err error) {
	full, err := m.resolve(sub)
	if err != nil {
		return "", "", nil, err
	}
	if len(full) < 2 {
		return "", "", nil, newValidationError(ErrCodeBadPath, full.String(),
			"path must reach into a document, got %d segments", len(full))
	}
	return full[0], full[1], full[2:], nil
}

// splitPath adapts path parse errors into validation errors.
func splitPath(s string) (path.Path, error) {
	parsed, err := path.Split(s)
	if err != nil {
		var pe *path.ParseError
		if errors.As(err, &pe) {
			return nil, newValidationError(ErrCodeBadPath, s, "%s", pe.Reason)
		}
		return nil, err
	}
	return parsed, nil
}

// emit sends a mutation event unless this scope is silent.
func (m *Model) emit(p path.Path, mut event.Mutation) error {
	if m.silent {
		return nil
	}
	return m.root.emitter.Emit(p, mut)
}
