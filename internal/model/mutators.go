package model

import (
	"fmt"

	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/path"
)

// Mutators apply a change to the local document tree and then emit the
// matching event through the root emitter. The mutation is applied
// before listeners run: a listener error aborts further dispatch and
// propagates, but the written state stays written. Mutations never
// push operations to the backend; remote traffic flows the other way,
// through DocSync.OnOp.

// Set writes value at a path and returns the previous value there.
// Intermediate containers and the document itself are created as
// needed.
func (m *Model) Set(sub string, value any) (any, error) {
	collection, id, rest, err := m.resolveDocPath(sub)
	if err != nil {
		return nil, err
	}
	return m.setAt(collection, id, rest, value)
}

// Del removes the value at a path and returns it. Deleting a missing
// document or field is a no-op that emits nothing.
func (m *Model) Del(sub string) (any, error) {
	collection, id, rest, err := m.resolveDocPath(sub)
	if err != nil {
		return nil, err
	}
	return m.delAt(collection, id, rest)
}

// Insert splices values into the array at a path starting at index,
// creating the document and array as needed.
func (m *Model) Insert(sub string, index int, values ...any) error {
	collection, id, rest, err := m.resolveDocPath(sub)
	if err != nil {
		return err
	}
	return m.insertAt(collection, id, rest, index, values)
}

// Remove splices howMany elements out of the array at a path and
// returns them.
func (m *Model) Remove(sub string, index, howMany int) ([]any, error) {
	collection, id, rest, err := m.resolveDocPath(sub)
	if err != nil {
		return nil, err
	}
	return m.removeAt(collection, id, rest, index, howMany)
}

// Move relocates howMany elements of the array at a path from one
// index to another. The destination indexes the array after the moved
// elements have been taken out.
func (m *Model) Move(sub string, from, to, howMany int) error {
	collection, id, rest, err := m.resolveDocPath(sub)
	if err != nil {
		return err
	}
	return m.moveAt(collection, id, rest, from, to, howMany)
}

// Add creates a document in a collection under a fresh id and returns
// the id. When data carries a non-empty "id" field that id is used
// instead; either way the field is written back into data.
func (m *Model) Add(collection string, data map[string]any) (string, error) {
	full, err := m.resolve(collection)
	if err != nil {
		return "", err
	}
	if len(full) != 1 {
		return "", newValidationError(ErrCodeBadTarget, full.String(),
			"add target must name a collection, got %d segments", len(full))
	}
	if data == nil {
		data = make(map[string]any)
	}
	id, _ := data["id"].(string)
	if id == "" {
		id = m.NewID()
	}
	data["id"] = id
	if _, err := m.setAt(full[0], id, nil, data); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Model) setAt(collection, id string, rest path.Path, value any) (any, error) {
	doc := m.root.getOrCreateDoc(collection, id)
	previous, err := doc.Set(rest, value)
	if err != nil {
		return nil, err
	}
	ev := event.NewChange(value, previous, m.passed)
	if err := m.emit(path.Path{collection, id}.Join(rest), ev); err != nil {
		return previous, err
	}
	return previous, nil
}

func (m *Model) delAt(collection, id string, rest path.Path) (any, error) {
	doc := m.root.getDoc(collection, id)
	if doc == nil {
		return nil, nil
	}
	previous, err := doc.Del(rest)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, nil
	}
	ev := event.NewChange(nil, previous, m.passed)
	if err := m.emit(path.Path{collection, id}.Join(rest), ev); err != nil {
		return previous, err
	}
	return previous, nil
}

func (m *Model) insertAt(collection, id string, rest path.Path, index int, values []any) error {
	doc := m.root.getOrCreateDoc(collection, id)
	if err := doc.Insert(rest, index, values); err != nil {
		return err
	}
	ev := event.NewInsert(index, values, m.passed)
	return m.emit(path.Path{collection, id}.Join(rest), ev)
}

func (m *Model) removeAt(collection, id string, rest path.Path, index, howMany int) ([]any, error) {
	doc := m.root.getDoc(collection, id)
	if doc == nil {
		target := path.Path{collection, id}.Join(rest).String()
		return nil, newValidationError(ErrCodeBadPath, target, "remove target does not exist")
	}
	removed, err := doc.Remove(rest, index, howMany)
	if err != nil {
		return nil, err
	}
	ev := event.NewRemove(index, removed, m.passed)
	if err := m.emit(path.Path{collection, id}.Join(rest), ev); err != nil {
		return removed, err
	}
	return removed, nil
}

func (m *Model) moveAt(collection, id string, rest path.Path, from, to, howMany int) error {
	doc := m.root.getDoc(collection, id)
	if doc == nil {
		target := path.Path{collection, id}.Join(rest).String()
		return newValidationError(ErrCodeBadPath, target, "move target does not exist")
	}
	if err := doc.Move(rest, from, to, howMany); err != nil {
		return err
	}
	ev := event.NewMove(from, to, howMany, m.passed)
	return m.emit(path.Path{collection, id}.Join(rest), ev)
}

// applyRemoteOp replays one backend operation into the local tree,
// emitting through a scope whose passed bag marks the mutation remote.
// Ops for documents that were already evicted are dropped; apply
// failures have no caller to land in and go to the error handlers.
func (r *Root) applyRemoteOp(collection, id string, op Op) {
	if r.getDoc(collection, id) == nil {
		return
	}
	passed := event.Passed{event.PassedRemote: true}
	if op.Source != "" {
		passed[event.PassedSource] = op.Source
	}
	scope := r.rootModel.Pass(passed, false)

	rest, err := path.Split(op.Path)
	if err == nil {
		switch op.Kind {
		case OpSet:
			_, err = scope.setAt(collection, id, rest, op.Value)
		case OpDel:
			_, err = scope.delAt(collection, id, rest)
		case OpInsert:
			err = scope.insertAt(collection, id, rest, op.Index, op.Values)
		case OpRemove:
			_, err = scope.removeAt(collection, id, rest, op.Index, op.HowMany)
		case OpMove:
			err = scope.moveAt(collection, id, rest, op.From, op.To, op.HowMany)
		default:
			err = fmt.Errorf("unknown op kind %q", op.Kind)
		}
	}
	if err != nil {
		r.emitError(fmt.Errorf("applying remote %s at %s.%s: %w", op.Kind, collection, id, err))
	}
}
