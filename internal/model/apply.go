package model

import (
	"fmt"

	"github.com/roach88/ripple/internal/path"
)

// ApplyOp applies one operation to a detached document tree and returns
// the updated tree. Collection and id only label errors. Backends use
// this to keep persisted snapshots in step with their journal; inside
// the model, remote operations flow through scopes instead so listeners
// fire.
func ApplyOp(collection, id string, data any, op Op) (any, error) {
	doc := &Doc{Collection: collection, ID: id, data: data}
	rest, err := path.Split(op.Path)
	if err != nil {
		return nil, err
	}
	switch op.Kind {
	case OpSet:
		_, err = doc.Set(rest, op.Value)
	case OpDel:
		_, err = doc.Del(rest)
	case OpInsert:
		err = doc.Insert(rest, op.Index, op.Values)
	case OpRemove:
		_, err = doc.Remove(rest, op.Index, op.HowMany)
	case OpMove:
		err = doc.Move(rest, op.From, op.To, op.HowMany)
	default:
		err = fmt.Errorf("unknown op kind %q", op.Kind)
	}
	if err != nil {
		return nil, err
	}
	return doc.data, nil
}
