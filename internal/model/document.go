package model

import (
	"errors"
	"strconv"

	"github.com/roach88/ripple/internal/path"
)

// errMissing is returned by non-creating walks when the addressed node
// does not exist. Callers that tolerate absent paths (Get, Del) convert
// it to a no-op; everything else surfaces a validation error.
var errMissing = errors.New("path not present in document")

// Doc is one local document: a JSON-ish tree of map[string]any,
// []any, and scalars, addressed by path segments below collection.id.
// Remote documents additionally carry a sync handle and a retention
// machine; local-only documents leave both nil.
type Doc struct {
	Collection string
	ID         string

	data      any
	sync      DocSync
	retention *retention
	loaded    bool
}

func newDoc(collection, id string) *Doc {
	return &Doc{Collection: collection, ID: id}
}

// Get reads the node at rest. The empty path addresses the whole
// document. Absent nodes report ok=false; explicit nils read as absent.
func (d *Doc) Get(rest path.Path) (any, bool) {
	node := d.data
	for _, seg := range rest {
		switch cur := node.(type) {
		case map[string]any:
			node = cur[seg]
		case []any:
			idx, ok := arrayIndex(seg)
			if !ok || idx >= len(cur) {
				return nil, false
			}
			node = cur[idx]
		default:
			return nil, false
		}
	}
	if node == nil {
		return nil, false
	}
	return node, true
}

// Set writes value at rest, creating intermediate containers as
// needed, and returns the previous value at that location. A segment
// that parses as a canonical non-negative integer materializes an
// array; anything else materializes an object. Arrays only grow at
// their end: writing past len is an error.
func (d *Doc) Set(rest path.Path, value any) (any, error) {
	if len(rest) == 0 {
		previous := d.data
		d.data = value
		return previous, nil
	}
	last := rest[len(rest)-1]
	var previous any
	err := d.mutate(rest[:len(rest)-1], true, func(node any) (any, error) {
		switch cur := node.(type) {
		case map[string]any:
			previous = cur[last]
			cur[last] = value
			return cur, nil
		case []any:
			idx, ok := arrayIndex(last)
			if !ok {
				return nil, d.badPath(rest, "segment %q does not index an array", last)
			}
			if idx < len(cur) {
				previous = cur[idx]
				cur[idx] = value
				return cur, nil
			}
			if idx == len(cur) {
				return append(cur, value), nil
			}
			return nil, d.badPath(rest, "array index %d out of range (len %d)", idx, len(cur))
		case nil:
			if idx, ok := arrayIndex(last); ok {
				if idx != 0 {
					return nil, d.badPath(rest, "new array must start at index 0, got %d", idx)
				}
				return []any{value}, nil
			}
			return map[string]any{last: value}, nil
		default:
			return nil, d.badPath(rest, "cannot set field of %T", cur)
		}
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// Del removes the node at rest and returns the previous value. The
// empty path clears the whole document. Deleting an absent path is a
// no-op; deleting an array element is an error, arrays shrink through
// Remove so indices stay dense.
func (d *Doc) Del(rest path.Path) (any, error) {
	if len(rest) == 0 {
		previous := d.data
		d.data = nil
		return previous, nil
	}
	last := rest[len(rest)-1]
	var previous any
	err := d.mutate(rest[:len(rest)-1], false, func(node any) (any, error) {
		switch cur := node.(type) {
		case map[string]any:
			previous = cur[last]
			delete(cur, last)
			return cur, nil
		case []any:
			return nil, d.badPath(rest, "cannot delete array element %q, use remove", last)
		default:
			return nil, errMissing
		}
	})
	if errors.Is(err, errMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// Insert splices values into the array at rest starting at index. A
// missing node becomes a fresh array first. Index may equal the array
// length to append.
func (d *Doc) Insert(rest path.Path, index int, values []any) error {
	return d.mutate(rest, true, func(node any) (any, error) {
		arr, err := d.asArray(node, rest)
		if err != nil {
			return nil, err
		}
		if index < 0 || index > len(arr) {
			return nil, d.badPath(rest, "insert index %d out of range (len %d)", index, len(arr))
		}
		out := make([]any, 0, len(arr)+len(values))
		out = append(out, arr[:index]...)
		out = append(out, values...)
		out = append(out, arr[index:]...)
		return out, nil
	})
}

// Remove splices howMany elements out of the array at rest starting at
// index and returns them. Bounds are strict: the whole range must
// exist.
func (d *Doc) Remove(rest path.Path, index, howMany int) ([]any, error) {
	var removed []any
	err := d.mutate(rest, false, func(node any) (any, error) {
		arr, ok := node.([]any)
		if !ok {
			return nil, d.badPath(rest, "remove target is not an array")
		}
		if index < 0 || howMany < 0 || index+howMany > len(arr) {
			return nil, d.badPath(rest, "remove range [%d,%d) out of range (len %d)", index, index+howMany, len(arr))
		}
		removed = append([]any(nil), arr[index:index+howMany]...)
		out := make([]any, 0, len(arr)-howMany)
		out = append(out, arr[:index]...)
		out = append(out, arr[index+howMany:]...)
		return out, nil
	})
	if errors.Is(err, errMissing) {
		return nil, d.badPath(rest, "remove target is not an array")
	}
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Move relocates howMany elements of the array at rest from index
// `from` to index `to`, where `to` addresses the array after the
// elements have been taken out.
func (d *Doc) Move(rest path.Path, from, to, howMany int) error {
	err := d.mutate(rest, false, func(node any) (any, error) {
		arr, ok := node.([]any)
		if !ok {
			return nil, d.badPath(rest, "move target is not an array")
		}
		if from < 0 || howMany < 0 || from+howMany > len(arr) {
			return nil, d.badPath(rest, "move range [%d,%d) out of range (len %d)", from, from+howMany, len(arr))
		}
		if to < 0 || to > len(arr)-howMany {
			return nil, d.badPath(rest, "move destination %d out of range (len %d after removal)", to, len(arr)-howMany)
		}
		items := append([]any(nil), arr[from:from+howMany]...)
		remain := make([]any, 0, len(arr)-howMany)
		remain = append(remain, arr[:from]...)
		remain = append(remain, arr[from+howMany:]...)
		out := make([]any, 0, len(arr))
		out = append(out, remain[:to]...)
		out = append(out, items...)
		out = append(out, remain[to:]...)
		return out, nil
	})
	if errors.Is(err, errMissing) {
		return d.badPath(rest, "move target is not an array")
	}
	return err
}

// mutate walks rest and applies fn to the node at its end, writing the
// replacement back through every level so slice reallocation reaches
// the parent container. With create set, missing intermediates are
// materialized on the way down and assembled on the way back up; the
// node handed to fn may still be nil when the final hop was missing.
func (d *Doc) mutate(rest path.Path, create bool, fn func(node any) (any, error)) error {
	updated, err := d.walk(d.data, rest, 0, create, fn)
	if err != nil {
		return err
	}
	d.data = updated
	return nil
}

func (d *Doc) walk(node any, rest path.Path, i int, create bool, fn func(node any) (any, error)) (any, error) {
	if i == len(rest) {
		return fn(node)
	}
	seg := rest[i]
	switch cur := node.(type) {
	case map[string]any:
		child, err := d.walk(cur[seg], rest, i+1, create, fn)
		if err != nil {
			return nil, err
		}
		cur[seg] = child
		return cur, nil
	case []any:
		idx, ok := arrayIndex(seg)
		if !ok {
			if !create {
				return nil, errMissing
			}
			return nil, d.badPath(rest, "segment %q does not index an array", seg)
		}
		if idx < len(cur) {
			child, err := d.walk(cur[idx], rest, i+1, create, fn)
			if err != nil {
				return nil, err
			}
			cur[idx] = child
			return cur, nil
		}
		if create && idx == len(cur) {
			child, err := d.walk(nil, rest, i+1, create, fn)
			if err != nil {
				return nil, err
			}
			return append(cur, child), nil
		}
		if !create {
			return nil, errMissing
		}
		return nil, d.badPath(rest, "array index %d out of range (len %d)", idx, len(cur))
	case nil:
		if !create {
			return nil, errMissing
		}
		child, err := d.walk(nil, rest, i+1, create, fn)
		if err != nil {
			return nil, err
		}
		if idx, ok := arrayIndex(seg); ok {
			if idx != 0 {
				return nil, d.badPath(rest, "new array must start at index 0, got %d", idx)
			}
			return []any{child}, nil
		}
		return map[string]any{seg: child}, nil
	default:
		if !create {
			return nil, errMissing
		}
		return nil, d.badPath(rest, "cannot descend into %T at %q", cur, seg)
	}
}

func (d *Doc) asArray(node any, rest path.Path) ([]any, error) {
	switch cur := node.(type) {
	case []any:
		return cur, nil
	case nil:
		return []any{}, nil
	default:
		return nil, d.badPath(rest, "node is %T, not an array", cur)
	}
}

func (d *Doc) badPath(rest path.Path, format string, args ...any) error {
	full := path.Path{d.Collection, d.ID}.Join(rest).String()
	return newValidationError(ErrCodeBadPath, full, format, args...)
}

// arrayIndex reports whether seg is a canonical non-negative integer.
// "007" and "+3" are field names, not indices.
func arrayIndex(seg string) (int, bool) {
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 || strconv.Itoa(n) != seg {
		return 0, false
	}
	return n, true
}

// deepCopy clones a document tree. Scalars are shared, containers are
// rebuilt.
func deepCopy(v any) any {
	switch cur := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(cur))
		for k, child := range cur {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(cur))
		for i, child := range cur {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
