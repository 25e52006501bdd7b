package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/ripple/internal/model"
)

// marshalDoc converts a document tree to compact JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled so stored text matches
// what callers wrote.
func marshalDoc(data any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDoc parses stored JSON TEXT back into a document tree.
// Empty text and stored nulls read as an absent document. Numbers come
// back as float64 per encoding/json.
func unmarshalDoc(text string) (any, error) {
	if text == "" || text == "null" {
		return nil, nil
	}
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return data, nil
}

// marshalOp converts an operation to JSON TEXT for the journal.
func marshalOp(op model.Op) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(op); err != nil {
		return "", fmt.Errorf("marshal op: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalOp parses a journaled operation.
func unmarshalOp(text string) (model.Op, error) {
	var op model.Op
	if text == "" {
		return op, nil
	}
	if err := json.Unmarshal([]byte(text), &op); err != nil {
		return model.Op{}, fmt.Errorf("unmarshal op: %w", err)
	}
	return op, nil
}
