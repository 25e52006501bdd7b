package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/ripple/internal/model"
)

// createTestStore creates a store backed by a temp database for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestConn wraps createTestStore in a connection with a fixed
// source id so assertions on injected ops are stable.
func createTestConn(t *testing.T) *Conn {
	t.Helper()
	return NewConn(createTestStore(t), WithSource("conn-test"))
}

// seedDoc stores one document snapshot, failing the test on error.
func seedDoc(t *testing.T, s *Store, collection, id string, data any) {
	t.Helper()
	if _, err := s.PutDoc(context.Background(), collection, id, data); err != nil {
		t.Fatalf("PutDoc(%s.%s) failed: %v", collection, id, err)
	}
}

// setOp builds a field-set operation for tests.
func setOp(path string, value any) model.Op {
	return model.Op{Kind: model.OpSet, Path: path, Value: value}
}
