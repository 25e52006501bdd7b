package store

import (
	"context"
	"fmt"

	"github.com/roach88/ripple/internal/model"
)

// JournalEntry is one row of the operation journal.
type JournalEntry struct {
	Seq        int64
	Collection string
	DocID      string
	Op         model.Op
}

// AppendOp appends one operation to the journal and returns its
// sequence number. The journal records applied order; it is never
// compacted or reordered.
func (s *Store) AppendOp(ctx context.Context, collection, id string, op model.Op) (int64, error) {
	payload, err := marshalOp(op)
	if err != nil {
		return 0, fmt.Errorf("append op: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ops (collection, doc_id, kind, op, source)
		VALUES (?, ?, ?, ?, ?)
	`, collection, id, string(op.Kind), payload, op.Source)
	if err != nil {
		return 0, fmt.Errorf("append op: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append op: last insert id: %w", err)
	}
	return seq, nil
}

// ReadOps returns journal entries in applied order. An empty collection
// selects the whole journal, an empty id the whole collection. A limit
// of zero or less means no limit. Returns an empty slice, not nil, when
// nothing matches.
func (s *Store) ReadOps(ctx context.Context, collection, id string, limit int) ([]JournalEntry, error) {
	query := `SELECT seq, collection, doc_id, op FROM ops`
	args := []any{}
	switch {
	case collection != "" && id != "":
		query += ` WHERE collection = ? AND doc_id = ?`
		args = append(args, collection, id)
	case collection != "":
		query += ` WHERE collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY seq ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read ops: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var entry JournalEntry
		var payload string
		if err := rows.Scan(&entry.Seq, &entry.Collection, &entry.DocID, &payload); err != nil {
			return nil, fmt.Errorf("read ops: scan: %w", err)
		}
		entry.Op, err = unmarshalOp(payload)
		if err != nil {
			return nil, fmt.Errorf("read ops: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ops: rows: %w", err)
	}
	return entries, nil
}
