package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// cachedSnapshot is the cache entry for one document row. The JSON
// text is cached rather than the decoded tree so every reader decodes
// a fresh tree and cannot alias another caller's data.
type cachedSnapshot struct {
	data    string
	version int64
}

func docKey(collection, id string) string {
	return collection + "." + id
}

// PutDoc writes the current snapshot for a document, inserting the row
// or bumping its version, and returns the stored version.
func (s *Store) PutDoc(ctx context.Context, collection, id string, data any) (int64, error) {
	text, err := marshalDoc(data)
	if err != nil {
		return 0, fmt.Errorf("put document: %w", err)
	}

	// Use a transaction so the upsert and the version read see the
	// same row state.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put document: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, version)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1
	`, collection, id, text)
	if err != nil {
		return 0, fmt.Errorf("put document: upsert: %w", err)
	}

	var version int64
	err = tx.QueryRowContext(ctx, `
		SELECT version FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("put document: read version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put document: commit: %w", err)
	}

	s.snapshots.Add(docKey(collection, id), cachedSnapshot{data: text, version: version})
	return version, nil
}

// GetDoc loads a document snapshot. ok reports whether the row exists.
// The returned tree is freshly decoded and owned by the caller.
func (s *Store) GetDoc(ctx context.Context, collection, id string) (data any, version int64, ok bool, err error) {
	key := docKey(collection, id)
	if entry, hit := s.snapshots.Get(key); hit {
		snap := entry.(cachedSnapshot)
		data, err = unmarshalDoc(snap.data)
		if err != nil {
			return nil, 0, false, fmt.Errorf("get document: %w", err)
		}
		return data, snap.version, true, nil
	}

	var text string
	err = s.db.QueryRowContext(ctx, `
		SELECT data, version FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&text, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("get document: %w", err)
	}

	s.snapshots.Add(key, cachedSnapshot{data: text, version: version})
	data, err = unmarshalDoc(text)
	if err != nil {
		return nil, 0, false, fmt.Errorf("get document: %w", err)
	}
	return data, version, true, nil
}

// DeleteDoc removes a document row. Deleting an absent row is a no-op.
func (s *Store) DeleteDoc(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.snapshots.Remove(docKey(collection, id))
	return nil
}

// Collections lists the distinct collections holding at least one
// document. Returns an empty slice, not nil, when the store is empty.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT collection FROM documents
		ORDER BY collection COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	collections := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list collections: scan: %w", err)
		}
		collections = append(collections, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections: rows: %w", err)
	}
	return collections, nil
}

// DocRecord is one stored document row.
type DocRecord struct {
	Collection string
	ID         string
	Data       any
	Version    int64
}

// CollectionDocs loads every document in a collection in id order.
// Returns an empty slice for an unknown collection.
func (s *Store) CollectionDocs(ctx context.Context, collection string) ([]DocRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, version FROM documents
		WHERE collection = ?
		ORDER BY id COLLATE BINARY ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	records := []DocRecord{}
	for rows.Next() {
		var rec DocRecord
		var text string
		rec.Collection = collection
		if err := rows.Scan(&rec.ID, &text, &rec.Version); err != nil {
			return nil, fmt.Errorf("list documents: scan: %w", err)
		}
		rec.Data, err = unmarshalDoc(text)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: rows: %w", err)
	}
	return records, nil
}
