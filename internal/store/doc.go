// Package store persists documents and their operation journal in
// SQLite and adapts that storage to the model's backend interfaces.
//
// Two tables:
//
//   - documents holds the current snapshot per (collection, id) as
//     compact JSON, with a version counter bumped on every write.
//   - ops is an append-only journal of applied operations. seq is the
//     journal position and never reorders.
//
// Conventions:
//
//  1. Snapshots are cached as JSON text, not decoded trees. Every read
//     decodes a fresh tree so callers never alias each other's data.
//  2. Reads order by explicit columns (seq ASC, id ASC COLLATE BINARY)
//     so results are reproducible across runs.
//  3. The database runs in WAL mode with a single writer connection.
//
// Conn layers the live backend on top of the storage: it mints shared
// DocHandle sync handles, journals injected operations before
// delivering them, and re-executes registered live queries whenever a
// write touches their collection.
package store
