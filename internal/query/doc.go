// Package query describes filter expressions over synced document
// collections and compiles them to parameterized SQL for the reference
// SQLite backend.
//
// Filter is a sealed interface using the marker method pattern: only
// types in this package implement it, so backends can type-switch
// exhaustively. The fragment stays small, just field comparisons
// against scalar literals combined with And: live queries
// must re-execute cheaply on every write and their results feed the
// document retention check, where nondeterminism would make eviction
// order unreproducible.
//
// Two rules hold for every compiled statement:
//
//   - ORDER BY id ASC COLLATE BINARY, always, so result sets are stable
//     across runs and SQLite versions.
//   - Values travel as bind parameters, never interpolated. Field names
//     are interpolated into json_extract paths and are therefore
//     validated against a strict identifier grammar first.
//
// Floats are rejected as filter values: their text encoding is not
// canonical and equality against them is not reproducible.
package query
