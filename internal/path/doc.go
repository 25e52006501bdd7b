// Package path models dotted document paths and the listener patterns
// that match them.
//
// A path is an ordered list of UTF-8 segments joined by dots, such as
// "posts.p1.title". Segments are normalized to NFC so two spellings of
// the same accented text address the same location. Patterns extend
// literal paths with two wildcard forms: "*" matches exactly one
// segment, and a final "**" matches the entire remaining suffix,
// including the empty suffix.
package path
