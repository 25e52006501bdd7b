package path

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator joins segments in the string form of a path.
const Separator = "."

// A Path is a parsed dotted path. The zero value is the empty path,
// which addresses the root of a scope.
type Path []string

// Split parses a dotted path string into segments, normalizing each
// segment to NFC. The empty string parses to the empty path. Empty
// segments, produced by doubled, leading, or trailing dots, are
// rejected.
func Split(s string) (Path, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, Separator)
	segments := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, &ParseError{Input: s, Reason: "empty segment"}
		}
		segments = append(segments, norm.NFC.String(part))
	}
	return segments, nil
}

// MustSplit is Split for known-good literals. It panics on invalid
// input and is intended for tests and fixed paths.
func MustSplit(s string) Path {
	p, err := Split(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String joins the segments back into dotted form.
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Join returns a new path with rest appended. Neither receiver nor
// argument is modified.
func (p Path) Join(rest Path) Path {
	if len(rest) == 0 {
		return p
	}
	out := make(Path, 0, len(p)+len(rest))
	out = append(out, p...)
	out = append(out, rest...)
	return out
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i, seg := range p {
		if other[i] != seg {
			return false
		}
	}
	return true
}
