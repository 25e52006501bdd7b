package path

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SegmentKind distinguishes literal pattern segments from wildcards.
type SegmentKind uint8

const (
	// Literal matches one segment with exactly the same text.
	Literal SegmentKind = iota
	// Single matches one segment with any text.
	Single
	// Tail matches the entire remaining suffix, including the empty
	// suffix. It only appears as the final segment of a pattern.
	Tail
)

// A Segment is one element of a parsed pattern.
type Segment struct {
	Kind SegmentKind
	Text string // literal text, empty for wildcards
}

// A Pattern matches concrete paths against a mix of literal segments
// and wildcards.
type Pattern []Segment

// ParsePattern parses a dotted pattern string. A "*" segment matches
// any single segment and a final "**" matches any suffix. A "**" glued
// directly onto a literal segment ("a.b**") is accepted for
// compatibility and normalized to "a.b.**". Empty patterns, empty
// segments, and a "**" anywhere but the final position are rejected.
// An asterisk embedded in longer text ("a*b") is an ordinary literal.
func ParsePattern(s string) (Pattern, error) {
	if s == "" {
		return nil, &ParseError{Input: s, Reason: "empty pattern"}
	}
	if strings.HasSuffix(s, "**") && s != "**" && !strings.HasSuffix(s, ".**") {
		s = s[:len(s)-2] + ".**"
	}

	parts := strings.Split(s, Separator)
	pattern := make(Pattern, 0, len(parts))
	for i, part := range parts {
		switch part {
		case "":
			return nil, &ParseError{Input: s, Reason: "empty segment"}
		case "**":
			if i != len(parts)-1 {
				return nil, &ParseError{Input: s, Reason: `"**" must be the final segment`}
			}
			pattern = append(pattern, Segment{Kind: Tail})
		case "*":
			pattern = append(pattern, Segment{Kind: Single})
		default:
			pattern = append(pattern, Segment{Kind: Literal, Text: norm.NFC.String(part)})
		}
	}
	return pattern, nil
}

// MustParsePattern is ParsePattern for known-good literals. It panics
// on invalid input.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the pattern back into dotted form. Glued "**"
// suffixes come back in their normalized spelling.
func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		switch seg.Kind {
		case Single:
			parts[i] = "*"
		case Tail:
			parts[i] = "**"
		default:
			parts[i] = seg.Text
		}
	}
	return strings.Join(parts, Separator)
}

// Wildcarded reports whether the pattern contains any wildcard segment.
func (p Pattern) Wildcarded() bool {
	for _, seg := range p {
		if seg.Kind != Literal {
			return true
		}
	}
	return false
}

// Matches reports whether the pattern matches the whole concrete path.
// A final "**" also matches the path that stops right before it.
func (p Pattern) Matches(path Path) bool {
	for i, seg := range p {
		switch seg.Kind {
		case Tail:
			return true
		case Single:
			if i >= len(path) {
				return false
			}
		default:
			if i >= len(path) || path[i] != seg.Text {
				return false
			}
		}
	}
	return len(path) == len(p)
}

// Captures returns the wildcard bindings for a matching path: one entry
// per "*" in pattern order, then the dotted remainder for a final "**",
// which is the empty string when the suffix is empty. The boolean
// reports whether the pattern matched at all; a literal-only match
// yields a nil slice and true.
func (p Pattern) Captures(path Path) ([]string, bool) {
	var caps []string
	for i, seg := range p {
		switch seg.Kind {
		case Tail:
			return append(caps, Path(path[i:]).String()), true
		case Single:
			if i >= len(path) {
				return nil, false
			}
			caps = append(caps, path[i])
		default:
			if i >= len(path) || path[i] != seg.Text {
				return nil, false
			}
		}
	}
	if len(path) != len(p) {
		return nil, false
	}
	return caps, true
}
