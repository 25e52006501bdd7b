package path

import "fmt"

// ParseError reports an invalid path or pattern string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Input, e.Reason)
}
