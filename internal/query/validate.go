package query

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks an expression before compilation. Collection and
// every filter field must pass the identifier grammar because field
// paths are interpolated into json_extract; values and limits are
// checked here so compile failures surface with the caller's context
// rather than from the database driver.
func Validate(e Expr) error {
	if e.Collection == "" {
		return fmt.Errorf("query: collection is required")
	}
	if !identPattern.MatchString(e.Collection) {
		return fmt.Errorf("query: invalid collection %q", e.Collection)
	}
	if e.Limit < 0 {
		return fmt.Errorf("query: negative limit %d", e.Limit)
	}
	if e.Filter == nil {
		return nil
	}
	return validateFilter(e.Filter)
}

func validateFilter(f Filter) error {
	switch filter := f.(type) {
	case Compare:
		return validateCompare(filter)
	case *Compare:
		return validateCompare(*filter)
	case And:
		return validateAnd(filter)
	case *And:
		return validateAnd(*filter)
	case nil:
		return fmt.Errorf("query: nil filter")
	default:
		return fmt.Errorf("query: unsupported filter type %T", f)
	}
}

func validateCompare(c Compare) error {
	if c.Field == "" {
		return fmt.Errorf("query: comparison field is required")
	}
	for _, seg := range strings.Split(c.Field, ".") {
		if !identPattern.MatchString(seg) {
			return fmt.Errorf("query: invalid field %q", c.Field)
		}
	}
	switch c.Op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
	default:
		return fmt.Errorf("query: unknown operator %q on field %q", c.Op, c.Field)
	}
	switch c.Value.(type) {
	case string, int, int64, bool:
		return nil
	default:
		return fmt.Errorf("query: field %q: unsupported value type %T", c.Field, c.Value)
	}
}

func validateAnd(a And) error {
	for _, f := range a.Filters {
		if err := validateFilter(f); err != nil {
			return err
		}
	}
	return nil
}
