package policy

import (
	"fmt"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompilePolicies parses a CUE value into a policy Set.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should hold a collections struct, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`collections: posts: {unloadDelay: "2s"}`)
//	set, err := CompilePolicies(v)
func CompilePolicies(v cue.Value) (Set, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	colsVal := v.LookupPath(cue.ParsePath("collections"))
	if !colsVal.Exists() {
		return nil, &CompileError{
			Field:   "collections",
			Message: "collections is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	set := make(Set)
	for iter.Next() {
		name := iter.Label()
		p, err := compilePolicy(name, iter.Value())
		if err != nil {
			return nil, err
		}
		set[name] = p
	}

	return set, nil
}

// compilePolicy parses one collection's policy struct. Unknown fields
// are rejected so a typo cannot silently disable a policy.
func compilePolicy(name string, v cue.Value) (Policy, error) {
	if strings.Contains(name, ".") {
		return Policy{}, &CompileError{
			Field:   fmt.Sprintf("collections.%s", name),
			Message: "collection name must not contain '.'",
			Pos:     v.Pos(),
		}
	}

	p := Policy{Collection: name}

	iter, err := v.Fields()
	if err != nil {
		return Policy{}, formatCUEError(err)
	}

	for iter.Next() {
		field := iter.Label()
		fieldValue := iter.Value()

		switch field {
		case "unloadDelay":
			s, err := fieldValue.String()
			if err != nil {
				return Policy{}, formatCUEError(err)
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return Policy{}, &CompileError{
					Field:   fmt.Sprintf("collections.%s.unloadDelay", name),
					Message: fmt.Sprintf("invalid duration %q", s),
					Pos:     fieldValue.Pos(),
				}
			}
			if d < 0 {
				return Policy{}, &CompileError{
					Field:   fmt.Sprintf("collections.%s.unloadDelay", name),
					Message: "duration must not be negative",
					Pos:     fieldValue.Pos(),
				}
			}
			p.UnloadDelay = d
			p.UnloadDelaySet = true

		case "fetchOnly":
			b, err := fieldValue.Bool()
			if err != nil {
				return Policy{}, formatCUEError(err)
			}
			p.FetchOnly = b

		case "local":
			b, err := fieldValue.Bool()
			if err != nil {
				return Policy{}, formatCUEError(err)
			}
			p.Local = b

		default:
			return Policy{}, &CompileError{
				Field:   fmt.Sprintf("collections.%s.%s", name, field),
				Message: "unknown policy field",
				Pos:     fieldValue.Pos(),
			}
		}
	}

	return p, nil
}

// LoadPolicies compiles policy source bytes, typically the contents of
// a .cue file. filename is used for error positions.
func LoadPolicies(data []byte, filename string) (Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return CompilePolicies(v)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
