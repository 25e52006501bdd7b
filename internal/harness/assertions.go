package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/ripple/internal/model"
	"github.com/roach88/ripple/internal/path"
)

// AssertionError describes a failed assertion with enough context to
// diagnose it from the test output alone.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&sb, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&sb, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		sb.WriteString("\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&sb, "  [%d] %s %s\n", i, ev.Type, ev.Path)
		}
	}

	return sb.String()
}

// AssertionContext supplies the live model for the state assertions.
type AssertionContext struct {
	Model *model.Model
}

// EvaluateAssertions checks every assertion against the result and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertResident:
			if actx == nil || actx.Model == nil {
				err = fmt.Errorf("assertions[%d]: resident requires a model context", i)
			} else {
				err = assertResident(actx.Model, assertion)
			}
		case AssertNotResident:
			if actx == nil || actx.Model == nil {
				err = fmt.Errorf("assertions[%d]: not_resident requires a model context", i)
			} else {
				err = assertNotResident(actx.Model, assertion)
			}
		case AssertCounter:
			if actx == nil || actx.Model == nil {
				err = fmt.Errorf("assertions[%d]: counter requires a model context", i)
			} else {
				err = assertCounter(actx.Model, assertion)
			}
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	return failures
}

// matchEvent reports whether a recorded event satisfies a match. Only
// the fields set on the match are compared.
func matchEvent(ev TraceEvent, m TraceMatch) bool {
	if ev.Type != m.Event {
		return false
	}
	if m.Path != "" && ev.Path != m.Path {
		return false
	}
	if m.Value != nil && !valuesMatch(m.Value, ev.Value) {
		return false
	}
	if m.Remote != nil && ev.Remote != *m.Remote {
		return false
	}
	if m.Source != "" && ev.Source != m.Source {
		return false
	}
	return true
}

func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want := assertion.match()
	for _, ev := range trace {
		if matchEvent(ev, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s in trace", describeMatch(want)),
		Actual:   "no matching event",
		Trace:    trace,
	}
}

// assertTraceOrder scans the trace once, advancing through the match
// list. Events between matches are ignored, so the list is a
// subsequence requirement rather than an exact prefix.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(assertion.Events) && matchEvent(ev, assertion.Events[next]) {
			next++
		}
	}
	if next < len(assertion.Events) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("events in order: %s", describeMatches(assertion.Events)),
			Actual:   fmt.Sprintf("matched %d of %d, no event for %s", next, len(assertion.Events), describeMatch(assertion.Events[next])),
			Trace:    trace,
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	want := assertion.match()
	count := 0
	for _, ev := range trace {
		if matchEvent(ev, want) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events matching %s", assertion.Count, describeMatch(want)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertResident(m *model.Model, assertion Assertion) error {
	collection, id, err := splitTarget(assertion.Target)
	if err != nil {
		return err
	}
	state := m.RetentionState(collection, id)
	if state == "" {
		return &AssertionError{
			Type:     AssertResident,
			Expected: fmt.Sprintf("document %s resident", assertion.Target),
			Actual:   "not resident",
		}
	}
	if assertion.State != "" && state != assertion.State {
		return &AssertionError{
			Type:     AssertResident,
			Expected: fmt.Sprintf("document %s in retention state %q", assertion.Target, assertion.State),
			Actual:   fmt.Sprintf("retention state %q", state),
		}
	}
	return nil
}

func assertNotResident(m *model.Model, assertion Assertion) error {
	collection, id, err := splitTarget(assertion.Target)
	if err != nil {
		return err
	}
	if state := m.RetentionState(collection, id); state != "" {
		return &AssertionError{
			Type:     AssertNotResident,
			Expected: fmt.Sprintf("document %s evicted", assertion.Target),
			Actual:   fmt.Sprintf("resident in retention state %q", state),
		}
	}
	return nil
}

func assertCounter(m *model.Model, assertion Assertion) error {
	collection, id, err := splitTarget(assertion.Target)
	if err != nil {
		return err
	}

	var count int
	switch assertion.Kind {
	case "fetch":
		count = m.FetchCount(collection, id)
	case "subscribe":
		count = m.SubscribeCount(collection, id)
	default:
		return fmt.Errorf("unknown counter kind %q", assertion.Kind)
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCounter,
			Expected: fmt.Sprintf("%s count %d for %s", assertion.Kind, assertion.Count, assertion.Target),
			Actual:   fmt.Sprintf("count %d", count),
		}
	}
	return nil
}

// splitTarget parses a collection.id document reference.
func splitTarget(target string) (collection, id string, err error) {
	p, err := path.Split(target)
	if err != nil {
		return "", "", fmt.Errorf("invalid target %q: %w", target, err)
	}
	if len(p) != 2 {
		return "", "", fmt.Errorf("target %q must name a collection.id document", target)
	}
	return p[0], p[1], nil
}

func describeMatch(m TraceMatch) string {
	desc := m.Event
	if m.Path != "" {
		desc += " at " + m.Path
	}
	if m.Value != nil {
		desc += fmt.Sprintf(" value %v", m.Value)
	}
	if m.Remote != nil {
		desc += fmt.Sprintf(" remote %t", *m.Remote)
	}
	if m.Source != "" {
		desc += " source " + m.Source
	}
	return desc
}

func describeMatches(matches []TraceMatch) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = describeMatch(m)
	}
	return strings.Join(parts, ", ")
}

// valuesMatch compares an expected scenario value against a recorded
// one. YAML decodes integers as int while the store round-trips them
// as float64, so numbers compare by value. Maps compare as subsets of
// the actual value; arrays compare element by element.
func valuesMatch(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if en, ok := asFloat(expected); ok {
		an, ok := asFloat(actual)
		return ok && en == an
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, present := act[k]
			if !present || !valuesMatch(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesMatch(exp[i], act[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
