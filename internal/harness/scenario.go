package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ripple/internal/model"
)

// Scenario is a declarative conformance case: seed documents, a step
// list driven against a fresh model, and assertions over the outcome.
type Scenario struct {
	// Name identifies the scenario and names its golden trace file.
	Name string `yaml:"name"`

	// Description explains what behavior the scenario exercises.
	Description string `yaml:"description"`

	// Source overrides the connection id stamped on local operations.
	Source string `yaml:"source,omitempty"`

	// DocIDs replaces random document ids with a fixed list, consumed
	// in order by add steps.
	DocIDs []string `yaml:"doc_ids,omitempty"`

	// Seed holds documents written to the store before the model opens.
	Seed []SeedDoc `yaml:"seed,omitempty"`

	// Steps run in order against the model.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedDoc is a document present in the store before the scenario runs.
type SeedDoc struct {
	Collection string         `yaml:"collection"`
	ID         string         `yaml:"id"`
	Data       map[string]any `yaml:"data"`
}

// Step is one scenario action. Which fields apply depends on Action.
type Step struct {
	// Action names the operation to perform.
	Action string `yaml:"action"`

	// Targets lists collection.id paths for the subscription actions.
	Targets []string `yaml:"targets,omitempty"`

	// Path is the mutation target for set, del and the array actions.
	Path string `yaml:"path,omitempty"`

	// Value is the value written by set.
	Value any `yaml:"value,omitempty"`

	// Values are the elements spliced in by insert.
	Values []any `yaml:"values,omitempty"`

	// Index positions insert and remove within the array.
	Index int `yaml:"index,omitempty"`

	// From and To position move within the array.
	From int `yaml:"from,omitempty"`
	To   int `yaml:"to,omitempty"`

	// HowMany sizes remove and move splices.
	HowMany int `yaml:"how_many,omitempty"`

	// Silent suppresses event emission for the mutation actions.
	Silent bool `yaml:"silent,omitempty"`

	// Collection and ID address add and inject.
	Collection string `yaml:"collection,omitempty"`
	ID         string `yaml:"id,omitempty"`

	// Data is the document body created by add.
	Data map[string]any `yaml:"data,omitempty"`

	// Op is the remote operation delivered by inject.
	Op *OpSpec `yaml:"op,omitempty"`

	// Error expects the step to fail with a message containing this
	// substring. The scenario aborts if the step succeeds instead.
	Error string `yaml:"error,omitempty"`
}

// OpSpec describes a remote operation injected through the backend.
type OpSpec struct {
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path,omitempty"`
	Value   any    `yaml:"value,omitempty"`
	Values  []any  `yaml:"values,omitempty"`
	Index   int    `yaml:"index,omitempty"`
	From    int    `yaml:"from,omitempty"`
	To      int    `yaml:"to,omitempty"`
	HowMany int    `yaml:"how_many,omitempty"`
	Source  string `yaml:"source,omitempty"`
}

// Op assembles the backend operation these fields describe.
func (s *OpSpec) Op() model.Op {
	return model.Op{
		Kind:    model.OpKind(s.Kind),
		Path:    s.Path,
		Value:   s.Value,
		Values:  s.Values,
		Index:   s.Index,
		From:    s.From,
		To:      s.To,
		HowMany: s.HowMany,
		Source:  s.Source,
	}
}

// TraceMatch selects recorded events by field. Zero-valued fields
// match anything; Remote is a pointer so false can be asserted.
type TraceMatch struct {
	Event  string `yaml:"event"`
	Path   string `yaml:"path,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Remote *bool  `yaml:"remote,omitempty"`
	Source string `yaml:"source,omitempty"`
}

// Assertion checks the recorded trace or the final model state.
type Assertion struct {
	// Type selects the assertion. See the Assert constants.
	Type string `yaml:"type"`

	// Event, Path, Value, Remote and Source select trace events for
	// trace_contains and trace_count.
	Event  string `yaml:"event,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Remote *bool  `yaml:"remote,omitempty"`
	Source string `yaml:"source,omitempty"`

	// Events is the ordered match list for trace_order.
	Events []TraceMatch `yaml:"events,omitempty"`

	// Count is the expected match count for trace_count and the
	// expected counter value for counter.
	Count int `yaml:"count,omitempty"`

	// Target names a collection.id document for the state assertions.
	Target string `yaml:"target,omitempty"`

	// Kind selects the counter checked by counter: fetch or subscribe.
	Kind string `yaml:"kind,omitempty"`

	// State optionally pins the retention state for resident.
	State string `yaml:"state,omitempty"`
}

// match reduces the inline selector fields to a TraceMatch.
func (a *Assertion) match() TraceMatch {
	return TraceMatch{
		Event:  a.Event,
		Path:   a.Path,
		Value:  a.Value,
		Remote: a.Remote,
		Source: a.Source,
	}
}

// Step actions.
const (
	ActionFetch       = "fetch"
	ActionSubscribe   = "subscribe"
	ActionUnfetch     = "unfetch"
	ActionUnsubscribe = "unsubscribe"
	ActionSet         = "set"
	ActionDel         = "del"
	ActionInsert      = "insert"
	ActionRemove      = "remove"
	ActionMove        = "move"
	ActionAdd         = "add"
	ActionInject      = "inject"
	ActionPause       = "pause"
	ActionResume      = "resume"
)

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertResident      = "resident"
	AssertNotResident   = "not_resident"
	AssertCounter       = "counter"
)

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ScenarioFiles lists the YAML scenario files under dir in name order.
func ScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, seed := range s.Seed {
		if seed.Collection == "" {
			return fmt.Errorf("seed[%d]: collection is required", i)
		}
		if seed.ID == "" {
			return fmt.Errorf("seed[%d]: id is required", i)
		}
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(i int, step *Step) error {
	switch step.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", i)

	case ActionFetch, ActionSubscribe, ActionUnfetch, ActionUnsubscribe:
		if len(step.Targets) == 0 {
			return fmt.Errorf("steps[%d]: targets list is required for %s", i, step.Action)
		}

	case ActionSet, ActionDel:
		if step.Path == "" {
			return fmt.Errorf("steps[%d]: path is required for %s", i, step.Action)
		}

	case ActionInsert:
		if step.Path == "" {
			return fmt.Errorf("steps[%d]: path is required for insert", i)
		}
		if len(step.Values) == 0 {
			return fmt.Errorf("steps[%d]: values list is required for insert", i)
		}

	case ActionRemove, ActionMove:
		if step.Path == "" {
			return fmt.Errorf("steps[%d]: path is required for %s", i, step.Action)
		}
		if step.HowMany <= 0 {
			return fmt.Errorf("steps[%d]: how_many must be positive for %s", i, step.Action)
		}

	case ActionAdd:
		if step.Collection == "" {
			return fmt.Errorf("steps[%d]: collection is required for add", i)
		}

	case ActionInject:
		if step.Collection == "" {
			return fmt.Errorf("steps[%d]: collection is required for inject", i)
		}
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for inject", i)
		}
		if step.Op == nil {
			return fmt.Errorf("steps[%d]: op is required for inject", i)
		}
		switch step.Op.Kind {
		case "":
			return fmt.Errorf("steps[%d]: op.kind is required for inject", i)
		case string(model.OpSet), string(model.OpDel), string(model.OpInsert),
			string(model.OpRemove), string(model.OpMove):
		default:
			return fmt.Errorf("steps[%d]: unknown op.kind %q", i, step.Op.Kind)
		}

	case ActionPause, ActionResume:

	default:
		return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
	}
	return nil
}

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)

	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", i)
		}

	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", i)
		}
		for j, m := range a.Events {
			if m.Event == "" {
				return fmt.Errorf("assertions[%d].events[%d]: event is required", i, j)
			}
		}

	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", i)
		}

	case AssertResident, AssertNotResident:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for %s", i, a.Type)
		}

	case AssertCounter:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for counter", i)
		}
		if a.Kind != "fetch" && a.Kind != "subscribe" {
			return fmt.Errorf("assertions[%d]: kind must be fetch or subscribe for counter", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for counter", i)
		}

	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
