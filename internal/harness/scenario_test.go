package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validScenarioYAML = `name: valid
description: A valid scenario.
seed:
  - collection: users
    id: u1
    data:
      name: Ada
steps:
  - action: subscribe
    targets: [users.u1]
  - action: set
    path: users.u1.name
    value: Grace
assertions:
  - type: trace_count
    event: change
    count: 1
`

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario(writeScenarioFile(t, validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "valid", scenario.Name)
	assert.Equal(t, "A valid scenario.", scenario.Description)

	require.Len(t, scenario.Seed, 1)
	assert.Equal(t, "users", scenario.Seed[0].Collection)
	assert.Equal(t, "u1", scenario.Seed[0].ID)
	assert.Equal(t, map[string]any{"name": "Ada"}, scenario.Seed[0].Data)

	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, ActionSubscribe, scenario.Steps[0].Action)
	assert.Equal(t, []string{"users.u1"}, scenario.Steps[0].Targets)
	assert.Equal(t, ActionSet, scenario.Steps[1].Action)
	assert.Equal(t, "users.u1.name", scenario.Steps[1].Path)
	assert.Equal(t, "Grace", scenario.Steps[1].Value)

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertTraceCount, scenario.Assertions[0].Type)
	assert.Equal(t, "change", scenario.Assertions[0].Event)
	assert.Equal(t, 1, scenario.Assertions[0].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	_, err := LoadScenario(writeScenarioFile(t, "name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	content := `name: typo
description: A step with a misspelled field.
steps:
  - action: set
    paht: users.u1.name
    value: Grace
assertions:
  - type: trace_count
    event: change
    count: 1
`
	_, err := LoadScenario(writeScenarioFile(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "paht")
}

func TestLoadScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `description: No name.
steps:
  - action: pause
assertions:
  - type: trace_count
    event: change
    count: 0
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `name: no_description
steps:
  - action: pause
assertions:
  - type: trace_count
    event: change
    count: 0
`,
			wantErr: "description is required",
		},
		{
			name: "missing steps",
			content: `name: no_steps
description: No steps.
assertions:
  - type: trace_count
    event: change
    count: 0
`,
			wantErr: "steps list is required and must be non-empty",
		},
		{
			name: "missing assertions",
			content: `name: no_assertions
description: No assertions.
steps:
  - action: pause
`,
			wantErr: "assertions list is required and must be non-empty",
		},
		{
			name: "seed missing collection",
			content: `name: bad_seed
description: Seed without a collection.
seed:
  - id: u1
steps:
  - action: pause
assertions:
  - type: trace_count
    event: change
    count: 0
`,
			wantErr: "seed[0]: collection is required",
		},
		{
			name: "seed missing id",
			content: `name: bad_seed
description: Seed without an id.
seed:
  - collection: users
steps:
  - action: pause
assertions:
  - type: trace_count
    event: change
    count: 0
`,
			wantErr: "seed[0]: id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenarioFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"missing action", Step{}, "action is required"},
		{"fetch without targets", Step{Action: ActionFetch}, "targets list is required for fetch"},
		{"unsubscribe without targets", Step{Action: ActionUnsubscribe}, "targets list is required for unsubscribe"},
		{"set without path", Step{Action: ActionSet, Value: 1}, "path is required for set"},
		{"del without path", Step{Action: ActionDel}, "path is required for del"},
		{"insert without path", Step{Action: ActionInsert, Values: []any{1}}, "path is required for insert"},
		{"insert without values", Step{Action: ActionInsert, Path: "a.b.c"}, "values list is required for insert"},
		{"remove without how_many", Step{Action: ActionRemove, Path: "a.b.c"}, "how_many must be positive for remove"},
		{"move without how_many", Step{Action: ActionMove, Path: "a.b.c"}, "how_many must be positive for move"},
		{"add without collection", Step{Action: ActionAdd}, "collection is required for add"},
		{"inject without collection", Step{Action: ActionInject, ID: "u1", Op: &OpSpec{Kind: "set"}}, "collection is required for inject"},
		{"inject without id", Step{Action: ActionInject, Collection: "users", Op: &OpSpec{Kind: "set"}}, "id is required for inject"},
		{"inject without op", Step{Action: ActionInject, Collection: "users", ID: "u1"}, "op is required for inject"},
		{"inject without op kind", Step{Action: ActionInject, Collection: "users", ID: "u1", Op: &OpSpec{}}, "op.kind is required for inject"},
		{"inject with bad op kind", Step{Action: ActionInject, Collection: "users", ID: "u1", Op: &OpSpec{Kind: "merge"}}, `unknown op.kind "merge"`},
		{"unknown action", Step{Action: "warp"}, `unknown action "warp"`},
		{"valid pause", Step{Action: ActionPause}, ""},
		{"valid subscribe", Step{Action: ActionSubscribe, Targets: []string{"users.u1"}}, ""},
		{"valid move", Step{Action: ActionMove, Path: "a.b.c", From: 0, To: 1, HowMany: 1}, ""},
		{"valid inject", Step{Action: ActionInject, Collection: "users", ID: "u1", Op: &OpSpec{Kind: "del", Path: "name"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStep(0, &tt.step)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"missing type", Assertion{}, "type is required"},
		{"trace_contains without event", Assertion{Type: AssertTraceContains}, "event is required for trace_contains"},
		{"trace_order without events", Assertion{Type: AssertTraceOrder}, "events list is required for trace_order"},
		{"trace_order entry without event", Assertion{Type: AssertTraceOrder, Events: []TraceMatch{{Path: "a.b"}}}, "events[0]: event is required"},
		{"trace_count without event", Assertion{Type: AssertTraceCount, Count: 1}, "event is required for trace_count"},
		{"trace_count negative", Assertion{Type: AssertTraceCount, Event: "change", Count: -1}, "count must be non-negative for trace_count"},
		{"resident without target", Assertion{Type: AssertResident}, "target is required for resident"},
		{"not_resident without target", Assertion{Type: AssertNotResident}, "target is required for not_resident"},
		{"counter without target", Assertion{Type: AssertCounter, Kind: "fetch"}, "target is required for counter"},
		{"counter with bad kind", Assertion{Type: AssertCounter, Target: "users.u1", Kind: "load"}, "kind must be fetch or subscribe for counter"},
		{"counter negative", Assertion{Type: AssertCounter, Target: "users.u1", Kind: "fetch", Count: -1}, "count must be non-negative for counter"},
		{"unknown type", Assertion{Type: "state_equals"}, `unknown assertion type "state_equals"`},
		{"valid trace_contains", Assertion{Type: AssertTraceContains, Event: "change"}, ""},
		{"valid trace_order", Assertion{Type: AssertTraceOrder, Events: []TraceMatch{{Event: "load"}, {Event: "unload"}}}, ""},
		{"valid counter", Assertion{Type: AssertCounter, Target: "users.u1", Kind: "subscribe", Count: 2}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.assertion)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestActionConstants(t *testing.T) {
	assert.Equal(t, "fetch", ActionFetch)
	assert.Equal(t, "subscribe", ActionSubscribe)
	assert.Equal(t, "unfetch", ActionUnfetch)
	assert.Equal(t, "unsubscribe", ActionUnsubscribe)
	assert.Equal(t, "set", ActionSet)
	assert.Equal(t, "del", ActionDel)
	assert.Equal(t, "insert", ActionInsert)
	assert.Equal(t, "remove", ActionRemove)
	assert.Equal(t, "move", ActionMove)
	assert.Equal(t, "add", ActionAdd)
	assert.Equal(t, "inject", ActionInject)
	assert.Equal(t, "pause", ActionPause)
	assert.Equal(t, "resume", ActionResume)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "trace_contains", AssertTraceContains)
	assert.Equal(t, "trace_order", AssertTraceOrder)
	assert.Equal(t, "trace_count", AssertTraceCount)
	assert.Equal(t, "resident", AssertResident)
	assert.Equal(t, "not_resident", AssertNotResident)
	assert.Equal(t, "counter", AssertCounter)
}

func TestScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	files, err := ScenarioFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
	}, files)
}

func TestScenarioFiles_MissingDir(t *testing.T) {
	_, err := ScenarioFiles(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario directory")
}

func TestLoadExampleScenarios(t *testing.T) {
	tests := []struct {
		file       string
		steps      int
		assertions int
	}{
		{"subscribe_write_unload.yaml", 3, 3},
		{"remote_injection.yaml", 3, 2},
		{"array_mutations.yaml", 4, 3},
		{"nested_references.yaml", 3, 5},
		{"deferred_eviction.yaml", 5, 3},
		{"silent_writes.yaml", 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", tt.file))
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Description)
			assert.Len(t, scenario.Steps, tt.steps)
			assert.Len(t, scenario.Assertions, tt.assertions)
		})
	}
}
