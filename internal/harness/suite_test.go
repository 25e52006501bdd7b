package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingSuiteYAML = `name: passing
description: One local write dispatches one change.
steps:
  - action: set
    path: docs.d1.title
    value: hello
assertions:
  - type: trace_count
    event: change
    count: 1
`

const failingSuiteYAML = `name: failing
description: Expects a change that never happens.
steps:
  - action: set
    path: docs.d1.title
    value: hello
assertions:
  - type: trace_count
    event: change
    count: 2
`

func TestRunDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "passing.yaml"), []byte(passingSuiteYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failingSuiteYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: ["), 0o644))

	suite, err := RunDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 2, suite.Failed)
	require.Len(t, suite.Failures, 2)

	// Files run in name order: broken.yaml before failing.yaml.
	assert.Equal(t, "broken.yaml", suite.Failures[0].Scenario)
	require.Len(t, suite.Failures[0].Errors, 1)
	assert.Contains(t, suite.Failures[0].Errors[0], "failed to parse YAML")

	assert.Equal(t, "failing", suite.Failures[1].Scenario)
	require.Len(t, suite.Failures[1].Errors, 1)
	assert.Contains(t, suite.Failures[1].Errors[0], "Assertion failed: trace_count")
}

func TestRunDir_ExampleScenarios(t *testing.T) {
	suite, err := RunDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	assert.Equal(t, 6, suite.Total)
	assert.Equal(t, 6, suite.Passed)
	assert.Zero(t, suite.Failed)
	assert.Empty(t, suite.Failures)
}

func TestRunDir_NoScenarios(t *testing.T) {
	_, err := RunDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files found")
}
