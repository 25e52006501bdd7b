package harness

import (
	"fmt"
	"path/filepath"
)

// SuiteResult aggregates the outcome of running every scenario in a
// directory.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure records why one scenario failed.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// RunDir loads and runs every scenario file under dir. A scenario
// that fails to load or aborts on a step counts as failed; the error
// is recorded on its failure entry.
func RunDir(dir string) (*SuiteResult, error) {
	files, err := ScenarioFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	suite := &SuiteResult{}
	for _, file := range files {
		suite.Total++
		name := filepath.Base(file)

		scenario, err := LoadScenario(file)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: name,
				Path:     file,
				Errors:   []string{err.Error()},
			})
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: scenario.Name,
				Path:     file,
				Errors:   []string{err.Error()},
			})
			continue
		}

		if result.Pass {
			suite.Passed++
			continue
		}
		suite.Failed++
		suite.Failures = append(suite.Failures, ScenarioFailure{
			Scenario: scenario.Name,
			Path:     file,
			Errors:   result.Errors,
		})
	}

	return suite, nil
}
