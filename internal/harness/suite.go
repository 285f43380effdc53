package harness

import (
	"fmt"
	"path/filepath"
	"sort"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Name   string   `json:"name,omitempty"`
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}

// DiscoverScenarios returns the .yaml and .yml files in dir, sorted.
func DiscoverScenarios(dir string) ([]string, error) {
	var out []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

// RunSuite loads and runs every scenario in dir. A scenario that cannot be
// loaded or executed counts as failed; RunSuite itself only fails when dir
// cannot be listed or holds no scenarios.
func RunSuite(dir string) (*SuiteResult, error) {
	paths, err := DiscoverScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios in %s", dir)
	}

	out := &SuiteResult{TotalScenarios: len(paths)}
	for _, path := range paths {
		failure := ScenarioFailure{Path: path}
		scenario, err := LoadScenario(path)
		if err != nil {
			failure.Errors = []string{err.Error()}
			out.Failed++
			out.Failures = append(out.Failures, failure)
			continue
		}
		failure.Name = scenario.Name

		result, err := Run(scenario)
		switch {
		case err != nil:
			failure.Errors = []string{err.Error()}
		case !result.Pass:
			failure.Errors = result.Errors
		default:
			out.Passed++
			continue
		}
		out.Failed++
		out.Failures = append(out.Failures, failure)
	}
	return out, nil
}
