package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end driver scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed seeds every run of the scenario.
	Seed uint64 `yaml:"seed"`

	// Settings is the settings document, as it would appear in a YAML
	// settings file.
	Settings map[string]any `yaml:"settings"`

	// Steps run in order against one output directory.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the output directory after the
	// last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario step. Exactly one field is set.
type Step struct {
	// Run runs the driver on the current settings.
	Run *RunStep `yaml:"run,omitempty"`

	// Remove deletes a file, relative to the output directory.
	Remove string `yaml:"remove,omitempty"`

	// Write replaces a file's contents, relative to the output directory.
	Write *WriteStep `yaml:"write,omitempty"`

	// Patch is merged into the settings document for later runs. Nested
	// mappings merge; any other value replaces.
	Patch map[string]any `yaml:"patch,omitempty"`
}

// RunStep configures a run step.
type RunStep struct {
	// Expect is the expected error code; empty expects success.
	Expect string `yaml:"expect,omitempty"`

	// Condition, if set, is the condition index the error must carry.
	Condition *int `yaml:"condition,omitempty"`
}

// WriteStep replaces a file.
type WriteStep struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// Assertion validates the trace or the output directory.
type Assertion struct {
	// Type specifies the assertion type:
	// - "file_exists": Path exists in the output directory
	// - "file_absent": Path does not exist
	// - "results_rows": the Format results file has Count rows
	// - "results_column": Column of the Format results file equals Values
	// - "trace_count": Event appears exactly Count times in the trace
	// - "run_outcomes": the run outcomes, in order, equal Outcomes
	// - "runs": the database holds Count runs, the last with Status
	// - "configurations": the database holds at least Count configurations
	Type string `yaml:"type"`

	Path     string    `yaml:"path,omitempty"`
	Format   string    `yaml:"format,omitempty"`
	Column   string    `yaml:"column,omitempty"`
	Values   []float64 `yaml:"values,omitempty"`
	Event    string    `yaml:"event,omitempty"`
	Outcomes []string  `yaml:"outcomes,omitempty"`
	Status   string    `yaml:"status,omitempty"`
	Count    int       `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFileExists     = "file_exists"
	AssertFileAbsent     = "file_absent"
	AssertResultsRows    = "results_rows"
	AssertResultsColumn  = "results_column"
	AssertTraceCount     = "trace_count"
	AssertRunOutcomes    = "run_outcomes"
	AssertRuns           = "runs"
	AssertConfigurations = "configurations"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Settings) == 0 {
		return fmt.Errorf("settings are required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Run != nil {
		set++
	}
	if s.Remove != "" {
		set++
		if err := validateRelPath(s.Remove); err != nil {
			return fmt.Errorf("steps[%d].remove: %w", index, err)
		}
	}
	if s.Write != nil {
		set++
		if err := validateRelPath(s.Write.Path); err != nil {
			return fmt.Errorf("steps[%d].write: %w", index, err)
		}
	}
	if s.Patch != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of run, remove, write, patch is required", index)
	}
	return nil
}

// validateRelPath keeps step paths inside the output directory.
func validateRelPath(p string) error {
	if p == "" {
		return fmt.Errorf("path is required")
	}
	if filepath.IsAbs(p) || strings.HasPrefix(filepath.Clean(p), "..") {
		return fmt.Errorf("path %q must be relative to the output directory", p)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFileExists, AssertFileAbsent:
		if err := validateRelPath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertResultsRows:
		if a.Format != "csv" && a.Format != "json" {
			return fmt.Errorf("assertions[%d]: format must be csv or json for results_rows", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for results_rows", index)
		}
	case AssertResultsColumn:
		if a.Format != "csv" && a.Format != "json" {
			return fmt.Errorf("assertions[%d]: format must be csv or json for results_column", index)
		}
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for results_column", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRunOutcomes:
		if len(a.Outcomes) == 0 {
			return fmt.Errorf("assertions[%d]: outcomes list is required for run_outcomes", index)
		}
	case AssertRuns, AssertConfigurations:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
