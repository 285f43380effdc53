package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/LonxunQuantum/CASMcode/internal/ident"
)

// Snapshot captures what a golden file records for a scenario: the trace,
// the files left in the output directory and the results.csv columns.
// Sampled values are not recorded.
type Snapshot struct {
	ScenarioName  string       `json:"scenario_name"`
	Trace         []TraceEvent `json:"trace"`
	Tree          []string     `json:"tree"`
	ResultsHeader []string     `json:"results_header,omitempty"`
}

// toCanonicalMap converts the snapshot for canonical JSON serialization,
// which only handles maps, slices and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":  event.Seq,
			"type": event.Type,
		}
		if event.Path != "" {
			eventMap["path"] = event.Path
		}
		if len(event.Keys) > 0 {
			eventMap["keys"] = event.Keys
		}
		if event.Type == EventRun {
			eventMap["outcome"] = event.Outcome
			eventMap["steps"] = event.Steps
			if event.StartIndex >= 0 {
				eventMap["start_index"] = event.StartIndex
			}
			if event.Condition >= 0 {
				eventMap["condition"] = event.Condition
			}
		}
		traceList[i] = eventMap
	}

	tree := s.Tree
	if tree == nil {
		tree = []string{}
	}
	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"tree":          tree,
	}
	if len(s.ResultsHeader) > 0 {
		out["results_header"] = s.ResultsHeader
	}
	return out
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ident.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden. Failed expectations or
// assertions fail the test before the comparison.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against the golden file named
// scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName:  scenarioName,
		Trace:         result.Trace,
		Tree:          result.Tree,
		ResultsHeader: result.ResultsHeader,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
