package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: smallest valid scenario
seed: 1
settings:
  driver: {mode: single}
steps:
  - run: {}
assertions:
  - type: trace_count
    event: run
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, uint64(1), s.Seed)
	require.Len(t, s.Steps, 1)
	require.NotNil(t, s.Steps[0].Run)
	assert.Empty(t, s.Steps[0].Run.Expect)
	assert.Equal(t, map[string]any{"mode": "single"}, s.Settings["driver"])
}

func TestParseScenario_RunExpectation(t *testing.T) {
	doc := strings.Replace(minimalScenario, "  - run: {}", `  - run:
      expect: CONDITIONS_CHANGED
      condition: 2`, 1)
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)

	rs := s.Steps[0].Run
	assert.Equal(t, "CONDITIONS_CHANGED", rs.Expect)
	require.NotNil(t, rs.Condition)
	assert.Equal(t, 2, *rs.Condition)
}

func TestParseScenario_UnknownField(t *testing.T) {
	doc := strings.Replace(minimalScenario, "assertions:", "assertion:", 1)
	_, err := ParseScenario([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		want    string
	}{
		{"missing name", [2]string{"name: minimal", ""}, "name is required"},
		{"missing description", [2]string{"description: smallest valid scenario", ""}, "description is required"},
		{"missing settings", [2]string{"settings:\n  driver: {mode: single}", ""}, "settings are required"},
		{"empty step", [2]string{"  - run: {}", "  - {}"}, "exactly one of run, remove, write, patch"},
		{"two actions", [2]string{"  - run: {}", "  - {run: {}, remove: results.csv}"}, "exactly one of run, remove, write, patch"},
		{"escaping remove", [2]string{"  - run: {}", "  - remove: ../elsewhere"}, "must be relative to the output directory"},
		{"absolute write", [2]string{"  - run: {}", "  - write: {path: /etc/passwd, content: x}"}, "must be relative to the output directory"},
		{"unknown assertion", [2]string{"type: trace_count", "type: trace_contains"}, `unknown assertion type "trace_contains"`},
		{"trace_count without event", [2]string{"    event: run\n", ""}, "event is required for trace_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(minimalScenario, tt.replace[0], tt.replace[1], 1)
			_, err := ParseScenario([]byte(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"missing type", Assertion{}, "type is required"},
		{"file without path", Assertion{Type: AssertFileExists}, "path is required"},
		{"rows bad format", Assertion{Type: AssertResultsRows, Format: "xml"}, "format must be csv or json"},
		{"column without name", Assertion{Type: AssertResultsColumn, Format: "csv"}, "column is required"},
		{"outcomes empty", Assertion{Type: AssertRunOutcomes}, "outcomes list is required"},
		{"negative runs", Assertion{Type: AssertRuns, Count: -1}, "count must be non-negative for runs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	ok := []Assertion{
		{Type: AssertFileAbsent, Path: "conditions.3"},
		{Type: AssertResultsRows, Format: "json", Count: 0},
		{Type: AssertResultsColumn, Format: "csv", Column: "T", Values: []float64{300}},
		{Type: AssertRunOutcomes, Outcomes: []string{"ok"}},
		{Type: AssertConfigurations, Count: 2},
	}
	for _, a := range ok {
		assert.NoError(t, validateAssertion(0, &a), a.Type)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	names := map[string]bool{}
	for _, p := range paths {
		s, err := LoadScenario(p)
		require.NoError(t, err, p)
		assert.False(t, names[s.Name], "duplicate scenario name %s", s.Name)
		names[s.Name] = true
	}
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
}
