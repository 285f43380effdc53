package harness

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LonxunQuantum/CASMcode/internal/store"
)

func assertionContext(t *testing.T) *AssertionContext {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "results.csv"),
		[]byte("T,is_converged,<formation_energy>\n300,true,-0.01\n400,false,NaN\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results.json"),
		[]byte(`{"T":[300,400],"is_converged":[true,false],"<formation_energy>":[-0.01,null]}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "conditions.0"), 0o755))
	return &AssertionContext{Store: st, Ctx: context.Background(), OutputDir: dir}
}

func sampleResult() *Result {
	r := NewResult()
	r.AddEvent(TraceEvent{Type: EventRun, Outcome: OutcomeOK, StartIndex: 0, Condition: -1, Steps: 64})
	r.AddEvent(TraceEvent{Type: EventRemove, Path: "conditions.1/final_state.json", StartIndex: -1, Condition: -1})
	r.AddEvent(TraceEvent{Type: EventRun, Outcome: "CONDITIONS_CHANGED", StartIndex: -1, Condition: 1})
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	actx := assertionContext(t)
	assertions := []Assertion{
		{Type: AssertFileExists, Path: "conditions.0"},
		{Type: AssertFileAbsent, Path: "conditions.1"},
		{Type: AssertResultsRows, Format: "csv", Count: 2},
		{Type: AssertResultsRows, Format: "json", Count: 2},
		{Type: AssertResultsColumn, Format: "csv", Column: "T", Values: []float64{300, 400}},
		{Type: AssertResultsColumn, Format: "json", Column: "is_converged", Values: []float64{1, 0}},
		{Type: AssertResultsColumn, Format: "csv", Column: "<formation_energy>", Values: []float64{-0.01, math.NaN()}},
		{Type: AssertResultsColumn, Format: "json", Column: "<formation_energy>", Values: []float64{-0.01, math.NaN()}},
		{Type: AssertTraceCount, Event: EventRun, Count: 2},
		{Type: AssertTraceCount, Event: EventPatch, Count: 0},
		{Type: AssertRunOutcomes, Outcomes: []string{"ok", "CONDITIONS_CHANGED"}},
		{Type: AssertRuns, Count: 0},
		{Type: AssertConfigurations, Count: 0},
	}

	assert.Empty(t, EvaluateAssertions(sampleResult(), assertions, actx))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	actx := assertionContext(t)
	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"file exists", Assertion{Type: AssertFileExists, Path: "results.txt"}, "Expected: results.txt exists"},
		{"file absent", Assertion{Type: AssertFileAbsent, Path: "results.csv"}, "Actual: results.csv exists"},
		{"rows", Assertion{Type: AssertResultsRows, Format: "json", Count: 3}, "Actual: 2 rows"},
		{"missing column", Assertion{Type: AssertResultsColumn, Format: "csv", Column: "N_samples"}, `Expected: column "N_samples" in results.csv`},
		{"column values", Assertion{Type: AssertResultsColumn, Format: "json", Column: "T", Values: []float64{300, 500}}, "Actual: T = [300 400]"},
		{"trace count", Assertion{Type: AssertTraceCount, Event: EventRemove, Count: 2}, "Actual: remove appears 1 time(s)"},
		{"outcomes", Assertion{Type: AssertRunOutcomes, Outcomes: []string{"ok"}}, "Actual: run outcomes [ok CONDITIONS_CHANGED]"},
		{"runs", Assertion{Type: AssertRuns, Count: 1}, "Actual: 0 stored run(s)"},
		{"configurations", Assertion{Type: AssertConfigurations, Count: 1}, "Actual: 0 stored configuration(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.a}, actx)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]: Assertion failed: "+tt.a.Type)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestEvaluateAssertions_RunStatus(t *testing.T) {
	actx := assertionContext(t)
	ctx := context.Background()
	require.NoError(t, actx.Store.BeginRun(ctx, store.Run{ID: "test-run-1", OutputDir: actx.OutputDir}))
	require.NoError(t, actx.Store.FinishRun(ctx, "test-run-1", 1, store.RunFailed))

	assert.Empty(t, EvaluateAssertions(sampleResult(), []Assertion{{Type: AssertRuns, Count: 1, Status: store.RunFailed}}, actx))

	errs := EvaluateAssertions(sampleResult(), []Assertion{{Type: AssertRuns, Count: 1, Status: store.RunComplete}}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Actual: last run test-run-1 failed")
}

func TestReadResults_MissingFileHasNoRows(t *testing.T) {
	cols, err := readResults(t.TempDir(), "csv")
	require.NoError(t, err)
	assert.Equal(t, 0, cols.rows())
}

func TestReadResults_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results.json"), []byte("{"), 0o644))

	_, err := readResults(dir, "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse results.json")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRunOutcomes,
		Expected: "run outcomes [ok]",
		Actual:   "run outcomes [ok CONDITIONS_CHANGED]",
		Trace: []TraceEvent{
			{Seq: 1, Type: EventRun, Outcome: OutcomeOK},
			{Seq: 2, Type: EventPatch, Keys: []string{"driver"}},
			{Seq: 3, Type: EventWrite, Path: "results.csv"},
		},
	}

	want := "Assertion failed: run_outcomes\n" +
		"  Expected: run outcomes [ok]\n" +
		"  Actual: run outcomes [ok CONDITIONS_CHANGED]\n" +
		"\nFull trace:\n" +
		"  [1] run -> ok\n" +
		"  [2] patch [driver]\n" +
		"  [3] write results.csv\n"
	assert.Equal(t, want, err.Error())
}
