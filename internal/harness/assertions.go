package harness

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// AssertionContext provides what assertions need besides the trace.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	OutputDir string
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventRun:
			fmt.Fprintf(&buf, "  [%d] run -> %s\n", event.Seq, event.Outcome)
		case EventPatch:
			fmt.Fprintf(&buf, "  [%d] patch %v\n", event.Seq, event.Keys)
		default:
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Type, event.Path)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertFileExists:
		return assertFile(result, a, actx, true)
	case AssertFileAbsent:
		return assertFile(result, a, actx, false)
	case AssertResultsRows:
		return assertResultsRows(result, a, actx)
	case AssertResultsColumn:
		return assertResultsColumn(result, a, actx)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertRunOutcomes:
		return assertRunOutcomes(result, a)
	case AssertRuns:
		return assertRuns(result, a, actx)
	case AssertConfigurations:
		return assertConfigurations(result, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFile(result *Result, a Assertion, actx *AssertionContext, want bool) error {
	_, err := os.Stat(filepath.Join(actx.OutputDir, a.Path))
	exists := !errors.Is(err, os.ErrNotExist)
	if exists == want {
		return nil
	}
	state := map[bool]string{true: "exists", false: "absent"}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %s", a.Path, state[want]),
		Actual:   fmt.Sprintf("%s %s", a.Path, state[exists]),
		Trace:    result.Trace,
	}
}

func assertResultsRows(result *Result, a Assertion, actx *AssertionContext) error {
	cols, err := readResults(actx.OutputDir, a.Format)
	if err != nil {
		return err
	}
	n := cols.rows()
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d rows in results.%s", a.Count, a.Format),
		Actual:   fmt.Sprintf("%d rows", n),
		Trace:    result.Trace,
	}
}

func assertResultsColumn(result *Result, a Assertion, actx *AssertionContext) error {
	cols, err := readResults(actx.OutputDir, a.Format)
	if err != nil {
		return err
	}
	got, ok := cols.values[a.Column]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("column %q in results.%s", a.Column, a.Format),
			Actual:   fmt.Sprintf("columns %v", cols.names),
			Trace:    result.Trace,
		}
	}
	if slices.EqualFunc(got, a.Values, sameFloat) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s = %v", a.Column, a.Values),
		Actual:   fmt.Sprintf("%s = %v", a.Column, got),
		Trace:    result.Trace,
	}
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= 1e-9*max(1, math.Abs(a), math.Abs(b))
}

// assertTraceCount checks if the event type appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == a.Event {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s appears %d time(s)", a.Event, a.Count),
		Actual:   fmt.Sprintf("%s appears %d time(s)", a.Event, count),
		Trace:    trace,
	}
}

func assertRunOutcomes(result *Result, a Assertion) error {
	var got []string
	for _, e := range result.Runs() {
		got = append(got, e.Outcome)
	}
	if slices.Equal(got, a.Outcomes) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("run outcomes %v", a.Outcomes),
		Actual:   fmt.Sprintf("run outcomes %v", got),
		Trace:    result.Trace,
	}
}

func assertRuns(result *Result, a Assertion, actx *AssertionContext) error {
	runs, err := actx.Store.Runs(actx.Ctx)
	if err != nil {
		return err
	}
	if len(runs) != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d stored run(s)", a.Count),
			Actual:   fmt.Sprintf("%d stored run(s)", len(runs)),
			Trace:    result.Trace,
		}
	}
	if a.Status == "" || len(runs) == 0 {
		return nil
	}
	if last := runs[len(runs)-1]; last.Status != a.Status {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("last run %s", a.Status),
			Actual:   fmt.Sprintf("last run %s %s", last.ID, last.Status),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertConfigurations(result *Result, a Assertion, actx *AssertionContext) error {
	recs, err := actx.Store.ListConfigurations(actx.Ctx)
	if err != nil {
		return err
	}
	if len(recs) >= a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("at least %d stored configuration(s)", a.Count),
		Actual:   fmt.Sprintf("%d stored configuration(s)", len(recs)),
		Trace:    result.Trace,
	}
}

// resultsColumns is a results summary read back column by column.
type resultsColumns struct {
	names  []string
	values map[string][]float64
}

func (c resultsColumns) rows() int {
	if len(c.names) == 0 {
		return 0
	}
	return len(c.values[c.names[0]])
}

// readResults reads results.json or results.csv from dir. A missing file
// has no rows. Booleans read as 0 or 1 and JSON nulls as NaN.
func readResults(dir, format string) (resultsColumns, error) {
	path := filepath.Join(dir, "results."+format)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return resultsColumns{values: map[string][]float64{}}, nil
	}
	if err != nil {
		return resultsColumns{}, err
	}
	if format == "json" {
		return parseResultsJSON(data)
	}
	return parseResultsCSV(data)
}

func parseResultsJSON(data []byte) (resultsColumns, error) {
	var raw map[string][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return resultsColumns{}, fmt.Errorf("parse results.json: %w", err)
	}
	out := resultsColumns{values: make(map[string][]float64, len(raw))}
	for name, col := range raw {
		out.names = append(out.names, name)
		vals := make([]float64, len(col))
		for i, v := range col {
			switch x := v.(type) {
			case float64:
				vals[i] = x
			case bool:
				vals[i] = boolFloat(x)
			default:
				vals[i] = math.NaN()
			}
		}
		out.values[name] = vals
	}
	slices.Sort(out.names)
	return out, nil
}

func parseResultsCSV(data []byte) (resultsColumns, error) {
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return resultsColumns{}, fmt.Errorf("parse results.csv: %w", err)
	}
	out := resultsColumns{values: map[string][]float64{}}
	if len(records) == 0 {
		return out, nil
	}
	out.names = records[0]
	for _, name := range out.names {
		out.values[name] = []float64{}
	}
	for _, rec := range records[1:] {
		for j, name := range out.names {
			out.values[name] = append(out.values[name], parseCell(rec[j]))
		}
	}
	return out, nil
}

func parseCell(s string) float64 {
	if b, err := strconv.ParseBool(s); err == nil {
		return boolFloat(b)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
