package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/LonxunQuantum/CASMcode/internal/driver"
	"github.com/LonxunQuantum/CASMcode/internal/monte"
	"github.com/LonxunQuantum/CASMcode/internal/settings"
	"github.com/LonxunQuantum/CASMcode/internal/store"
	"github.com/LonxunQuantum/CASMcode/internal/testutil"
)

// Harness executes the steps of one scenario against one output directory.
type Harness struct {
	store  *store.Store
	ids    *testutil.FixedRunIDGenerator
	logger *slog.Logger
	out    string
	seed   uint64
	doc    map[string]any
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory with its own database,
// removed before Run returns. Run ids come from a fixed generator, so two
// executions of a scenario produce the same trace.
//
// An error is returned only when the scenario could not be executed at
// all; failed expectations and assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	work, err := os.MkdirTemp("", "casm-monte-scenario-")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(work)

	st, err := store.Open(filepath.Join(work, "project.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		ids:    testutil.NewFixedRunIDGenerator(""),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		out:    filepath.Join(work, "out"),
		seed:   scenario.Seed,
		doc:    cloneDoc(scenario.Settings),
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	tree, err := testutil.ReadTree(h.out)
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}
	result.Tree = tree.Paths()
	if cols, err := readResults(h.out, "csv"); err == nil {
		result.ResultsHeader = cols.names
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, OutputDir: h.out}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) execute(ctx context.Context, index int, step Step, result *Result) error {
	switch {
	case step.Run != nil:
		return h.run(ctx, index, step.Run, result)
	case step.Remove != "":
		if err := os.Remove(filepath.Join(h.out, step.Remove)); err != nil {
			return err
		}
		result.AddEvent(TraceEvent{Type: EventRemove, Path: step.Remove, StartIndex: -1, Condition: -1})
	case step.Write != nil:
		path := filepath.Join(h.out, step.Write.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(step.Write.Content), 0o644); err != nil {
			return err
		}
		result.AddEvent(TraceEvent{Type: EventWrite, Path: step.Write.Path, StartIndex: -1, Condition: -1})
	case step.Patch != nil:
		mergeDoc(h.doc, step.Patch)
		keys := slices.Sorted(maps.Keys(step.Patch))
		result.AddEvent(TraceEvent{Type: EventPatch, Keys: keys, StartIndex: -1, Condition: -1})
	}
	return nil
}

// run builds a driver from the current settings and runs it. Run errors
// carrying a code become the event outcome; other errors abort the
// scenario.
func (h *Harness) run(ctx context.Context, index int, rs *RunStep, result *Result) error {
	event := TraceEvent{Type: EventRun, StartIndex: -1, Condition: -1}

	runErr := func() error {
		s, err := h.settings()
		if err != nil {
			return err
		}
		d, err := driver.NewCanonical(ctx, s, driver.Setup{
			OutputDir: h.out,
			Seed:      h.seed,
			Store:     h.store,
			Logger:    h.logger,
			IDs:       h.ids,
		})
		if err != nil {
			return err
		}
		defer func() { event.Steps = d.Steps() }()
		if err := d.ValidateConditions(); err != nil {
			return err
		}
		start, err := d.FirstIncomplete()
		if err != nil {
			return err
		}
		if err := d.Run(ctx); err != nil {
			return err
		}
		event.StartIndex = start
		return nil
	}()

	var me *monte.Error
	var se *settings.Error
	switch {
	case runErr == nil:
		event.Outcome = OutcomeOK
	case errors.As(runErr, &me):
		event.Outcome = string(me.Code)
		event.Condition = me.CondIndex
	case errors.As(runErr, &se):
		event.Outcome = OutcomeSettings
	default:
		return runErr
	}
	result.AddEvent(event)

	if event.Outcome != expectedOutcome(rs) {
		result.AddError(fmt.Sprintf("steps[%d]: run outcome %s, want %s (error: %v)",
			index, event.Outcome, expectedOutcome(rs), runErr))
	}
	if rs.Condition != nil && *rs.Condition != event.Condition {
		result.AddError(fmt.Sprintf("steps[%d]: error at condition %d, want %d", index, event.Condition, *rs.Condition))
	}
	return nil
}

func expectedOutcome(rs *RunStep) string {
	if rs.Expect == "" {
		return OutcomeOK
	}
	return rs.Expect
}

// settings parses the current document the way a YAML settings file is
// parsed.
func (h *Harness) settings() (*settings.Settings, error) {
	data, err := yaml.Marshal(h.doc)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return settings.Parse(data, "yaml")
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if m, ok := v.(map[string]any); ok {
			v = cloneDoc(m)
		}
		out[k] = v
	}
	return out
}

// mergeDoc merges patch into doc: nested mappings merge, any other value
// replaces.
func mergeDoc(doc, patch map[string]any) {
	for k, v := range patch {
		pm, ok := v.(map[string]any)
		if dm, isMap := doc[k].(map[string]any); ok && isMap {
			mergeDoc(dm, pm)
			continue
		}
		if ok {
			v = cloneDoc(pm)
		}
		doc[k] = v
	}
}
