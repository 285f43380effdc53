package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LonxunQuantum/CASMcode/internal/conditions"
	"github.com/LonxunQuantum/CASMcode/internal/driver"
	"github.com/LonxunQuantum/CASMcode/internal/settings"
	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// Condition states reported by status.
const (
	StateComplete = "complete"
	StateStarted  = "started"
	StatePending  = "pending"
)

// ConditionStatus describes one condition of a campaign.
type ConditionStatus struct {
	Index      int                  `json:"index"`
	State      string               `json:"state"`
	Conditions conditions.Canonical `json:"conditions"`
}

// StatusReport is the output of the status command.
type StatusReport struct {
	OutputDir  string            `json:"output_dir"`
	NextIndex  int               `json:"next_index"`
	Conditions []ConditionStatus `json:"conditions"`
}

func (r StatusReport) String() string {
	var b strings.Builder
	done := 0
	for _, c := range r.Conditions {
		if c.State == StateComplete {
			done++
		}
	}
	fmt.Fprintf(&b, "%s: %d/%d conditions complete\n", r.OutputDir, done, len(r.Conditions))
	for _, c := range r.Conditions {
		fmt.Fprintf(&b, "  %4d  %-8s  T=%g comp_n=%v\n", c.Index, c.State, c.Conditions.Temperature, c.Conditions.CompN)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <settings>",
		Short: "Show which conditions of a campaign are complete",
		Long: `Compare the output directory with the conditions list of the settings
document and report which conditions are complete, started or pending.

Fails if the persisted conditions no longer match the settings.

Example:
  casm-monte status ./monte.json
  casm-monte status --format json --output ./run1 ./monte.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(rootOpts, args[0], cmd)
		},
	}

	cmd.Flags().StringP("output", "o", "", "output directory (env CASM_MONTE_OUTPUT)")
	cmd.Flags().String("db", "", "path to SQLite configuration database, needed for configname motifs (env CASM_MONTE_DB)")

	return cmd
}

func showStatus(opts *RootOptions, path string, cmd *cobra.Command) error {
	v, err := opts.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := settings.Load(path)
	if err != nil {
		return formatter.Fail("failed to load settings", err)
	}
	outDir := v.GetString("output")
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	var st *store.Store
	if db := v.GetString("db"); db != "" {
		st, err = store.Open(db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	d, err := driver.NewCanonical(cmd.Context(), s, driver.Setup{
		OutputDir: outDir,
		Store:     st,
		Logger:    newLogger(formatter.GetErrWriter(), opts.Verbose),
	})
	if err != nil {
		return formatter.Fail("failed to read campaign", err)
	}
	if err := d.ValidateConditions(); err != nil {
		return formatter.Fail("conditions changed", err)
	}
	next, err := d.FirstIncomplete()
	if err != nil {
		return formatter.Fail("failed to read results", err)
	}

	report := StatusReport{OutputDir: outDir, NextIndex: next}
	layout := d.Layout()
	for i, c := range d.Conditions() {
		state := StatePending
		switch {
		case i < next:
			state = StateComplete
		case exists(layout.ConditionsFile(i)):
			state = StateStarted
		}
		report.Conditions = append(report.Conditions, ConditionStatus{Index: i, State: state, Conditions: c})
	}
	formatter.VerboseLog("next condition to run: %d", next)
	return formatter.Success(report)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
