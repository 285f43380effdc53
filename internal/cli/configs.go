package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// ConfigSummary is one stored configuration as listed by the configs command.
type ConfigSummary struct {
	Name        string `json:"name"`
	Supercell   string `json:"supercell"`
	Fingerprint string `json:"fingerprint"`
	Primitive   string `json:"primitive,omitempty"`
}

// ConfigList is the output of the configs command.
type ConfigList []ConfigSummary

func (l ConfigList) String() string {
	if len(l) == 0 {
		return "No configurations stored"
	}
	var b strings.Builder
	for _, c := range l {
		fmt.Fprintf(&b, "%s  %s", c.Name, c.Fingerprint[:min(12, len(c.Fingerprint))])
		if c.Primitive != "" && c.Primitive != c.Name {
			fmt.Fprintf(&b, "  (primitive %s)", c.Primitive)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewConfigsCommand creates the configs command.
func NewConfigsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "List configurations saved by enumeration",
		Long: `List the configurations stored in the database, in the order they were
first saved.

Example:
  casm-monte configs --db ./project.db
  CASM_MONTE_DB=./project.db casm-monte configs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listConfigs(rootOpts, cmd)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite configuration database (env CASM_MONTE_DB)")

	return cmd
}

func listConfigs(opts *RootOptions, cmd *cobra.Command) error {
	v, err := opts.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	db := v.GetString("db")
	if db == "" {
		return NewExitError(ExitCommandError, "no database: set --db or CASM_MONTE_DB")
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	recs, err := st.ListConfigurations(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list configurations", err)
	}
	out := make(ConfigList, 0, len(recs))
	for _, r := range recs {
		out = append(out, ConfigSummary{
			Name:        r.Name,
			Supercell:   r.Supercell,
			Fingerprint: r.Fingerprint,
			Primitive:   r.PrimitiveName,
		})
	}
	formatter.VerboseLog("%d configuration(s) in %s", len(out), db)
	return formatter.Success(out)
}
