package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override flags, e.g.
// CASM_MONTE_DB for --db and CASM_MONTE_METRICS_ADDR for --metrics-addr.
const EnvPrefix = "CASM_MONTE"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config resolves flag values, falling back to environment variables.
	Config *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the casm-monte CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: newConfig()}

	cmd := &cobra.Command{
		Use:   "casm-monte",
		Short: "casm-monte - canonical Monte Carlo driver",
		Long: `Run resumable canonical Monte Carlo sweeps of a cluster-expansion model.

Each settings document describes a list of conditions. Results are written
per condition under the output directory, and an interrupted campaign
continues from the first unfinished condition when run again.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.resolve(cmd); err != nil {
				return err
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (env CASM_MONTE_VERBOSE)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewConfigsCommand(opts))

	return cmd
}

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// resolve binds cmd's flags so that unset flags fall back to their
// environment variables, and refreshes Verbose.
func (o *RootOptions) resolve(cmd *cobra.Command) (*viper.Viper, error) {
	if o.Config == nil {
		o.Config = newConfig()
	}
	if err := o.Config.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if o.Config.GetBool("verbose") {
		o.Verbose = true
	}
	return o.Config, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger returns a text logger on w at Debug level when debug is set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
