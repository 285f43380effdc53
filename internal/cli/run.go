package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/LonxunQuantum/CASMcode/internal/driver"
	"github.com/LonxunQuantum/CASMcode/internal/metrics"
	"github.com/LonxunQuantum/CASMcode/internal/settings"
	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// IDs allows overriding the run id generator (for testing).
	// If nil, defaults to driver.UUIDv7Generator.
	IDs driver.IDGenerator
}

// RunSummary is printed after a run finishes.
type RunSummary struct {
	Settings   string `json:"settings"`
	OutputDir  string `json:"output_dir"`
	Conditions int    `json:"conditions"`
	Seed       uint64 `json:"seed"`
	Steps      int    `json:"steps"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("Completed %d condition(s) in %s (seed %d, %d steps this run)",
		s.Conditions, s.OutputDir, s.Seed, s.Steps)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <settings>",
		Short: "Run or resume a Monte Carlo campaign",
		Long: `Run every condition of the settings document, resuming after the last
condition that has a final state on disk.

Settings may be JSON, YAML or CUE. Results are written under --output,
which defaults to the directory holding the settings file.

Example:
  casm-monte run ./monte.json
  casm-monte run --db ./project.db --seed 42 ./monte.yaml
  CASM_MONTE_METRICS_ADDR=:9090 casm-monte run ./monte.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(opts, args[0], cmd)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite configuration database (env CASM_MONTE_DB)")
	cmd.Flags().StringP("output", "o", "", "output directory (env CASM_MONTE_OUTPUT)")
	cmd.Flags().Uint64("seed", 0, "random seed, overrides driver.seed (env CASM_MONTE_SEED)")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running (env CASM_MONTE_METRICS_ADDR)")

	return cmd
}

func runCampaign(opts *RunOptions, path string, cmd *cobra.Command) error {
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
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose || s.Debug)

	outDir := v.GetString("output")
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	seed := resolveSeed(v.IsSet("seed"), v.GetUint64("seed"), s.Driver.Seed)
	log.Info("settings loaded", "path", path, "output", outDir, "seed", seed)

	var st *store.Store
	if db := v.GetString("db"); db != "" {
		log.Info("opening database", "path", db)
		st, err = store.Open(db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if addr := v.GetString("metrics-addr"); addr != "" {
		stop, err := serveMetrics(addr, reg, log)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer stop()
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, stopping at the next pass or sample", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	d, err := driver.NewCanonical(ctx, s, driver.Setup{
		OutputDir: outDir,
		Seed:      seed,
		Store:     st,
		Metrics:   m,
		Logger:    log,
		IDs:       opts.IDs,
	})
	if err != nil {
		return formatter.Fail("failed to set up run", err)
	}

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("run interrupted; run again to resume")
			return nil
		}
		return formatter.Fail("run failed", err)
	}

	return formatter.Success(RunSummary{
		Settings:   path,
		OutputDir:  outDir,
		Conditions: len(d.Conditions()),
		Seed:       seed,
		Steps:      d.Steps(),
	})
}

// resolveSeed prefers an explicit flag, then the settings document, then a
// random seed.
func resolveSeed(flagSet bool, flagSeed uint64, fromSettings *uint64) uint64 {
	switch {
	case flagSet:
		return flagSeed
	case fromSettings != nil:
		return *fromSettings
	default:
		return rand.Uint64()
	}
}

// serveMetrics starts a metrics endpoint on addr and returns a function that
// shuts it down.
func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
