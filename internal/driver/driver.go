package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/LonxunQuantum/CASMcode/internal/enum"
	"github.com/LonxunQuantum/CASMcode/internal/lattice"
	"github.com/LonxunQuantum/CASMcode/internal/metrics"
	"github.com/LonxunQuantum/CASMcode/internal/monte"
	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// Codec persists and compares conditions of type C.
type Codec[C any] struct {
	Write func(path string, c C) error
	Read  func(path string) (C, error)
	Equal func(a, b C) bool
}

// RunStore records driver invocations.
type RunStore interface {
	BeginRun(ctx context.Context, r store.Run) error
	FinishRun(ctx context.Context, id string, finishIndex int, status string) error
}

// IDGenerator creates run ids.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable run ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string { return store.NewRunID() }

// Config holds the run plan options that are not conditions.
type Config struct {
	OutputDir string

	WriteJSON         bool
	WriteCSV          bool
	WriteObservations bool

	// DependentRuns starts each condition from the final state of the
	// previous one instead of the motif.
	DependentRuns bool

	SampleMode   monte.SampleMode
	SamplePeriod int
	Limits       monte.Limits

	// EquilPassesFirstRun are unsampled passes before the first condition.
	EquilPassesFirstRun int
	// EquilPassesEachRun are unsampled passes before every condition.
	EquilPassesEachRun int

	// Seed is recorded with the run.
	Seed uint64
}

// Driver runs an ensemble over a list of conditions.
type Driver[C any, E any] struct {
	cfg    Config
	ens    monte.Ensemble[C, E]
	list   []C
	codec  Codec[C]
	motif  *lattice.Configuration
	layout Layout

	archive *enum.Archive
	props   enum.Properties
	runs    RunStore
	ids     IDGenerator
	metrics *metrics.Metrics
	log     *slog.Logger

	steps int
}

// Option configures a Driver.
type Option func(*options)

type options struct {
	archive *enum.Archive
	runs    RunStore
	ids     IDGenerator
	metrics *metrics.Metrics
	log     *slog.Logger
}

// WithArchive inserts configurations into a and writes its output in each
// condition directory. The ensemble must implement enum.Properties.
func WithArchive(a *enum.Archive) Option {
	return func(o *options) { o.archive = a }
}

// WithRunStore records each invocation that performs work.
func WithRunStore(rs RunStore) Option {
	return func(o *options) { o.runs = rs }
}

// WithIDGenerator sets the run id generator. The default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithMetrics records progress on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New validates the plan. The motif is the starting configuration of the
// first condition, and of every condition without dependent runs.
func New[C any, E any](cfg Config, ens monte.Ensemble[C, E], list []C, codec Codec[C], motif *lattice.Configuration, opts ...Option) (*Driver[C, E], error) {
	if !cfg.WriteJSON && !cfg.WriteCSV {
		return nil, monte.Errorf(monte.ErrCodeNoOutputFormat,
			"no results output format selected, choose json and/or csv").ForSetting("data/storage/output_format")
	}
	if len(list) == 0 {
		return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "conditions list is empty").ForSetting("driver")
	}
	if ens == nil || motif == nil {
		return nil, fmt.Errorf("driver requires an ensemble and a motif")
	}
	if codec.Write == nil || codec.Read == nil || codec.Equal == nil {
		return nil, fmt.Errorf("driver requires a complete conditions codec")
	}
	if cfg.SamplePeriod < 1 {
		cfg.SamplePeriod = 1
	}

	o := options{ids: UUIDv7Generator{}, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Driver[C, E]{
		cfg:     cfg,
		ens:     ens,
		list:    list,
		codec:   codec,
		motif:   motif.Clone(),
		layout:  Layout{Root: cfg.OutputDir},
		archive: o.archive,
		runs:    o.runs,
		ids:     o.ids,
		metrics: o.metrics,
		log:     o.log,
	}
	if d.archive != nil {
		p, ok := any(ens).(enum.Properties)
		if !ok {
			return nil, fmt.Errorf("enumeration requires an ensemble exposing its properties, %T does not", ens)
		}
		d.props = p
	}
	// Bounds are checked once here so a conflict is reported before any
	// output is written.
	if _, err := monte.NewCounter(max(1, ens.StepsPerPass()), cfg.SampleMode, cfg.SamplePeriod, cfg.Limits); err != nil {
		return nil, err
	}
	return d, nil
}

// Layout returns the output layout.
func (d *Driver[C, E]) Layout() Layout { return d.layout }

// Conditions returns the conditions list.
func (d *Driver[C, E]) Conditions() []C { return d.list }

// Steps returns the number of Monte Carlo steps taken by this driver,
// equilibration included.
func (d *Driver[C, E]) Steps() int { return d.steps }

func (d *Driver[C, E]) resultsFiles() []resultsFile {
	var out []resultsFile
	if d.cfg.WriteJSON {
		out = append(out, jsonResults{path: d.layout.ResultsJSON()})
	}
	if d.cfg.WriteCSV {
		out = append(out, csvResults{path: d.layout.ResultsCSV()})
	}
	return out
}

// ValidateConditions compares every persisted conditions file with the
// requested list. A condition directory past the end of the list, or
// persisted conditions that differ, mean the plan changed after results
// were produced.
func (d *Driver[C, E]) ValidateConditions() error {
	indices, err := d.layout.ConditionIndices()
	if err != nil {
		return err
	}
	for _, i := range indices {
		path := d.layout.ConditionsFile(i)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if i >= len(d.list) {
			return monte.Errorf(monte.ErrCodeConditionsChanged,
				"persisted conditions exist beyond the %d requested", len(d.list)).AtCondition(i).InFile(path)
		}
		got, err := d.codec.Read(path)
		if err != nil {
			return monte.Errorf(monte.ErrCodeMalformedSnapshot, "cannot read persisted conditions").
				AtCondition(i).InFile(path).Wrap(err)
		}
		if !d.codec.Equal(got, d.list[i]) {
			return monte.Errorf(monte.ErrCodeConditionsChanged,
				"persisted conditions %v differ from requested %v", got, d.list[i]).AtCondition(i).InFile(path)
		}
	}
	return nil
}

// FirstIncomplete returns the index of the first condition lacking either a
// final state or a row in every enabled results summary.
func (d *Driver[C, E]) FirstIncomplete() (int, error) {
	start := d.layout.FinalStates(len(d.list))
	for _, f := range d.resultsFiles() {
		n, err := f.Rows()
		if err != nil {
			return 0, err
		}
		start = min(start, n)
	}
	return start, nil
}

// prepare finds the starting condition and drops results rows past it.
func (d *Driver[C, E]) prepare() (int, error) {
	start, err := d.FirstIncomplete()
	if err != nil {
		return 0, err
	}
	for _, f := range d.resultsFiles() {
		n, err := f.Rows()
		if err != nil {
			return 0, err
		}
		if n > start {
			d.log.Warn("results will be recomputed", "path", f.Path(), "rows", n, "keep", start)
			if err := f.Truncate(start); err != nil {
				return 0, err
			}
		}
	}
	return start, nil
}

// Run continues the campaign from the first incomplete condition.
func (d *Driver[C, E]) Run(ctx context.Context) (err error) {
	if err := d.ValidateConditions(); err != nil {
		return err
	}
	start, err := d.prepare()
	if err != nil {
		return err
	}
	if start == len(d.list) {
		d.log.Info("all conditions complete", "conditions", len(d.list), "output", d.cfg.OutputDir)
		return nil
	}
	if start > 0 {
		d.log.Info("resuming", "cond_index", start, "conditions", len(d.list))
	}
	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	runID := d.ids.Generate()
	if d.runs != nil {
		if err := d.runs.BeginRun(ctx, store.Run{
			ID: runID, OutputDir: d.cfg.OutputDir, Seed: d.cfg.Seed, StartIndex: start,
		}); err != nil {
			return err
		}
	}
	last := start - 1
	defer func() {
		if d.runs == nil {
			return
		}
		status := store.RunComplete
		if err != nil {
			status = store.RunFailed
		}
		if ferr := d.runs.FinishRun(context.WithoutCancel(ctx), runID, last, status); ferr != nil && err == nil {
			err = ferr
		}
	}()

	if err := d.begin(ctx, start); err != nil {
		return err
	}
	for i := start; i < len(d.list); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i != start {
			if err := d.ens.SetConditions(d.list[i]); err != nil {
				return asFatal(err).AtCondition(i)
			}
			if !d.cfg.DependentRuns {
				if err := d.ens.SetConfiguration(d.motif); err != nil {
					return asFatal(err).AtCondition(i)
				}
			}
		}
		if err := d.single(ctx, runID, i); err != nil {
			return err
		}
		last = i
	}
	return nil
}

// begin sets up the ensemble for the first condition run in this
// invocation.
func (d *Driver[C, E]) begin(ctx context.Context, start int) error {
	if err := d.ens.SetConditions(d.list[start]); err != nil {
		return asFatal(err).AtCondition(start)
	}
	if start > 0 && d.cfg.DependentRuns {
		path := d.layout.FinalState(start - 1)
		st, err := lattice.ReadState(path)
		if err != nil {
			return monte.Errorf(monte.ErrCodeMalformedSnapshot, "cannot read previous final state").
				AtCondition(start - 1).InFile(path).Wrap(err)
		}
		c, err := st.Configuration(d.motif.Supercell)
		if err != nil {
			return monte.Errorf(monte.ErrCodeMalformedSnapshot, "cannot use previous final state").
				AtCondition(start - 1).InFile(path).Wrap(err)
		}
		if err := d.ens.SetConfiguration(c); err != nil {
			return asFatal(err).AtCondition(start - 1).InFile(path)
		}
		d.log.Info("starting from previous final state", "cond_index", start, "path", path)
		return nil
	}
	if err := d.ens.SetConfiguration(d.motif); err != nil {
		return asFatal(err).AtCondition(start)
	}
	if start == 0 && d.cfg.EquilPassesFirstRun > 0 {
		if err := os.MkdirAll(d.layout.Dir(0), 0o755); err != nil {
			return fmt.Errorf("create condition directory: %w", err)
		}
		if err := d.equilibrate(ctx, d.cfg.EquilPassesFirstRun); err != nil {
			return err
		}
		if err := d.writeState(0, d.layout.InitialStateFirstRunEq(0)); err != nil {
			return err
		}
	}
	return nil
}

// single runs condition i, whose conditions and starting configuration are
// already set on the ensemble.
func (d *Driver[C, E]) single(ctx context.Context, runID string, i int) error {
	began := time.Now()
	d.metrics.BeginCondition(i)
	d.log.Info("starting condition", "cond_index", i, "conditions", d.list[i])

	if err := os.MkdirAll(d.layout.Dir(i), 0o755); err != nil {
		return fmt.Errorf("create condition directory: %w", err)
	}
	if err := d.codec.Write(d.layout.ConditionsFile(i), d.list[i]); err != nil {
		return err
	}
	if d.cfg.EquilPassesEachRun > 0 {
		if err := d.equilibrate(ctx, d.cfg.EquilPassesEachRun); err != nil {
			return err
		}
		if err := d.writeState(i, d.layout.InitialStateRunEq(i)); err != nil {
			return err
		}
	}
	if err := d.writeState(i, d.layout.InitialState(i)); err != nil {
		return err
	}

	counter, err := monte.NewCounter(d.ens.StepsPerPass(), d.cfg.SampleMode, d.cfg.SamplePeriod, d.cfg.Limits)
	if err != nil {
		return asFatal(err).AtCondition(i)
	}
	if d.archive != nil {
		if err := d.archive.Reset(ctx); err != nil {
			return err
		}
		d.metrics.SetArchiveSize(0)
	}

	outcome, err := d.sample(ctx, i, counter)
	if err != nil {
		return err
	}

	if err := d.writeState(i, d.layout.FinalState(i)); err != nil {
		return err
	}
	if d.archive != nil {
		if err := d.archive.Save(ctx, runID, i); err != nil {
			return err
		}
		if err := d.flushArchive(i); err != nil {
			return err
		}
	}
	if d.cfg.WriteObservations {
		if err := writeObservations(d.layout.Observations(i), d.ens.Samples()); err != nil {
			return err
		}
	}
	row := d.ens.Results()
	for _, f := range d.resultsFiles() {
		if err := f.Append(i, row); err != nil {
			return err
		}
		d.log.Info("wrote results", "cond_index", i, "path", f.Path())
	}

	elapsed := time.Since(began)
	d.metrics.EndCondition(outcome, elapsed.Seconds())
	d.log.Info("finished condition", "cond_index", i, "outcome", outcome,
		"passes", counter.Pass(), "samples", counter.Samples(), "run_time", elapsed)
	return nil
}

// sample is the main loop of one condition. It returns "converged",
// "not_converged" or "complete". Cancellation is honoured at pass
// boundaries and sampling instants, leaving the condition unfinished.
func (d *Driver[C, E]) sample(ctx context.Context, i int, counter *monte.Counter) (string, error) {
	for {
		if d.ens.MustConverge() {
			if err := counter.Conflict(); err != nil {
				return "", asFatal(err).AtCondition(i)
			}
			if counter.MinimumsMet() {
				if d.ens.CheckConvergenceTime() && d.ens.IsConverged() {
					return "converged", nil
				}
				if counter.MaximumsMet() {
					err := monte.Errorf(monte.ErrCodeNotConverged,
						"maximum reached at pass %d, step %d, sample %d before convergence",
						counter.Pass(), counter.Step(), counter.Samples()).AtCondition(i)
					d.log.Warn("condition did not converge", "cond_index", i, "err", err)
					return "not_converged", nil
				}
			}
		} else if counter.IsComplete() {
			return "complete", nil
		}

		accepted := monte.Step[E](d.ens)
		d.steps++
		d.metrics.Step(accepted)
		if accepted && d.archive != nil && d.archive.OnAccept() {
			d.insert()
		}
		counter.Advance()

		if !counter.IsSamplingInstant() {
			if counter.Step() == 0 {
				if err := ctx.Err(); err != nil {
					return "", err
				}
			}
			continue
		}
		d.ens.Sample(monte.SampleTime{Pass: counter.Pass(), Step: counter.Step()})
		counter.RecordSample()
		d.metrics.Sample()
		d.log.Debug("sample", "cond_index", i, "pass", counter.Pass(), "step", counter.Step(),
			"samples", counter.Samples())

		if d.archive != nil {
			if d.archive.OnSample() {
				d.insert()
			}
			if counter.Samples()%d.archive.OutputPeriod() == 0 {
				if err := d.flushArchive(i); err != nil {
					return "", err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}

// flushArchive writes the archive file of condition i. An empty file name
// disables the file; configurations are still saved.
func (d *Driver[C, E]) flushArchive(i int) error {
	name := d.archive.OutputFile()
	if name == "" {
		return nil
	}
	return d.archive.WriteOutput(d.layout.EnumFile(i, name))
}

func (d *Driver[C, E]) insert() {
	if d.archive.Insert(d.props) {
		d.metrics.SetArchiveSize(d.archive.Len())
	}
}

func (d *Driver[C, E]) equilibrate(ctx context.Context, passes int) error {
	spp := d.ens.StepsPerPass()
	for range passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		for range spp {
			d.metrics.Step(monte.Step[E](d.ens))
		}
		d.steps += spp
	}
	d.log.Info("equilibrated", "passes", passes, "steps", passes*spp)
	return nil
}

func (d *Driver[C, E]) writeState(i int, path string) error {
	if err := lattice.WriteState(path, d.ens.Configuration().State()); err != nil {
		return monte.Errorf(monte.ErrCodeMalformedSnapshot, "cannot write state").AtCondition(i).InFile(path).Wrap(err)
	}
	d.log.Info("wrote state", "cond_index", i, "path", path)
	return nil
}

// asFatal returns err as a *monte.Error, wrapping foreign errors as
// invalid settings.
func asFatal(err error) *monte.Error {
	var me *monte.Error
	if errors.As(err, &me) {
		return me
	}
	return monte.Errorf(monte.ErrCodeInvalidSettings, "ensemble rejected the run setup").Wrap(err)
}
