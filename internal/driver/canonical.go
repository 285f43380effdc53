package driver

import (
	"context"
	"log/slog"

	"github.com/LonxunQuantum/CASMcode/internal/canonical"
	"github.com/LonxunQuantum/CASMcode/internal/conditions"
	"github.com/LonxunQuantum/CASMcode/internal/enum"
	"github.com/LonxunQuantum/CASMcode/internal/metrics"
	"github.com/LonxunQuantum/CASMcode/internal/monte"
	"github.com/LonxunQuantum/CASMcode/internal/settings"
	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// CanonicalCodec persists canonical conditions as conditions.json.
var CanonicalCodec = Codec[conditions.Canonical]{
	Write: conditions.Write,
	Read:  conditions.Read,
	Equal: conditions.Canonical.Equal,
}

// Canonical is the driver for the canonical ensemble.
type Canonical = Driver[conditions.Canonical, *canonical.Event]

// Setup carries what NewCanonical needs besides the settings document.
type Setup struct {
	OutputDir string
	Seed      uint64
	// Store is optional unless the settings use a configname motif or
	// enumeration saves or checks configurations.
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	IDs     IDGenerator
}

// NewCanonical assembles the model, conditions list, engine, archive and
// driver described by s.
func NewCanonical(ctx context.Context, s *settings.Settings, setup Setup) (*Canonical, error) {
	log := setup.Logger
	if log == nil {
		log = slog.Default()
	}
	prim, err := s.Prim()
	if err != nil {
		return nil, err
	}
	scel, err := s.Supercell(prim)
	if err != nil {
		return nil, err
	}
	model, err := s.ClexModel(prim)
	if err != nil {
		return nil, err
	}
	plan, err := s.ConditionsPlan(prim)
	if err != nil {
		return nil, err
	}
	list, err := plan.Build()
	if err != nil {
		return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "cannot build conditions list").
			ForSetting("driver").Wrap(err)
	}
	log.Info("conditions list built", "mode", plan.Mode, "conditions", len(list))

	var src canonical.ConfigSource
	var cfgStore enum.ConfigStore
	if setup.Store != nil {
		src, cfgStore = setup.Store, setup.Store
	}
	motif, err := s.Motif().Build(ctx, scel, src)
	if err != nil {
		return nil, err
	}

	engineOpts := []canonical.Option{canonical.WithLogger(log)}
	if conv := s.Convergence(); conv != nil {
		engineOpts = append(engineOpts, canonical.WithConvergence(conv))
	}
	eng, err := canonical.New(model, motif, list[0], monte.NewRand(setup.Seed), engineOpts...)
	if err != nil {
		return nil, asFatal(err).AtCondition(0)
	}
	for _, q := range s.Quantities() {
		if _, ok := eng.Observation(q); !ok {
			return nil, monte.Errorf(monte.ErrCodeInvalidSettings,
				"unknown measurement quantity %q (have %v)", q, eng.ObservationNames()).ForSetting("data/measurements")
		}
	}

	opts := []Option{WithLogger(log), WithMetrics(setup.Metrics)}
	if setup.Store != nil {
		opts = append(opts, WithRunStore(setup.Store))
	}
	if setup.IDs != nil {
		opts = append(opts, WithIDGenerator(setup.IDs))
	}
	if eo := s.EnumOptions(); eo != nil {
		a, err := enum.New(*eo, eng.ObservationNames(), cfgStore, log)
		if err != nil {
			return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "enumeration").ForSetting("enumeration").Wrap(err)
		}
		opts = append(opts, WithArchive(a))
	}

	first, each := s.EquilibrationPasses()
	cfg := Config{
		OutputDir:           setup.OutputDir,
		WriteJSON:           s.WriteJSON(),
		WriteCSV:            s.WriteCSV(),
		WriteObservations:   s.Data.Storage.WriteObservations,
		DependentRuns:       s.Driver.DependentRuns,
		SampleMode:          s.SampleMode(),
		SamplePeriod:        s.Data.SamplePeriod,
		Limits:              s.Limits(),
		EquilPassesFirstRun: first,
		EquilPassesEachRun:  each,
		Seed:                setup.Seed,
	}
	return New[conditions.Canonical, *canonical.Event](cfg, eng, list, CanonicalCodec, motif, opts...)
}
