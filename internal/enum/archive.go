package enum

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/LonxunQuantum/CASMcode/internal/ident"
	"github.com/LonxunQuantum/CASMcode/internal/lattice"
	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// SampleMode selects when insertion is attempted.
type SampleMode string

const (
	OnSample SampleMode = "on_sample"
	OnAccept SampleMode = "on_accept"
)

// Options configure an Archive.
type Options struct {
	Capacity        int
	Check           string
	Metric          string
	SampleMode      SampleMode
	InsertCanonical bool
	CheckExistence  bool
	SaveConfigs     bool
	DryRun          bool
	OutputPeriod    int
	OutputFile      string
}

// ConfigStore is the part of the permanent store the archive uses.
type ConfigStore interface {
	Fingerprints(ctx context.Context) ([]string, error)
	SaveConfiguration(ctx context.Context, c *lattice.Configuration) (store.ConfigRecord, bool, error)
	SetPrimitive(ctx context.Context, configID, primitiveID int64) error
	AddSource(ctx context.Context, configID int64, runID string, condIndex int, score float64) error
}

// Entry is one archived configuration. Config is an independent snapshot.
type Entry struct {
	Score           float64
	Fingerprint     string
	Config          *lattice.Configuration
	FormationEnergy float64
	PotentialEnergy float64
	CompN           []float64
	IsPrimitive     bool

	Saved bool
	Name  string
	IsNew bool
}

// Archive is the bounded best-of set.
type Archive struct {
	opts   Options
	check  CheckFunc
	metric Metric
	store  ConfigStore
	log    *slog.Logger

	// entries are kept sorted by ascending score; the worst is last.
	entries  []*Entry
	byFP     map[string]*Entry
	excluded map[string]struct{}
}

// New validates opts against the ensemble's observation names.
func New(opts Options, observations []string, st ConfigStore, log *slog.Logger) (*Archive, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.Capacity < 1 {
		return nil, fmt.Errorf("enumeration N_config must be >= 1, got %d", opts.Capacity)
	}
	if opts.Check == "" {
		opts.Check = "always"
	}
	check, ok := checks[opts.Check]
	if !ok {
		return nil, fmt.Errorf("unknown enumeration check %q (have %v)", opts.Check, CheckNames())
	}
	if opts.Metric == "" {
		opts.Metric = "formation_energy"
	}
	metric, err := ParseMetric(opts.Metric, observations)
	if err != nil {
		return nil, err
	}
	switch opts.SampleMode {
	case "":
		opts.SampleMode = OnSample
	case OnSample, OnAccept:
	default:
		return nil, fmt.Errorf("unknown enumeration sample_mode %q", opts.SampleMode)
	}
	if opts.OutputPeriod < 1 {
		opts.OutputPeriod = 1
	}
	if (opts.CheckExistence || opts.SaveConfigs) && st == nil {
		return nil, fmt.Errorf("enumeration check_existence and save_configs require a configuration store")
	}
	return &Archive{
		opts:     opts,
		check:    check,
		metric:   metric,
		store:    st,
		log:      log,
		byFP:     map[string]*Entry{},
		excluded: map[string]struct{}{},
	}, nil
}

// OnSample reports whether insertion happens at sampling instants.
func (a *Archive) OnSample() bool { return a.opts.SampleMode == OnSample }

// OnAccept reports whether insertion happens after accepted steps.
func (a *Archive) OnAccept() bool { return a.opts.SampleMode == OnAccept }

// OutputPeriod is the number of samples between writes of the output file,
// whichever the insertion mode.
func (a *Archive) OutputPeriod() int { return a.opts.OutputPeriod }

// OutputFile is the per-condition archive file name, or "".
func (a *Archive) OutputFile() string { return a.opts.OutputFile }

// Len returns the number of archived entries.
func (a *Archive) Len() int { return len(a.entries) }

// Entries returns the archived entries, best first.
func (a *Archive) Entries() []*Entry { return a.entries }

// Reset empties the archive for a new condition. With check_existence the
// exclusion set is reloaded from the store.
func (a *Archive) Reset(ctx context.Context) error {
	a.entries = nil
	clear(a.byFP)
	clear(a.excluded)
	if !a.opts.CheckExistence {
		return nil
	}
	fps, err := a.store.Fingerprints(ctx)
	if err != nil {
		return fmt.Errorf("reset archive: %w", err)
	}
	for _, fp := range fps {
		a.excluded[fp] = struct{}{}
	}
	a.log.Debug("archive reset", "excluded", len(fps))
	return nil
}

// Insert considers the ensemble's current configuration and reports
// whether it entered the archive.
func (a *Archive) Insert(p Properties) bool {
	live := p.Live()
	canon := lattice.Canonical(live)
	fp := ident.MustConfigurationFingerprint(canon.Supercell.Dims(), canon.Occ)

	if !a.check(a, live, fp) {
		return false
	}
	if _, ok := a.excluded[fp]; ok {
		a.log.Debug("archive skip: in store", "fingerprint", fp[:12])
		return false
	}
	if _, ok := a.byFP[fp]; ok {
		return false
	}

	score := a.metric.Score(p)
	if len(a.entries) == a.opts.Capacity {
		worst := a.entries[len(a.entries)-1]
		if score >= worst.Score {
			return false
		}
		a.entries = a.entries[:len(a.entries)-1]
		delete(a.byFP, worst.Fingerprint)
		a.log.Debug("archive evict", "score", worst.Score)
	}

	cfg := canon
	if !a.opts.InsertCanonical {
		cfg = live.Clone()
	}
	fe, _ := p.Observation("formation_energy")
	pe, _ := p.Observation("potential_energy")
	e := &Entry{
		Score:           score,
		Fingerprint:     fp,
		Config:          cfg,
		FormationEnergy: fe,
		PotentialEnergy: pe,
		CompN:           slices.Clone(p.CompN()),
		IsPrimitive:     lattice.IsPrimitive(canon),
	}
	i, _ := slices.BinarySearchFunc(a.entries, score, func(e *Entry, s float64) int {
		switch {
		case e.Score < s:
			return -1
		case e.Score > s:
			return 1
		}
		return 0
	})
	a.entries = slices.Insert(a.entries, i, e)
	a.byFP[fp] = e
	a.log.Debug("archive insert", "score", score, "size", len(a.entries))
	return true
}

// Save writes every unsaved entry to the store in canonical form, along
// with the canonical primitive reduction of non-primitive entries, and
// records the run and condition as the source. Saved entries are never
// written again. A dry run only logs what would be saved.
func (a *Archive) Save(ctx context.Context, runID string, condIndex int) error {
	if !a.opts.SaveConfigs {
		return nil
	}
	for _, e := range a.entries {
		if e.Saved {
			continue
		}
		canon := lattice.Canonical(e.Config)
		if a.opts.DryRun {
			a.log.Info("dry run: would save configuration",
				"supercell", canon.Supercell.Name(), "score", e.Score, "is_primitive", e.IsPrimitive)
			continue
		}
		rec, inserted, err := a.store.SaveConfiguration(ctx, canon)
		if err != nil {
			return fmt.Errorf("save archive entry: %w", err)
		}
		if !e.IsPrimitive {
			prim, err := lattice.Primitive(canon)
			if err != nil {
				return fmt.Errorf("save archive entry: primitive: %w", err)
			}
			primRec, _, err := a.store.SaveConfiguration(ctx, lattice.Canonical(prim))
			if err != nil {
				return fmt.Errorf("save archive entry: primitive: %w", err)
			}
			if err := a.store.SetPrimitive(ctx, rec.ID, primRec.ID); err != nil {
				return err
			}
		}
		if runID != "" {
			if err := a.store.AddSource(ctx, rec.ID, runID, condIndex, e.Score); err != nil {
				return err
			}
		}
		e.Saved, e.Name, e.IsNew = true, rec.Name, inserted
		a.log.Info("saved configuration", "name", rec.Name, "is_new", inserted, "score", e.Score)
	}
	return nil
}
