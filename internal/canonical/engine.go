package canonical

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/LonxunQuantum/CASMcode/internal/clex"
	"github.com/LonxunQuantum/CASMcode/internal/conditions"
	"github.com/LonxunQuantum/CASMcode/internal/lattice"
	"github.com/LonxunQuantum/CASMcode/internal/monte"
	"github.com/LonxunQuantum/CASMcode/internal/occupation"
)

// Event is a proposed swap and the property changes it would cause.
// DCorr aliases engine scratch space and is only valid until the next
// Propose.
type Event struct {
	SiteA, SiteB int
	// NewA and NewB are the occupants the two sites would hold.
	NewA, NewB int
	DCorr      []float64
	// DEnergy is the formation energy change per primitive cell.
	DEnergy float64
	// A swap keeps species counts, so there is no composition delta.
}

// Engine is the canonical-ensemble event engine. It implements
// monte.Ensemble[conditions.Canonical, *Event].
type Engine struct {
	model *clex.Model
	scel  *lattice.Supercell
	rng   *rand.Rand
	log   *slog.Logger

	cfg  *lattice.Configuration
	loc  *occupation.Locator
	cond conditions.Canonical

	corr   []float64
	energy float64
	compN  []float64

	event   Event
	scratch []float64

	names        []string
	samples      *monte.SampleBuffer
	conv         *monte.Convergence
	mustConverge bool
	maxAttempts  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithConvergence requires the given convergence criteria before a run may
// stop. Without it the run length is fixed by the counter.
func WithConvergence(c *monte.Convergence) Option {
	return func(e *Engine) {
		e.conv = c
		e.mustConverge = true
	}
}

// WithEnforceAttempts bounds the number of composition-changing swaps used
// to bring a configuration to the conditions' composition. The default is
// the number of sites in the supercell.
func WithEnforceAttempts(n int) Option {
	return func(e *Engine) { e.maxAttempts = n }
}

// New creates an engine on a copy of motif at the given conditions. The
// motif's composition is enforced to match cond.
func New(model *clex.Model, motif *lattice.Configuration, cond conditions.Canonical, rng *rand.Rand, opts ...Option) (*Engine, error) {
	if model == nil || motif == nil || rng == nil {
		return nil, fmt.Errorf("canonical engine requires a model, a motif and a random source")
	}
	scel := motif.Supercell
	e := &Engine{
		model:       model,
		scel:        scel,
		rng:         rng,
		log:         slog.Default(),
		cfg:         motif.Clone(),
		conv:        &monte.Convergence{Confidence: 0.95},
		maxAttempts: scel.NumSites(),
		scratch:     make([]float64, model.Evaluator.Len()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.loc = occupation.NewLocator(e.cfg)
	if len(e.loc.CanonicalSwaps()) == 0 {
		return nil, monte.Errorf(monte.ErrCodeNoValidSwaps, "supercell %s has no sublattice with more than one occupant", scel.Name())
	}

	species := scel.Prim().Species
	e.names = []string{"potential_energy", "formation_energy"}
	for _, s := range species {
		e.names = append(e.names, "comp_n("+s+")")
	}
	for i := range e.scratch {
		e.names = append(e.names, fmt.Sprintf("corr(%d)", i))
	}
	e.samples = monte.NewSampleBuffer(e.names...)

	if err := e.SetConditions(cond); err != nil {
		return nil, err
	}
	return e, nil
}

// Conditions returns the current conditions.
func (e *Engine) Conditions() conditions.Canonical { return e.cond }

// SetConditions changes the conditions, enforcing the new composition if it
// differs from the current one, and clears accumulated samples.
func (e *Engine) SetConditions(c conditions.Canonical) error {
	if len(c.CompN) != len(e.scel.Prim().Species) {
		return monte.Errorf(monte.ErrCodeInvalidSettings, "conditions list %d species, prim has %d",
			len(c.CompN), len(e.scel.Prim().Species))
	}
	if c.Temperature < 0 || math.IsNaN(c.Temperature) {
		return monte.Errorf(monte.ErrCodeInvalidSettings, "temperature must be >= 0, got %g", c.Temperature)
	}
	e.cond = c
	if err := e.enforceComposition(); err != nil {
		return err
	}
	if err := e.checkSwaps(); err != nil {
		return err
	}
	e.recompute()
	e.clearSamples()
	e.log.Debug("conditions set", "conditions", c.String())
	return nil
}

// SetConfiguration replaces the configuration, enforces the current
// composition, recomputes every cached property once, and clears samples.
func (e *Engine) SetConfiguration(c *lattice.Configuration) error {
	if c.Supercell.Dims() != e.scel.Dims() {
		return monte.Errorf(monte.ErrCodeMalformedSnapshot, "configuration supercell %v does not match %v",
			c.Supercell.Dims(), e.scel.Dims())
	}
	e.cfg = &lattice.Configuration{Supercell: e.scel, Occ: slices.Clone(c.Occ)}
	e.loc.Reset(e.cfg)
	if err := e.enforceComposition(); err != nil {
		return err
	}
	if err := e.checkSwaps(); err != nil {
		return err
	}
	e.recompute()
	e.clearSamples()
	return nil
}

func (e *Engine) checkSwaps() error {
	if e.loc.ValidPairs() == 0 {
		return monte.Errorf(monte.ErrCodeNoValidSwaps,
			"composition %v leaves no pair of sites with different occupants", e.cond.CompN)
	}
	return nil
}

// Configuration returns a copy of the current configuration.
func (e *Engine) Configuration() *lattice.Configuration { return e.cfg.Clone() }

// Live returns the engine's configuration without copying. Callers must not
// modify it or retain it across steps.
func (e *Engine) Live() *lattice.Configuration { return e.cfg }

// StepsPerPass is the number of mutable sites.
func (e *Engine) StepsPerPass() int { return e.loc.NumMutable() }

// Corr returns the cached correlations per primitive cell.
func (e *Engine) Corr() []float64 { return e.corr }

// CompN returns the cached composition per primitive cell.
func (e *Engine) CompN() []float64 { return e.compN }

// FormationEnergy returns the normalized formation energy.
func (e *Engine) FormationEnergy() float64 {
	return e.model.Normalize(e.energy, e.compN)
}

// PotentialEnergy equals the formation energy in the canonical ensemble.
func (e *Engine) PotentialEnergy() float64 { return e.FormationEnergy() }

// Model returns the cluster-expansion model.
func (e *Engine) Model() *clex.Model { return e.model }

func (e *Engine) recompute() {
	e.corr = e.model.Evaluator.Evaluate(e.cfg)
	e.energy = e.model.ECI.Energy(e.corr)
	e.compN = e.cfg.CompN()
}

func (e *Engine) clearSamples() {
	e.samples.Clear()
	e.conv.Reset()
}

// Propose picks a swap uniformly among the valid site pairs and computes its
// effect from the clusters touching the two sites.
func (e *Engine) Propose() *Event {
	a, b, ok := e.loc.Choose(e.rng)
	if !ok {
		panic("canonical: no valid swap in configuration")
	}
	oldA, oldB := e.cfg.Occ[a], e.cfg.Occ[b]
	clear(e.scratch)
	ev := e.model.Evaluator
	ev.Delta(e.cfg, a, oldB, e.scratch)
	e.cfg.Occ[a] = oldB
	ev.Delta(e.cfg, b, oldA, e.scratch)
	e.cfg.Occ[a] = oldA

	e.event = Event{
		SiteA:   a,
		SiteB:   b,
		NewA:    oldB,
		NewB:    oldA,
		DCorr:   e.scratch,
		DEnergy: e.model.ECI.Energy(e.scratch),
	}
	return &e.event
}

// Check is the Metropolis test on the total energy change.
func (e *Engine) Check(ev *Event) bool {
	dE := ev.DEnergy * float64(e.scel.Volume())
	if math.IsNaN(dE) || math.IsInf(dE, 0) {
		panic(fmt.Sprintf("canonical: non-finite energy change %g for swap %d<->%d", dE, ev.SiteA, ev.SiteB))
	}
	if dE <= 0 {
		return true
	}
	if e.cond.Temperature == 0 {
		return false
	}
	return e.rng.Float64() < math.Exp(-dE*e.cond.Beta())
}

// Accept commits the swap and adds its deltas to the cached properties.
func (e *Engine) Accept(ev *Event) {
	e.cfg.Occ[ev.SiteA] = ev.NewA
	e.loc.Apply(ev.SiteA, ev.NewA)
	e.cfg.Occ[ev.SiteB] = ev.NewB
	e.loc.Apply(ev.SiteB, ev.NewB)
	for i, d := range ev.DCorr {
		e.corr[i] += d
	}
	e.energy += ev.DEnergy
	// compN is unchanged
}

// Reject discards the event.
func (e *Engine) Reject(*Event) {}

// enforceComposition applies composition-changing swaps, each the one that
// most reduces the distance to the target species counts, until no swap
// helps. It fails if the target is still out of reach.
func (e *Engine) enforceComposition() error {
	vol := float64(e.scel.Volume())
	target := make([]float64, len(e.cond.CompN))
	for i, x := range e.cond.CompN {
		target[i] = x * vol
	}
	counts := make([]float64, len(target))
	for l := range e.cfg.Occ {
		counts[e.cfg.Species(l)]++
	}
	dist := func() float64 {
		var d float64
		for i := range counts {
			d += math.Abs(counts[i] - target[i])
		}
		return d
	}

	cands := e.loc.Candidates()
	applied := 0
	for {
		cur := dist()
		best, bestDist := -1, cur
		for i, gs := range e.loc.GrandCanonicalSwaps() {
			if e.loc.Count(gs.From) == 0 {
				continue
			}
			from, to := cands[gs.From].Species, cands[gs.To].Species
			counts[from]--
			counts[to]++
			if d := dist(); d < bestDist-1e-9 {
				best, bestDist = i, d
			}
			counts[from]++
			counts[to]--
		}
		if best < 0 {
			break
		}
		if applied == e.maxAttempts {
			return monte.Errorf(monte.ErrCodeCompositionUnreachable,
				"composition %v not reached after %d swaps", e.cond.CompN, applied)
		}
		gs := e.loc.GrandCanonicalSwaps()[best]
		l := e.loc.ChooseSite(gs.From, e.rng)
		occ := e.loc.OccFor(gs.To)
		e.cfg.Occ[l] = occ
		e.loc.Apply(l, occ)
		counts[cands[gs.From].Species]--
		counts[cands[gs.To].Species]++
		applied++
	}

	for i := range counts {
		if math.Abs(counts[i]-target[i]) > 0.5+e.cond.Tolerance*vol {
			return monte.Errorf(monte.ErrCodeCompositionUnreachable,
				"cannot reach comp_n(%s)=%g in supercell %s: closest is %g",
				e.scel.Prim().Species[i], e.cond.CompN[i], e.scel.Name(), counts[i]/vol)
		}
	}
	if applied > 0 {
		e.log.Info("composition enforced", "swaps", applied, "comp_n", e.cond.CompN)
	}
	return nil
}
