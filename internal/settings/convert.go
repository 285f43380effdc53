package settings

import (
	"fmt"
	"sort"

	"github.com/LonxunQuantum/CASMcode/internal/canonical"
	"github.com/LonxunQuantum/CASMcode/internal/clex"
	"github.com/LonxunQuantum/CASMcode/internal/conditions"
	"github.com/LonxunQuantum/CASMcode/internal/enum"
	"github.com/LonxunQuantum/CASMcode/internal/lattice"
	"github.com/LonxunQuantum/CASMcode/internal/monte"
)

// Prim builds the primitive structure from model.sublattices.
func (s *Settings) Prim() (*lattice.Prim, error) {
	p, err := lattice.NewPrim(s.Model.Sublattices)
	if err != nil {
		return nil, &Error{Field: "model.sublattices", Message: err.Error()}
	}
	return p, nil
}

// Supercell builds the diagonal supercell.
func (s *Settings) Supercell(prim *lattice.Prim) (*lattice.Supercell, error) {
	dims := [3]int{s.Supercell[0][0], s.Supercell[1][1], s.Supercell[2][2]}
	scel, err := lattice.NewSupercell(prim, dims)
	if err != nil {
		return nil, &Error{Field: "supercell", Message: err.Error()}
	}
	return scel, nil
}

// ClexModel builds the cluster expansion and checks the ECI length against
// the evaluator.
func (s *Settings) ClexModel(prim *lattice.Prim) (*clex.Model, error) {
	nn, err := clex.NewNearestNeighbor(prim, s.Model.Evaluator.Axes)
	if err != nil {
		return nil, &Error{Field: "model.evaluator", Message: err.Error()}
	}
	m, err := clex.NewModel(nn, clex.ECI(s.Model.ECI), clex.Normalization(s.Model.Normalization), prim.Species)
	if err != nil {
		return nil, &Error{Field: "model.eci", Message: err.Error()}
	}
	return m, nil
}

// ConditionsPlan converts the driver section into a plan over the prim's
// species. Species absent from a comp_n map are 0.
func (s *Settings) ConditionsPlan(prim *lattice.Prim) (conditions.Plan, error) {
	plan := conditions.Plan{Mode: conditions.Mode(s.Driver.Mode)}
	conv := func(field string, c *Conditions) (conditions.Canonical, error) {
		if c == nil {
			return conditions.Canonical{}, nil
		}
		compN := make([]float64, len(prim.Species))
		for name, v := range c.CompN {
			i, ok := prim.SpeciesIndex(name)
			if !ok {
				return conditions.Canonical{}, &Error{
					Field:   field + ".comp_n",
					Message: fmt.Sprintf("unknown species %q (have %v)", name, prim.Species),
				}
			}
			compN[i] = v
		}
		out := conditions.New(c.Temperature, compN)
		out.Tolerance = c.Tolerance
		return out, nil
	}

	var err error
	if plan.Initial, err = conv("driver.initial_conditions", s.Driver.Initial); err != nil {
		return plan, err
	}
	if plan.Final, err = conv("driver.final_conditions", s.Driver.Final); err != nil {
		return plan, err
	}
	if plan.Incr, err = conv("driver.incremental_conditions", s.Driver.Incremental); err != nil {
		return plan, err
	}
	for i := range s.Driver.Custom {
		c, err := conv(fmt.Sprintf("driver.custom_conditions[%d]", i), &s.Driver.Custom[i])
		if err != nil {
			return plan, err
		}
		plan.List = append(plan.List, c)
	}
	return plan, nil
}

// Limits returns the counter bounds. In fixed-length runs N_pass, N_step
// and N_sample become maximums.
func (s *Settings) Limits() monte.Limits {
	d := s.Data
	if !s.MustConverge() {
		return monte.Limits{MaxPass: d.NPass, MaxStep: d.NStep, MaxSample: d.NSample}
	}
	return monte.Limits{
		MinPass: d.MinPass, MaxPass: d.MaxPass,
		MinStep: d.MinStep, MaxStep: d.MaxStep,
		MinSample: d.MinSample, MaxSample: d.MaxSample,
	}
}

// SampleMode returns how the sample period is counted.
func (s *Settings) SampleMode() monte.SampleMode {
	return monte.SampleMode(s.Data.SampleBy)
}

// Convergence returns the convergence checker, or nil for fixed-length runs.
func (s *Settings) Convergence() *monte.Convergence {
	if !s.MustConverge() {
		return nil
	}
	prec := make(map[string]float64)
	for _, m := range s.Data.Measurements {
		if m.Precision != nil {
			prec[m.Quantity] = *m.Precision
		}
	}
	return &monte.Convergence{
		Confidence:  s.Data.Confidence,
		Precision:   prec,
		MinSamples:  s.Data.MinSample,
		CheckPeriod: s.Data.CheckPeriod,
	}
}

// Quantities returns the measured quantity names, sorted, without duplicates.
func (s *Settings) Quantities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range s.Data.Measurements {
		if !seen[m.Quantity] {
			seen[m.Quantity] = true
			out = append(out, m.Quantity)
		}
	}
	sort.Strings(out)
	return out
}

// Motif returns the initial configuration selector.
func (s *Settings) Motif() canonical.Motif {
	m := s.Driver.Motif
	return canonical.Motif{
		Kind:       canonical.MotifKind(m.Kind),
		Occupation: m.Occupation,
		Path:       m.ConfigDoF,
		Name:       m.ConfigName,
	}
}

// EnumOptions returns the archive options, or nil when enumeration is off.
func (s *Settings) EnumOptions() *enum.Options {
	e := s.Enumeration
	if e == nil {
		return nil
	}
	return &enum.Options{
		Capacity:        e.NConfig,
		Check:           e.Check,
		Metric:          e.Metric,
		SampleMode:      enum.SampleMode(e.SampleMode),
		InsertCanonical: e.InsertCanonical,
		CheckExistence:  e.CheckExistence,
		SaveConfigs:     e.SaveConfigs,
		DryRun:          e.DryRun,
		OutputPeriod:    e.OutputPeriod,
		OutputFile:      e.OutputFile,
	}
}

// EquilibrationPasses returns the first-run and each-run equilibration
// pass counts; 0 means none.
func (s *Settings) EquilibrationPasses() (firstRun, eachRun int) {
	if p := s.Data.EquilPassesFirstRun; p != nil {
		firstRun = *p
	}
	if p := s.Data.EquilPassesEachRun; p != nil {
		eachRun = *p
	}
	return firstRun, eachRun
}
