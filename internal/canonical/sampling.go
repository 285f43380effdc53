package canonical

import (
	"math"
	"strconv"
	"strings"

	"github.com/LonxunQuantum/CASMcode/internal/conditions"
	"github.com/LonxunQuantum/CASMcode/internal/monte"
)

// ObservationNames lists the sampled properties in sample order.
func (e *Engine) ObservationNames() []string { return e.names }

// Observation returns the current value of a named property:
// potential_energy, formation_energy, comp_n(X) or corr(i).
func (e *Engine) Observation(name string) (float64, bool) {
	switch name {
	case "potential_energy":
		return e.PotentialEnergy(), true
	case "formation_energy":
		return e.FormationEnergy(), true
	}
	if arg, ok := strings.CutPrefix(name, "comp_n("); ok {
		species, ok := strings.CutSuffix(arg, ")")
		if !ok {
			return 0, false
		}
		idx, found := e.scel.Prim().SpeciesIndex(species)
		if !found {
			return 0, false
		}
		return e.compN[idx], true
	}
	if arg, ok := strings.CutPrefix(name, "corr("); ok {
		s, ok := strings.CutSuffix(arg, ")")
		if !ok {
			return 0, false
		}
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 || i >= len(e.corr) {
			return 0, false
		}
		return e.corr[i], true
	}
	return 0, false
}

// Sample records every observation at time t.
func (e *Engine) Sample(t monte.SampleTime) {
	values := make([]float64, 0, len(e.names))
	pe := e.PotentialEnergy()
	values = append(values, pe, pe)
	values = append(values, e.compN...)
	values = append(values, e.corr...)
	e.samples.Record(t, values)
}

// Samples returns the sample buffer.
func (e *Engine) Samples() *monte.SampleBuffer { return e.samples }

// MustConverge reports whether the run stops on convergence rather than on
// a fixed length.
func (e *Engine) MustConverge() bool { return e.mustConverge }

// CheckConvergenceTime reports whether a convergence check is due.
func (e *Engine) CheckConvergenceTime() bool { return e.conv.Due(e.samples.Len()) }

// IsConverged checks the convergence criteria against the sample buffer.
func (e *Engine) IsConverged() bool { return e.conv.IsConverged(e.samples) }

// Results returns the results-summary row for the current conditions.
func (e *Engine) Results() monte.Row {
	row := monte.Row{{Name: "T", Value: e.cond.Temperature}}
	for i, s := range e.scel.Prim().Species {
		row = append(row, monte.Field{Name: "comp_n(" + s + ")", Value: e.cond.CompN[i]})
	}
	row = append(row, monte.Field{Name: "N_samples", Value: e.samples.Len()})

	stats := e.conv.Summarize(e.samples)
	converged := e.mustConverge && e.conv.IsConverged(e.samples)
	row = append(row, monte.StatsRow(e.names, stats, e.conv.Precision, converged)...)
	row = append(row, monte.Field{Name: "heat_capacity", Value: e.heatCapacity(stats["potential_energy"])})
	return row
}

// heatCapacity is N * var(E) / (kB T^2) with E per primitive cell and N the
// number of primitive cells, giving a heat capacity per primitive cell.
func (e *Engine) heatCapacity(st monte.Stats) float64 {
	t := e.cond.Temperature
	if t == 0 || st.AvgSamples < 2 {
		return 0
	}
	c := float64(e.scel.Volume()) * st.Variance / (conditions.KB * t * t)
	if math.IsNaN(c) {
		return 0
	}
	return c
}
