// Package clex defines the cluster-expansion collaborators consumed by the
// Monte Carlo engine: a correlation evaluator and the effective cluster
// interaction (ECI) coefficient vector.
package clex

import (
	"fmt"
	"math"
	"strings"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

// Evaluator computes cluster-expansion correlations.
//
// Evaluate returns the full correlation vector normalized per primitive cell.
// Delta adds to dst the per-primitive-cell change in correlations caused by
// setting site to newOcc, evaluating only clusters that contain site; the
// configuration itself is not modified.
type Evaluator interface {
	Len() int
	Evaluate(c *lattice.Configuration) []float64
	Delta(c *lattice.Configuration, site, newOcc int, dst []float64)
}

// ECI is the effective cluster interaction vector. Energy per primitive
// cell is the dot product with the correlation vector.
type ECI []float64

// Energy returns eci · corr.
func (e ECI) Energy(corr []float64) float64 {
	var sum float64
	for i, v := range e {
		sum += v * corr[i]
	}
	return sum
}

// Validate checks the ECI against an evaluator's correlation count.
func (e ECI) Validate(n int) error {
	if len(e) != n {
		return fmt.Errorf("eci has %d coefficients, evaluator produces %d correlations", len(e), n)
	}
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("eci[%d] is not finite", i)
		}
	}
	return nil
}

// Normalization selects how reported energies are normalized.
type Normalization string

const (
	PerUnitCell Normalization = "per_unitcell"
	PerAtom     Normalization = "per_atom"
)

// Model bundles the evaluator, its coefficients, and the energy
// normalization. It is shared by reference across the engine and archive;
// nothing in it is mutated after construction.
type Model struct {
	Evaluator     Evaluator
	ECI           ECI
	Normalization Normalization
	Species       []string
}

// NewModel validates and assembles a Model.
func NewModel(ev Evaluator, eci ECI, norm Normalization, species []string) (*Model, error) {
	if ev == nil {
		return nil, fmt.Errorf("model requires a correlation evaluator")
	}
	if err := eci.Validate(ev.Len()); err != nil {
		return nil, err
	}
	if norm == "" {
		norm = PerUnitCell
	}
	if norm != PerUnitCell && norm != PerAtom {
		return nil, fmt.Errorf("unknown normalization %q", norm)
	}
	return &Model{Evaluator: ev, ECI: eci, Normalization: norm, Species: species}, nil
}

// Normalize converts an energy per primitive cell into the configured
// normalization, given the composition per primitive cell.
func (m *Model) Normalize(perCell float64, compN []float64) float64 {
	if m.Normalization != PerAtom {
		return perCell
	}
	var atoms float64
	for i, n := range compN {
		if i < len(m.Species) && IsVacancy(m.Species[i]) {
			continue
		}
		atoms += n
	}
	if atoms == 0 {
		return 0
	}
	return perCell / atoms
}

// IsVacancy reports whether a species name denotes a vacancy.
func IsVacancy(name string) bool {
	switch strings.ToLower(name) {
	case "va", "vac", "vacancy":
		return true
	}
	return false
}
