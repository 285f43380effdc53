package lattice

import (
	"fmt"
	"slices"
)

// Configuration is a mutable occupation of every site in a supercell.
// Occ[l] indexes into the allowed occupants of site l's sublattice.
type Configuration struct {
	Supercell *Supercell
	Occ       []int
}

// NewConfiguration returns the default configuration: every site holds its
// sublattice's first occupant.
func NewConfiguration(scel *Supercell) *Configuration {
	return &Configuration{Supercell: scel, Occ: make([]int, scel.NumSites())}
}

// FromOccupation validates occ against scel and wraps a copy of it.
func FromOccupation(scel *Supercell, occ []int) (*Configuration, error) {
	if len(occ) != scel.NumSites() {
		return nil, fmt.Errorf("occupation has %d sites, supercell %s has %d",
			len(occ), scel.Name(), scel.NumSites())
	}
	for l, o := range occ {
		n := len(scel.prim.Sublattices[scel.Sublattice(l)].Occupants)
		if o < 0 || o >= n {
			return nil, fmt.Errorf("site %d: occupant %d out of range [0,%d)", l, o, n)
		}
	}
	return &Configuration{Supercell: scel, Occ: slices.Clone(occ)}, nil
}

// Clone returns an independent copy; archive entries and persisted states
// are always clones, never aliases of the live configuration.
func (c *Configuration) Clone() *Configuration {
	return &Configuration{Supercell: c.Supercell, Occ: slices.Clone(c.Occ)}
}

// Species returns the species index on site l.
func (c *Configuration) Species(l int) int {
	return c.Supercell.SpeciesOf(l, c.Occ[l])
}

// CompN counts each species per primitive cell.
func (c *Configuration) CompN() []float64 {
	out := make([]float64, len(c.Supercell.prim.Species))
	for l := range c.Occ {
		out[c.Species(l)]++
	}
	v := float64(c.Supercell.volume)
	for i := range out {
		out[i] /= v
	}
	return out
}

// Equal reports whether both configurations share supercell dims and
// occupation.
func (c *Configuration) Equal(o *Configuration) bool {
	return c.Supercell.dims == o.Supercell.dims && slices.Equal(c.Occ, o.Occ)
}

// State returns the persisted form of the configuration.
func (c *Configuration) State() State {
	return State{
		Supercell:  c.Supercell.Name(),
		Dims:       c.Supercell.dims,
		Occupation: slices.Clone(c.Occ),
	}
}
