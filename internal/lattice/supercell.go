package lattice

import (
	"fmt"
)

// Supercell is a periodic, diagonal multiple of the primitive cell.
type Supercell struct {
	prim   *Prim
	dims   [3]int
	volume int
}

// NewSupercell creates a supercell with the given repeat counts.
func NewSupercell(prim *Prim, dims [3]int) (*Supercell, error) {
	if prim == nil {
		return nil, fmt.Errorf("supercell requires a prim")
	}
	for d, n := range dims {
		if n < 1 {
			return nil, fmt.Errorf("supercell dimension %d must be >= 1, got %d", d, n)
		}
	}
	return &Supercell{
		prim:   prim,
		dims:   dims,
		volume: dims[0] * dims[1] * dims[2],
	}, nil
}

// Prim returns the primitive cell.
func (s *Supercell) Prim() *Prim { return s.prim }

// Dims returns the repeat counts along each lattice vector.
func (s *Supercell) Dims() [3]int { return s.dims }

// Volume is the number of primitive cells.
func (s *Supercell) Volume() int { return s.volume }

// NumSites is the number of sites in the supercell.
func (s *Supercell) NumSites() int { return s.volume * s.prim.NumSublattices() }

// Name follows the SCEL{V}_{a}_{b}_{c}_{d}_{e}_{f} convention of the
// supercell's Hermite normal form; off-diagonal terms are always zero here.
func (s *Supercell) Name() string {
	return fmt.Sprintf("SCEL%d_%d_%d_%d_0_0_0", s.volume, s.dims[0], s.dims[1], s.dims[2])
}

// Sublattice returns the basis index of site l.
func (s *Supercell) Sublattice(l int) int { return l / s.volume }

// UnitCell returns the unit cell index of site l.
func (s *Supercell) UnitCell(l int) int { return l % s.volume }

// Site returns the linear index of basis site b in unit cell n.
func (s *Supercell) Site(b, n int) int { return b*s.volume + n }

// Coord converts a unit cell index into lattice coordinates.
func (s *Supercell) Coord(n int) [3]int {
	i := n % s.dims[0]
	j := (n / s.dims[0]) % s.dims[1]
	k := n / (s.dims[0] * s.dims[1])
	return [3]int{i, j, k}
}

// CellIndex converts lattice coordinates into a unit cell index, wrapping
// periodically.
func (s *Supercell) CellIndex(c [3]int) int {
	i := mod(c[0], s.dims[0])
	j := mod(c[1], s.dims[1])
	k := mod(c[2], s.dims[2])
	return i + s.dims[0]*(j+s.dims[1]*k)
}

// Translate returns the site reached from l by the lattice translation t.
func (s *Supercell) Translate(l int, t [3]int) int {
	b := s.Sublattice(l)
	c := s.Coord(s.UnitCell(l))
	return s.Site(b, s.CellIndex([3]int{c[0] + t[0], c[1] + t[1], c[2] + t[2]}))
}

// Neighbor returns the site one lattice vector away from l along axis, in
// direction dir (+1 or -1).
func (s *Supercell) Neighbor(l, axis, dir int) int {
	var t [3]int
	t[axis] = dir
	return s.Translate(l, t)
}

// SpeciesOf returns the species index of occupation value occ on site l.
func (s *Supercell) SpeciesOf(l, occ int) int {
	return s.prim.Sublattices[s.Sublattice(l)].Occupants[occ]
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
