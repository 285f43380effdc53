package lattice

import (
	"fmt"
	"slices"
)

// Sublattice lists the species that may occupy one basis site of the
// primitive cell. Occupants are indices into Prim.Species; a site's
// occupation value is an index into Occupants.
type Sublattice struct {
	Name      string
	Occupants []int
}

// Prim is the primitive cell as far as occupation is concerned.
type Prim struct {
	Species     []string
	Sublattices []Sublattice
}

// NewPrim builds a Prim where every sublattice lists occupants by species
// name. Species order follows first appearance.
func NewPrim(occupants [][]string) (*Prim, error) {
	if len(occupants) == 0 {
		return nil, fmt.Errorf("prim requires at least one sublattice")
	}
	p := &Prim{}
	for b, names := range occupants {
		if len(names) == 0 {
			return nil, fmt.Errorf("sublattice %d has no allowed occupants", b)
		}
		sub := Sublattice{Name: fmt.Sprintf("%d", b)}
		for _, name := range names {
			idx := slices.Index(p.Species, name)
			if idx < 0 {
				p.Species = append(p.Species, name)
				idx = len(p.Species) - 1
			}
			if slices.Contains(sub.Occupants, idx) {
				return nil, fmt.Errorf("sublattice %d lists %q twice", b, name)
			}
			sub.Occupants = append(sub.Occupants, idx)
		}
		p.Sublattices = append(p.Sublattices, sub)
	}
	return p, nil
}

// NumSublattices returns the number of basis sites.
func (p *Prim) NumSublattices() int {
	return len(p.Sublattices)
}

// SpeciesIndex looks up a species by name.
func (p *Prim) SpeciesIndex(name string) (int, bool) {
	idx := slices.Index(p.Species, name)
	return idx, idx >= 0
}

// OccupantNames returns the allowed occupant names per sublattice.
func (p *Prim) OccupantNames() [][]string {
	out := make([][]string, len(p.Sublattices))
	for b, sub := range p.Sublattices {
		for _, s := range sub.Occupants {
			out[b] = append(out[b], p.Species[s])
		}
	}
	return out
}

// IsMutable reports whether sublattice b allows more than one occupant.
func (p *Prim) IsMutable(b int) bool {
	return len(p.Sublattices[b].Occupants) > 1
}
