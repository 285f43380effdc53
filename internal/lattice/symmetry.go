package lattice

import (
	"fmt"
	"slices"
)

// Canonical returns the symmetry-canonical representative of c under the
// supercell's translation group: the lexicographically greatest occupation
// over all lattice translations.
func Canonical(c *Configuration) *Configuration {
	scel := c.Supercell
	best := slices.Clone(c.Occ)
	buf := make([]int, len(c.Occ))
	for _, t := range translations(scel.dims) {
		permute(scel, c.Occ, t, buf)
		if slices.Compare(buf, best) > 0 {
			copy(best, buf)
		}
	}
	return &Configuration{Supercell: scel, Occ: best}
}

// IsCanonical reports whether c is already its own canonical form.
func IsCanonical(c *Configuration) bool {
	return slices.Equal(Canonical(c).Occ, c.Occ)
}

// PrimitiveDims returns the smallest diagonal sub-period of c: for each axis,
// the least divisor p of the supercell dimension such that translating by p
// along that axis leaves the occupation unchanged.
func PrimitiveDims(c *Configuration) [3]int {
	scel := c.Supercell
	var out [3]int
	buf := make([]int, len(c.Occ))
	for axis := 0; axis < 3; axis++ {
		n := scel.dims[axis]
		out[axis] = n
		for p := 1; p < n; p++ {
			if n%p != 0 {
				continue
			}
			var t [3]int
			t[axis] = p
			permute(scel, c.Occ, t, buf)
			if slices.Equal(buf, c.Occ) {
				out[axis] = p
				break
			}
		}
	}
	return out
}

// IsPrimitive reports whether c cannot be described by a smaller diagonal
// supercell.
func IsPrimitive(c *Configuration) bool {
	return PrimitiveDims(c) == c.Supercell.dims
}

// Primitive reduces c to its smallest diagonal supercell.
func Primitive(c *Configuration) (*Configuration, error) {
	dims := PrimitiveDims(c)
	if dims == c.Supercell.dims {
		return c.Clone(), nil
	}
	scel, err := NewSupercell(c.Supercell.prim, dims)
	if err != nil {
		return nil, err
	}
	out := NewConfiguration(scel)
	for l := range out.Occ {
		b := scel.Sublattice(l)
		coord := scel.Coord(scel.UnitCell(l))
		src := c.Supercell.Site(b, c.Supercell.CellIndex(coord))
		out.Occ[l] = c.Occ[src]
	}
	return out, nil
}

// permute writes into dst the occupation of src translated by t.
func permute(scel *Supercell, src []int, t [3]int, dst []int) {
	for l, o := range src {
		dst[scel.Translate(l, t)] = o
	}
}

func translations(dims [3]int) [][3]int {
	out := make([][3]int, 0, dims[0]*dims[1]*dims[2])
	for k := 0; k < dims[2]; k++ {
		for j := 0; j < dims[1]; j++ {
			for i := 0; i < dims[0]; i++ {
				out = append(out, [3]int{i, j, k})
			}
		}
	}
	return out
}

// Tile fills scel by repeating c periodically. Each dimension of scel must
// be a multiple of c's.
func Tile(c *Configuration, scel *Supercell) (*Configuration, error) {
	src := c.Supercell
	if src.prim != scel.prim {
		return nil, fmt.Errorf("cannot tile configuration onto a supercell of a different prim")
	}
	for d := range 3 {
		if scel.dims[d]%src.dims[d] != 0 {
			return nil, fmt.Errorf("supercell %v is not a multiple of configuration supercell %v",
				scel.dims, src.dims)
		}
	}
	out := NewConfiguration(scel)
	for l := range out.Occ {
		b := scel.Sublattice(l)
		coord := scel.Coord(scel.UnitCell(l))
		out.Occ[l] = c.Occ[src.Site(b, src.CellIndex(coord))]
	}
	return out, nil
}
