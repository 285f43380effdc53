package clex

import (
	"fmt"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

// NearestNeighbor is a reference evaluator for a single-sublattice lattice
// with an occupation basis: phi_k(s) = 1 if s == k else 0, for k = 1..m-1.
//
// Correlations, in order: the empty cluster, one point function per k, and
// one nearest-neighbour pair function per unordered (k1, k2), averaged over
// the first Axes lattice directions.
type NearestNeighbor struct {
	m     int
	axes  int
	pairs [][2]int
}

// NewNearestNeighbor builds the evaluator for prim, counting bonds along
// axes lattice directions (1, 2 or 3).
func NewNearestNeighbor(prim *lattice.Prim, axes int) (*NearestNeighbor, error) {
	if prim.NumSublattices() != 1 {
		return nil, fmt.Errorf("nearest-neighbor evaluator supports one sublattice, prim has %d",
			prim.NumSublattices())
	}
	if axes < 1 || axes > 3 {
		return nil, fmt.Errorf("axes must be 1, 2 or 3, got %d", axes)
	}
	m := len(prim.Sublattices[0].Occupants)
	nn := &NearestNeighbor{m: m, axes: axes}
	for k1 := 1; k1 < m; k1++ {
		for k2 := k1; k2 < m; k2++ {
			nn.pairs = append(nn.pairs, [2]int{k1, k2})
		}
	}
	return nn, nil
}

// Len returns the number of correlations.
func (nn *NearestNeighbor) Len() int {
	return 1 + (nn.m - 1) + len(nn.pairs)
}

// Describe names correlation i.
func (nn *NearestNeighbor) Describe(i int) string {
	switch {
	case i == 0:
		return "empty"
	case i < nn.m:
		return fmt.Sprintf("point(%d)", i)
	default:
		p := nn.pairs[i-nn.m]
		return fmt.Sprintf("pair(%d,%d)", p[0], p[1])
	}
}

// Evaluate computes the per-primitive-cell correlations of c.
func (nn *NearestNeighbor) Evaluate(c *lattice.Configuration) []float64 {
	scel := c.Supercell
	corr := make([]float64, nn.Len())
	corr[0] = 1
	v := float64(scel.Volume())
	for l, s := range c.Occ {
		if s > 0 {
			corr[s] += 1 / v
		}
		for d := 0; d < nn.axes; d++ {
			t := c.Occ[scel.Neighbor(l, d, +1)]
			for p, kk := range nn.pairs {
				corr[nn.m+p] += nn.sym(kk, s, t) / (v * float64(nn.axes))
			}
		}
	}
	return corr
}

// Delta adds the change from setting site to newOcc into dst.
func (nn *NearestNeighbor) Delta(c *lattice.Configuration, site, newOcc int, dst []float64) {
	old := c.Occ[site]
	if old == newOcc {
		return
	}
	scel := c.Supercell
	v := float64(scel.Volume())
	if old > 0 {
		dst[old] -= 1 / v
	}
	if newOcc > 0 {
		dst[newOcc] += 1 / v
	}
	norm := v * float64(nn.axes)
	for d := 0; d < nn.axes; d++ {
		up := scel.Neighbor(site, d, +1)
		if up == site {
			for p, kk := range nn.pairs {
				dst[nn.m+p] += (nn.sym(kk, newOcc, newOcc) - nn.sym(kk, old, old)) / norm
			}
			continue
		}
		down := scel.Neighbor(site, d, -1)
		su, sd := c.Occ[up], c.Occ[down]
		for p, kk := range nn.pairs {
			delta := nn.sym(kk, newOcc, su) - nn.sym(kk, old, su) +
				nn.sym(kk, sd, newOcc) - nn.sym(kk, sd, old)
			dst[nn.m+p] += delta / norm
		}
	}
}

// sym is the symmetrized pair basis function for (k1, k2) on a bond (a, b).
func (nn *NearestNeighbor) sym(kk [2]int, a, b int) float64 {
	if kk[0] == kk[1] {
		return phi(kk[0], a) * phi(kk[0], b)
	}
	return phi(kk[0], a)*phi(kk[1], b) + phi(kk[1], a)*phi(kk[0], b)
}

func phi(k, s int) float64 {
	if s == k {
		return 1
	}
	return 0
}
