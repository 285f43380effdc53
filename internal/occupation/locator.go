// Package occupation tracks which sites currently hold which occupant,
// partitioned into swap candidate classes, so that the Monte Carlo engine
// can pick swaps uniformly without scanning the supercell.
package occupation

import (
	"fmt"
	"math/rand/v2"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

// Candidate is a (sublattice, occupant) class. Only sublattices with more
// than one allowed occupant produce candidates.
type Candidate struct {
	Sublattice int
	Occ        int
	Species    int
}

// Swap exchanges the occupants of a site in class A and a site in class B.
// Both classes lie on the same sublattice; composition is preserved.
type Swap struct {
	A, B int
}

// GrandSwap changes one site from class From to class To, changing the
// composition.
type GrandSwap struct {
	From, To int
}

// Locator maps candidate classes to the sites currently holding them.
type Locator struct {
	scel       *lattice.Supercell
	candidates []Candidate
	index      [][]int // [sublattice][occ] -> candidate, -1 when immutable
	sites      [][]int
	pos        []int // site -> position within its candidate's site list
	candOf     []int // site -> candidate, -1 when immutable
	canonical  []Swap
	grand      []GrandSwap
}

// NewLocator builds a locator for scel and populates it from c.
func NewLocator(c *lattice.Configuration) *Locator {
	scel := c.Supercell
	prim := scel.Prim()
	lo := &Locator{scel: scel, index: make([][]int, prim.NumSublattices())}
	for b, sub := range prim.Sublattices {
		lo.index[b] = make([]int, len(sub.Occupants))
		for occ := range sub.Occupants {
			lo.index[b][occ] = -1
			if !prim.IsMutable(b) {
				continue
			}
			lo.index[b][occ] = len(lo.candidates)
			lo.candidates = append(lo.candidates, Candidate{Sublattice: b, Occ: occ, Species: sub.Occupants[occ]})
		}
	}
	for i, a := range lo.candidates {
		for j, b := range lo.candidates {
			if i == j || a.Sublattice != b.Sublattice {
				continue
			}
			lo.grand = append(lo.grand, GrandSwap{From: i, To: j})
			if i < j {
				lo.canonical = append(lo.canonical, Swap{A: i, B: j})
			}
		}
	}
	lo.Reset(c)
	return lo
}

// Reset repopulates the site lists from c.
func (lo *Locator) Reset(c *lattice.Configuration) {
	lo.sites = make([][]int, len(lo.candidates))
	lo.pos = make([]int, len(c.Occ))
	lo.candOf = make([]int, len(c.Occ))
	for l, occ := range c.Occ {
		ci := lo.index[lo.scel.Sublattice(l)][occ]
		lo.candOf[l] = ci
		if ci < 0 {
			continue
		}
		lo.pos[l] = len(lo.sites[ci])
		lo.sites[ci] = append(lo.sites[ci], l)
	}
}

// Candidates returns every candidate class.
func (lo *Locator) Candidates() []Candidate { return lo.candidates }

// CanonicalSwaps returns the composition-preserving swap types.
func (lo *Locator) CanonicalSwaps() []Swap { return lo.canonical }

// GrandCanonicalSwaps returns the composition-changing swap types.
func (lo *Locator) GrandCanonicalSwaps() []GrandSwap { return lo.grand }

// Count returns how many sites currently belong to candidate ci.
func (lo *Locator) Count(ci int) int { return len(lo.sites[ci]) }

// CandidateOf returns the candidate class of site l, or -1.
func (lo *Locator) CandidateOf(l int) int { return lo.candOf[l] }

// NumMutable counts sites on sublattices with more than one occupant.
func (lo *Locator) NumMutable() int {
	n := 0
	for _, s := range lo.sites {
		n += len(s)
	}
	return n
}

// ValidPairs counts the site pairs a canonical swap can currently exchange.
func (lo *Locator) ValidPairs() int {
	total := 0
	for _, sw := range lo.canonical {
		total += len(lo.sites[sw.A]) * len(lo.sites[sw.B])
	}
	return total
}

// Choose picks a canonical swap uniformly among all currently valid site
// pairs and returns the two sites. ok is false when no swap is possible.
func (lo *Locator) Choose(rng *rand.Rand) (siteA, siteB int, ok bool) {
	total := lo.ValidPairs()
	if total == 0 {
		return 0, 0, false
	}
	r := rng.IntN(total)
	for _, sw := range lo.canonical {
		w := len(lo.sites[sw.A]) * len(lo.sites[sw.B])
		if r >= w {
			r -= w
			continue
		}
		a, b := lo.sites[sw.A], lo.sites[sw.B]
		if len(a) == 0 || len(b) == 0 {
			panic(fmt.Sprintf("occupation: swap %d<->%d selected with empty candidate class", sw.A, sw.B))
		}
		return a[r/len(b)], b[r%len(b)], true
	}
	panic("occupation: swap weight exhausted")
}

// ChooseSite picks a uniformly random site from candidate ci.
func (lo *Locator) ChooseSite(ci int, rng *rand.Rand) int {
	s := lo.sites[ci]
	if len(s) == 0 {
		panic(fmt.Sprintf("occupation: candidate %d is empty", ci))
	}
	return s[rng.IntN(len(s))]
}

// OccFor returns the occupant value candidate ci assigns to its sites.
func (lo *Locator) OccFor(ci int) int { return lo.candidates[ci].Occ }

// Apply records that site l now holds occupant newOcc.
func (lo *Locator) Apply(l, newOcc int) {
	oldCand := lo.candOf[l]
	newCand := lo.index[lo.scel.Sublattice(l)][newOcc]
	if oldCand == newCand {
		return
	}
	if oldCand < 0 || newCand < 0 {
		panic(fmt.Sprintf("occupation: site %d is not mutable", l))
	}
	list := lo.sites[oldCand]
	p := lo.pos[l]
	last := list[len(list)-1]
	list[p] = last
	lo.pos[last] = p
	lo.sites[oldCand] = list[:len(list)-1]

	lo.pos[l] = len(lo.sites[newCand])
	lo.sites[newCand] = append(lo.sites[newCand], l)
	lo.candOf[l] = newCand
}
