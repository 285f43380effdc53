package occupation

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

func config(t *testing.T, occupants [][]string, dims [3]int, occ []int) *lattice.Configuration {
	t.Helper()
	prim, err := lattice.NewPrim(occupants)
	require.NoError(t, err)
	scel, err := lattice.NewSupercell(prim, dims)
	require.NoError(t, err)
	if occ == nil {
		return lattice.NewConfiguration(scel)
	}
	c, err := lattice.FromOccupation(scel, occ)
	require.NoError(t, err)
	return c
}

func TestNewLocator_Candidates(t *testing.T) {
	c := config(t, [][]string{{"A", "B", "C"}, {"O"}}, [3]int{2, 1, 1}, []int{0, 1, 0, 0})
	lo := NewLocator(c)

	assert.Len(t, lo.Candidates(), 3)
	assert.Equal(t, []Swap{{0, 1}, {0, 2}, {1, 2}}, lo.CanonicalSwaps())
	assert.Len(t, lo.GrandCanonicalSwaps(), 6)
	assert.Equal(t, 1, lo.Count(0))
	assert.Equal(t, 1, lo.Count(1))
	assert.Equal(t, 0, lo.Count(2))
	assert.Equal(t, 2, lo.NumMutable())
	assert.Equal(t, -1, lo.CandidateOf(2), "O sublattice is immutable")
}

func TestLocator_ChooseReturnsDifferentOccupants(t *testing.T) {
	c := config(t, [][]string{{"A", "B"}}, [3]int{4, 4, 1}, nil)
	for l := 0; l < 5; l++ {
		c.Occ[l] = 1
	}
	lo := NewLocator(c)
	rng := rand.New(rand.NewPCG(7, 7))

	seen := map[[2]int]bool{}
	for i := 0; i < 2000; i++ {
		a, b, ok := lo.Choose(rng)
		require.True(t, ok)
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, c.Occ[a], c.Occ[b])
		seen[[2]int{a, b}] = true
	}
	// 5 B sites x 11 A sites
	assert.Len(t, seen, 55)
}

func TestLocator_ChooseNoValidSwap(t *testing.T) {
	c := config(t, [][]string{{"A", "B"}}, [3]int{3, 1, 1}, nil)
	lo := NewLocator(c)
	_, _, ok := lo.Choose(rand.New(rand.NewPCG(1, 1)))
	assert.False(t, ok)
}

func TestLocator_ApplyKeepsListsConsistent(t *testing.T) {
	c := config(t, [][]string{{"A", "B", "C"}}, [3]int{3, 3, 1}, nil)
	lo := NewLocator(c)
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 500; i++ {
		l := rng.IntN(len(c.Occ))
		occ := rng.IntN(3)
		c.Occ[l] = occ
		lo.Apply(l, occ)
	}

	fresh := NewLocator(c)
	for ci := range lo.Candidates() {
		assert.ElementsMatch(t, fresh.sites[ci], lo.sites[ci])
		for _, l := range lo.sites[ci] {
			assert.Equal(t, ci, lo.CandidateOf(l))
			assert.Equal(t, l, lo.sites[ci][lo.pos[l]])
		}
	}
}

func TestLocator_ChooseSite(t *testing.T) {
	c := config(t, [][]string{{"A", "B"}}, [3]int{2, 2, 1}, []int{0, 1, 0, 0})
	lo := NewLocator(c)
	rng := rand.New(rand.NewPCG(1, 2))
	assert.Equal(t, 1, lo.ChooseSite(1, rng))
	assert.Equal(t, 1, lo.OccFor(1))
	assert.Panics(t, func() {
		lo.Apply(1, 0)
		lo.ChooseSite(1, rng)
	})
}
