package clex

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

func setup(t *testing.T, occupants []string, dims [3]int, axes int) (*lattice.Supercell, *NearestNeighbor) {
	t.Helper()
	prim, err := lattice.NewPrim([][]string{occupants})
	require.NoError(t, err)
	scel, err := lattice.NewSupercell(prim, dims)
	require.NoError(t, err)
	nn, err := NewNearestNeighbor(prim, axes)
	require.NoError(t, err)
	return scel, nn
}

func TestNearestNeighbor_Len(t *testing.T) {
	_, binary := setup(t, []string{"A", "B"}, [3]int{2, 2, 1}, 2)
	assert.Equal(t, 3, binary.Len())

	_, ternary := setup(t, []string{"A", "B", "C"}, [3]int{2, 2, 1}, 2)
	assert.Equal(t, 1+2+3, ternary.Len())
	assert.Equal(t, "pair(1,2)", ternary.Describe(4))
}

func TestNearestNeighbor_EvaluateKnownValues(t *testing.T) {
	scel, nn := setup(t, []string{"A", "B"}, [3]int{4, 1, 1}, 1)

	allB, _ := lattice.FromOccupation(scel, []int{1, 1, 1, 1})
	assert.InDeltaSlice(t, []float64{1, 1, 1}, nn.Evaluate(allB), 1e-12)

	alternating, _ := lattice.FromOccupation(scel, []int{0, 1, 0, 1})
	assert.InDeltaSlice(t, []float64{1, 0.5, 0}, nn.Evaluate(alternating), 1e-12)

	allA := lattice.NewConfiguration(scel)
	assert.InDeltaSlice(t, []float64{1, 0, 0}, nn.Evaluate(allA), 1e-12)
}

// Delta must agree with full re-evaluation for every site and occupant,
// including supercells only one or two cells wide.
func TestNearestNeighbor_DeltaMatchesEvaluate(t *testing.T) {
	cases := []struct {
		name      string
		occupants []string
		dims      [3]int
		axes      int
	}{
		{"binary 1d", []string{"A", "B"}, [3]int{5, 1, 1}, 1},
		{"binary 2d narrow", []string{"A", "B"}, [3]int{2, 3, 1}, 2},
		{"binary 3d with width-1 axis", []string{"A", "B"}, [3]int{3, 2, 1}, 3},
		{"ternary 2d", []string{"A", "B", "C"}, [3]int{4, 4, 1}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scel, nn := setup(t, tc.occupants, tc.dims, tc.axes)
			rng := rand.New(rand.NewPCG(1, 2))
			m := len(tc.occupants)

			c := lattice.NewConfiguration(scel)
			for l := range c.Occ {
				c.Occ[l] = rng.IntN(m)
			}

			for l := range c.Occ {
				for occ := 0; occ < m; occ++ {
					before := nn.Evaluate(c)
					dcorr := make([]float64, nn.Len())
					nn.Delta(c, l, occ, dcorr)

					after := c.Clone()
					after.Occ[l] = occ
					want := nn.Evaluate(after)

					for i := range want {
						assert.InDelta(t, want[i], before[i]+dcorr[i], 1e-12,
							"site %d occ %d corr %d", l, occ, i)
					}
				}
			}
		})
	}
}

func TestNewNearestNeighbor_Errors(t *testing.T) {
	prim, err := lattice.NewPrim([][]string{{"A", "B"}, {"A", "B"}})
	require.NoError(t, err)
	_, err = NewNearestNeighbor(prim, 2)
	assert.Error(t, err)

	single, err := lattice.NewPrim([][]string{{"A", "B"}})
	require.NoError(t, err)
	_, err = NewNearestNeighbor(single, 4)
	assert.Error(t, err)
}

func TestModel(t *testing.T) {
	_, nn := setup(t, []string{"A", "Va"}, [3]int{2, 1, 1}, 1)

	_, err := NewModel(nn, ECI{0, 1}, PerUnitCell, nil)
	assert.Error(t, err, "eci length mismatch")

	m, err := NewModel(nn, ECI{0.5, -1, 2}, "", []string{"A", "Va"})
	require.NoError(t, err)
	assert.Equal(t, PerUnitCell, m.Normalization)
	assert.InDelta(t, 0.5-0.5+0.5, m.ECI.Energy([]float64{1, 0.5, 0.25}), 1e-12)

	perAtom, err := NewModel(nn, ECI{0, 0, 0}, PerAtom, []string{"A", "Va"})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, perAtom.Normalize(2, []float64{0.5, 0.5}), 1e-12)
}
