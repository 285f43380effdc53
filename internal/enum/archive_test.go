package enum

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
	"github.com/LonxunQuantum/CASMcode/internal/store"
)

// fakeEnsemble scores configurations by the number of B sites.
type fakeEnsemble struct {
	cfg *lattice.Configuration
}

func (f *fakeEnsemble) Live() *lattice.Configuration { return f.cfg }

func (f *fakeEnsemble) CompN() []float64 { return f.cfg.CompN() }

func (f *fakeEnsemble) Observation(name string) (float64, bool) {
	switch name {
	case "formation_energy", "potential_energy":
		return f.cfg.CompN()[1], true
	}
	return 0, false
}

var observations = []string{"formation_energy", "potential_energy"}

func newEnsemble(t *testing.T, dims [3]int, occ []int) *fakeEnsemble {
	t.Helper()
	prim, err := lattice.NewPrim([][]string{{"A", "B"}})
	require.NoError(t, err)
	scel, err := lattice.NewSupercell(prim, dims)
	require.NoError(t, err)
	c, err := lattice.FromOccupation(scel, occ)
	require.NoError(t, err)
	return &fakeEnsemble{cfg: c}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "casm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_ValidatesOptions(t *testing.T) {
	_, err := New(Options{Capacity: 0}, observations, nil, nil)
	assert.Error(t, err)
	_, err = New(Options{Capacity: 1, Check: "bogus"}, observations, nil, nil)
	assert.Error(t, err)
	_, err = New(Options{Capacity: 1, Metric: "corr(3)"}, observations, nil, nil)
	assert.Error(t, err)
	_, err = New(Options{Capacity: 1, SampleMode: "sometimes"}, observations, nil, nil)
	assert.Error(t, err)
	_, err = New(Options{Capacity: 1, SaveConfigs: true}, observations, nil, nil)
	assert.Error(t, err, "saving requires a store")

	a, err := New(Options{Capacity: 1, Metric: "-formation_energy"}, observations, nil, nil)
	require.NoError(t, err)
	assert.True(t, a.OnSample())
	assert.Equal(t, 1, a.OutputPeriod())
	assert.Equal(t, []string{"always", "is_new", "is_primitive"}, CheckNames())
}

func TestInsert_BoundedBestOf(t *testing.T) {
	a, err := New(Options{Capacity: 2}, observations, nil, nil)
	require.NoError(t, err)

	ens := newEnsemble(t, [3]int{4, 1, 1}, []int{1, 1, 1, 0}) // score 0.75
	assert.True(t, a.Insert(ens))
	ens.cfg.Occ = []int{1, 1, 0, 0} // 0.5
	assert.True(t, a.Insert(ens))
	ens.cfg.Occ = []int{1, 1, 1, 1} // 1.0, worse than everything
	assert.False(t, a.Insert(ens))
	ens.cfg.Occ = []int{1, 0, 0, 0} // 0.25 evicts 0.75
	assert.True(t, a.Insert(ens))

	require.Equal(t, 2, a.Len())
	assert.InDelta(t, 0.25, a.Entries()[0].Score, 1e-12)
	assert.InDelta(t, 0.5, a.Entries()[1].Score, 1e-12)
}

func TestInsert_DedupsOnCanonicalForm(t *testing.T) {
	a, err := New(Options{Capacity: 5, InsertCanonical: true}, observations, nil, nil)
	require.NoError(t, err)

	ens := newEnsemble(t, [3]int{4, 1, 1}, []int{1, 0, 0, 0})
	assert.True(t, a.Insert(ens))
	ens.cfg.Occ = []int{0, 0, 1, 0} // a translation of the first
	assert.False(t, a.Insert(ens))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, []int{1, 0, 0, 0}, a.Entries()[0].Config.Occ)

	// The archive holds a snapshot, not the live configuration.
	ens.cfg.Occ[0] = 1
	assert.Equal(t, []int{1, 0, 0, 0}, a.Entries()[0].Config.Occ)
}

func TestInsert_ArchiveBoundProperty(t *testing.T) {
	a, err := New(Options{Capacity: 3}, observations, nil, nil)
	require.NoError(t, err)
	ens := newEnsemble(t, [3]int{3, 2, 1}, make([]int, 6))

	evictedBest := 2.0
	for mask := 0; mask < 64; mask++ {
		for l := range ens.cfg.Occ {
			ens.cfg.Occ[l] = (mask >> l) & 1
		}
		before := map[string]float64{}
		for _, e := range a.Entries() {
			before[e.Fingerprint] = e.Score
		}
		a.Insert(ens)
		assert.LessOrEqual(t, a.Len(), 3)
		after := map[string]bool{}
		for _, e := range a.Entries() {
			after[e.Fingerprint] = true
		}
		for fp, s := range before {
			if !after[fp] && s < evictedBest {
				evictedBest = s
			}
		}
	}
	for _, e := range a.Entries() {
		assert.LessOrEqual(t, e.Score, evictedBest)
	}
}

func TestChecks(t *testing.T) {
	prim, err := New(Options{Capacity: 5, Check: "is_primitive"}, observations, nil, nil)
	require.NoError(t, err)
	ens := newEnsemble(t, [3]int{4, 1, 1}, []int{1, 0, 1, 0})
	assert.False(t, prim.Insert(ens))
	ens.cfg.Occ = []int{1, 0, 0, 0}
	assert.True(t, prim.Insert(ens))
}

func TestSaveAndExclusion(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	runID := store.NewRunID()
	require.NoError(t, st.BeginRun(ctx, store.Run{ID: runID, OutputDir: "out"}))

	a, err := New(Options{Capacity: 5, SaveConfigs: true, CheckExistence: true}, observations, st, nil)
	require.NoError(t, err)
	require.NoError(t, a.Reset(ctx))

	ens := newEnsemble(t, [3]int{4, 1, 1}, []int{1, 0, 1, 0}) // non-primitive
	require.True(t, a.Insert(ens))
	ens.cfg.Occ = []int{1, 1, 0, 0}
	require.True(t, a.Insert(ens))

	require.NoError(t, a.Save(ctx, runID, 0))
	require.NoError(t, a.Save(ctx, runID, 0), "saving twice is a no-op")

	recs, err := st.ListConfigurations(ctx)
	require.NoError(t, err)
	// Two archived plus the primitive reduction of the first.
	require.Len(t, recs, 3)
	for _, e := range a.Entries() {
		assert.True(t, e.Saved)
		assert.True(t, e.IsNew)
		assert.NotEmpty(t, e.Name)
	}
	var withPrim int
	for _, r := range recs {
		if r.PrimitiveName != "" {
			withPrim++
			assert.Equal(t, "SCEL2_2_1_1_0_0_0/0", r.PrimitiveName)
		}
	}
	assert.Equal(t, 1, withPrim)
	n, err := st.SourceCount(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Next condition: everything in the store is excluded.
	require.NoError(t, a.Reset(ctx))
	assert.Zero(t, a.Len())
	assert.False(t, a.Insert(ens))
	ens.cfg.Occ = []int{0, 1, 0, 1}
	assert.False(t, a.Insert(ens), "translation of a stored configuration")
	ens.cfg.Occ = []int{1, 1, 1, 0}
	assert.True(t, a.Insert(ens))
}

func TestSave_DryRun(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	a, err := New(Options{Capacity: 5, SaveConfigs: true, DryRun: true}, observations, st, nil)
	require.NoError(t, err)
	require.True(t, a.Insert(newEnsemble(t, [3]int{2, 1, 1}, []int{1, 0})))
	require.NoError(t, a.Save(ctx, "", 0))

	recs, err := st.ListConfigurations(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.False(t, a.Entries()[0].Saved)
}

func TestWriteOutput(t *testing.T) {
	a, err := New(Options{Capacity: 5}, observations, nil, nil)
	require.NoError(t, err)
	ens := newEnsemble(t, [3]int{2, 1, 1}, []int{1, 0})
	require.True(t, a.Insert(ens))
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "enum.json")
	require.NoError(t, a.WriteOutput(jsonPath))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "SCEL2_2_1_1_0_0_0", got[0]["supercell"])
	assert.Equal(t, true, got[0]["is_primitive"])

	csvPath := filepath.Join(dir, "enum.csv")
	require.NoError(t, a.WriteOutput(csvPath))
	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "score,name,is_new,supercell,is_primitive,formation_energy,potential_energy,comp_n(A),comp_n(B),fingerprint", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0.5,,false,SCEL2_2_1_1_0_0_0,true,0.5,0.5,0.5,0.5,"))
}
