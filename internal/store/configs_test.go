package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveConfiguration_DedupOnFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := createTestConfig(t, [3]int{2, 1, 1}, []int{1, 0})

	rec, inserted, err := s.SaveConfiguration(ctx, c)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "SCEL2_2_1_1_0_0_0/0", rec.Name)
	assert.Equal(t, []int{1, 0}, rec.Occupation)
	assert.True(t, rec.IsPrimitive)
	assert.Len(t, rec.Fingerprint, 64)

	again, inserted, err := s.SaveConfiguration(ctx, c.Clone())
	require.NoError(t, err)
	assert.False(t, inserted, "re-saving is a no-op")
	assert.Equal(t, rec, again)

	other, inserted, err := s.SaveConfiguration(ctx, createTestConfig(t, [3]int{2, 1, 1}, []int{1, 1}))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "SCEL2_2_1_1_0_0_0/1", other.Name)

	all, err := s.ListConfigurations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fps, err := s.Fingerprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.Fingerprint, other.Fingerprint}, fps)

	ok, err := s.HasFingerprint(ctx, rec.Fingerprint)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasFingerprint(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetPrimitive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	big, _, err := s.SaveConfiguration(ctx, createTestConfig(t, [3]int{4, 1, 1}, []int{1, 0, 1, 0}))
	require.NoError(t, err)
	assert.False(t, big.IsPrimitive)
	prim, _, err := s.SaveConfiguration(ctx, createTestConfig(t, [3]int{2, 1, 1}, []int{1, 0}))
	require.NoError(t, err)

	require.NoError(t, s.SetPrimitive(ctx, big.ID, prim.ID))

	all, err := s.ListConfigurations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, prim.Name, all[0].PrimitiveName)
	assert.Empty(t, all[1].PrimitiveName)
}

func TestLookupConfiguration(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, _, err := s.SaveConfiguration(ctx, createTestConfig(t, [3]int{2, 2, 1}, []int{1, 0, 0, 0}))
	require.NoError(t, err)

	st, err := s.LookupConfiguration(ctx, rec.Name)
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 2, 1}, st.Dims)
	assert.Equal(t, []int{1, 0, 0, 0}, st.Occupation)
	assert.Equal(t, "SCEL4_2_2_1_0_0_0", st.Supercell)

	_, err = s.LookupConfiguration(ctx, "SCEL4_2_2_1_0_0_0/9")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id := NewRunID()
	require.NoError(t, s.BeginRun(ctx, Run{ID: id, OutputDir: "out", Seed: ^uint64(0), StartIndex: 1}))
	rec, _, err := s.SaveConfiguration(ctx, createTestConfig(t, [3]int{2, 1, 1}, []int{1, 0}))
	require.NoError(t, err)
	require.NoError(t, s.AddSource(ctx, rec.ID, id, 1, -0.5))
	require.NoError(t, s.AddSource(ctx, rec.ID, id, 1, -0.5))
	require.NoError(t, s.FinishRun(ctx, id, 2, RunComplete))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, Run{ID: id, OutputDir: "out", Seed: ^uint64(0), StartIndex: 1, FinishIndex: 2, Status: RunComplete}, runs[0])

	n, err := s.SourceCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, s.AddSource(ctx, rec.ID, "unknown-run", 0, 0), "foreign key enforced")
}
