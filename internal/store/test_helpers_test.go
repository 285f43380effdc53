package store

import (
	"path/filepath"
	"testing"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestConfig builds a binary A/B configuration.
func createTestConfig(t *testing.T, dims [3]int, occ []int) *lattice.Configuration {
	t.Helper()
	prim, err := lattice.NewPrim([][]string{{"A", "B"}})
	if err != nil {
		t.Fatalf("NewPrim() failed: %v", err)
	}
	scel, err := lattice.NewSupercell(prim, dims)
	if err != nil {
		t.Fatalf("NewSupercell() failed: %v", err)
	}
	c, err := lattice.FromOccupation(scel, occ)
	if err != nil {
		t.Fatalf("FromOccupation() failed: %v", err)
	}
	return c
}
