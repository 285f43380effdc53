package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LonxunQuantum/CASMcode/internal/settings"
)

// Seed is the seed used by fixtures.
const Seed uint64 = 20240611

// BinaryJSON is an A/B alloy on a 4x4x2 supercell with an ordering
// nearest-neighbour interaction, swept from 300 K to 500 K in 100 K steps
// for 1000 passes sampled every 10 passes.
const BinaryJSON = `{
  "model": {
    "sublattices": [["A", "B"]],
    "evaluator": {"kind": "nearest_neighbor", "axes": 3},
    "eci": [0.0, 0.0, 0.02]
  },
  "supercell": [[4, 0, 0], [0, 4, 0], [0, 0, 2]],
  "driver": {
    "mode": "incremental",
    "dependent_runs": true,
    "initial_conditions": {"temperature": 300, "comp_n": {"A": 0.5, "B": 0.5}},
    "final_conditions": {"temperature": 500, "comp_n": {"A": 0.5, "B": 0.5}},
    "incremental_conditions": {"temperature": 100, "comp_n": {"A": 0, "B": 0}}
  },
  "data": {
    "sample_by": "pass",
    "sample_period": 10,
    "N_pass": 1000,
    "measurements": [{"quantity": "formation_energy"}],
    "storage": {"output_format": ["json", "csv"]}
  }
}`

// BinarySettings parses BinaryJSON and applies each mutation in order.
func BinarySettings(t testing.TB, mutate ...func(*settings.Settings)) *settings.Settings {
	t.Helper()
	s, err := settings.Parse([]byte(BinaryJSON), "json")
	require.NoError(t, err)
	for _, m := range mutate {
		m(s)
	}
	return s
}

// Short makes a run of passes passes sampled every period passes.
func Short(passes, period int) func(*settings.Settings) {
	return func(s *settings.Settings) {
		s.Data.NPass = passes
		s.Data.SamplePeriod = period
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
