package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"sweep", "resume", "conditions_changed", "malformed_snapshot", "no_output_format"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, loadTestScenario(t, name)))
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	s := Snapshot{
		ScenarioName: "example",
		Trace: []TraceEvent{
			{Seq: 1, Type: EventRun, Outcome: OutcomeOK, StartIndex: 0, Condition: -1, Steps: 64},
			{Seq: 2, Type: EventPatch, Keys: []string{"data", "driver"}, StartIndex: -1, Condition: -1},
			{Seq: 3, Type: EventRun, Outcome: "CONDITIONS_CHANGED", StartIndex: -1, Condition: 2},
		},
	}

	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"example","trace":[`+
		`{"outcome":"ok","seq":1,"start_index":0,"steps":64,"type":"run"},`+
		`{"keys":["data","driver"],"seq":2,"type":"patch"},`+
		`{"condition":2,"outcome":"CONDITIONS_CHANGED","seq":3,"steps":0,"type":"run"}],`+
		`"tree":[]}`, string(data))
}

func TestAssertGolden_UsesResultTrace(t *testing.T) {
	result, err := Run(loadTestScenario(t, "sweep"))
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "three_condition_sweep", result))
}
