package lattice

import (
	"encoding/json"
	"fmt"
	"os"
)

// State is the on-disk snapshot of a configuration, as written to
// initial_state.json and final_state.json.
type State struct {
	Supercell  string `json:"supercell"`
	Dims       [3]int `json:"dims"`
	Occupation []int  `json:"occupation"`
}

// Configuration rebuilds a configuration on scel, checking that the state
// was taken on a supercell of the same shape.
func (st State) Configuration(scel *Supercell) (*Configuration, error) {
	if st.Dims != scel.dims {
		return nil, fmt.Errorf("state supercell %v does not match simulation supercell %v",
			st.Dims, scel.dims)
	}
	return FromOccupation(scel, st.Occupation)
}

// WriteState writes st as indented JSON.
func WriteState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state %s: %w", path, err)
	}
	return nil
}

// ReadState reads a state written by WriteState.
func ReadState(path string) (State, error) {
	var st State
	data, err := os.ReadFile(path)
	if err != nil {
		return st, fmt.Errorf("read state %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse state %s: %w", path, err)
	}
	if len(st.Occupation) == 0 {
		return st, fmt.Errorf("parse state %s: missing occupation", path)
	}
	return st, nil
}
