package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const condDirPrefix = "conditions."

// Layout names the files of a campaign output directory.
type Layout struct {
	Root string
}

// Dir is the directory of condition i.
func (l Layout) Dir(i int) string {
	return filepath.Join(l.Root, condDirPrefix+strconv.Itoa(i))
}

func (l Layout) ConditionsFile(i int) string {
	return filepath.Join(l.Dir(i), "conditions.json")
}

func (l Layout) InitialState(i int) string {
	return filepath.Join(l.Dir(i), "initial_state.json")
}

// InitialStateRunEq is written after the equilibration done before every
// condition.
func (l Layout) InitialStateRunEq(i int) string {
	return filepath.Join(l.Dir(i), "initial_state_runeq.json")
}

// InitialStateFirstRunEq is written after the equilibration done once
// before the first condition.
func (l Layout) InitialStateFirstRunEq(i int) string {
	return filepath.Join(l.Dir(i), "initial_state_firstruneq.json")
}

func (l Layout) FinalState(i int) string {
	return filepath.Join(l.Dir(i), "final_state.json")
}

func (l Layout) Observations(i int) string {
	return filepath.Join(l.Dir(i), "observations.csv")
}

// EnumFile is the archive output of condition i.
func (l Layout) EnumFile(i int, name string) string {
	return filepath.Join(l.Dir(i), name)
}

func (l Layout) ResultsJSON() string {
	return filepath.Join(l.Root, "results.json")
}

func (l Layout) ResultsCSV() string {
	return filepath.Join(l.Root, "results.csv")
}

// ConditionIndices returns the indices of the existing condition
// directories, ascending.
func (l Layout) ConditionIndices() ([]int, error) {
	entries, err := os.ReadDir(l.Root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}
	var out []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, ok := strings.CutPrefix(e.Name(), condDirPrefix)
		if !ok {
			continue
		}
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 {
			continue
		}
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

// FinalStates counts the conditions 0, 1, ... that have a final state,
// stopping at the first gap.
func (l Layout) FinalStates(limit int) int {
	n := 0
	for n < limit {
		if _, err := os.Stat(l.FinalState(n)); err != nil {
			break
		}
		n++
	}
	return n
}
