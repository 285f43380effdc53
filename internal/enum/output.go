package enum

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type entryJSON struct {
	Score           float64            `json:"score"`
	Name            string             `json:"name,omitempty"`
	IsNew           bool               `json:"is_new"`
	Saved           bool               `json:"saved"`
	Supercell       string             `json:"supercell"`
	Dims            [3]int             `json:"dims"`
	Occupation      []int              `json:"occupation"`
	IsPrimitive     bool               `json:"is_primitive"`
	FormationEnergy float64            `json:"formation_energy"`
	PotentialEnergy float64            `json:"potential_energy"`
	CompN           map[string]float64 `json:"comp_n"`
	Fingerprint     string             `json:"fingerprint"`
}

// WriteOutput writes the archive, best first, to path. Files ending in
// .csv are written as a table, anything else as JSON.
func (a *Archive) WriteOutput(path string) error {
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		data, err = a.csvOutput()
	} else {
		data, err = a.jsonOutput()
	}
	if err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	a.log.Info("wrote archive", "path", path, "configurations", len(a.entries))
	return nil
}

func (a *Archive) jsonOutput() ([]byte, error) {
	out := make([]entryJSON, 0, len(a.entries))
	for _, e := range a.entries {
		species := e.Config.Supercell.Prim().Species
		comp := make(map[string]float64, len(species))
		for i, s := range species {
			comp[s] = e.CompN[i]
		}
		out = append(out, entryJSON{
			Score:           e.Score,
			Name:            e.Name,
			IsNew:           e.IsNew,
			Saved:           e.Saved,
			Supercell:       e.Config.Supercell.Name(),
			Dims:            e.Config.Supercell.Dims(),
			Occupation:      e.Config.Occ,
			IsPrimitive:     e.IsPrimitive,
			FormationEnergy: e.FormationEnergy,
			PotentialEnergy: e.PotentialEnergy,
			CompN:           comp,
			Fingerprint:     e.Fingerprint,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (a *Archive) csvOutput() ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	header := []string{"score", "name", "is_new", "supercell", "is_primitive", "formation_energy", "potential_energy"}
	var species []string
	if len(a.entries) > 0 {
		species = a.entries[0].Config.Supercell.Prim().Species
	}
	for _, s := range species {
		header = append(header, "comp_n("+s+")")
	}
	header = append(header, "fingerprint")
	if err := w.Write(header); err != nil {
		return nil, err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', 12, 64) }
	for _, e := range a.entries {
		rec := []string{
			f(e.Score), e.Name, strconv.FormatBool(e.IsNew), e.Config.Supercell.Name(),
			strconv.FormatBool(e.IsPrimitive), f(e.FormationEnergy), f(e.PotentialEnergy),
		}
		for _, c := range e.CompN {
			rec = append(rec, f(c))
		}
		rec = append(rec, e.Fingerprint)
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return []byte(b.String()), w.Error()
}
