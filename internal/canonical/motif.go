package canonical

import (
	"context"
	"fmt"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
	"github.com/LonxunQuantum/CASMcode/internal/monte"
)

// MotifKind names where the initial configuration of a run comes from.
type MotifKind string

const (
	// MotifDefault fills every site with its first allowed occupant.
	MotifDefault MotifKind = "default"
	// MotifOccupation uses an explicit occupation list.
	MotifOccupation MotifKind = "occupation"
	// MotifConfigDoF reads a state file, tiling it if it is smaller than the
	// simulation supercell.
	MotifConfigDoF MotifKind = "configdof"
	// MotifConfigName loads a named configuration from the store and tiles it.
	MotifConfigName MotifKind = "configname"
)

// Motif describes the initial configuration of the first run.
type Motif struct {
	Kind       MotifKind
	Occupation []int
	Path       string
	Name       string
}

// ConfigSource looks up stored configurations by name.
type ConfigSource interface {
	LookupConfiguration(ctx context.Context, name string) (lattice.State, error)
}

// Build materializes the motif on scel.
func (m Motif) Build(ctx context.Context, scel *lattice.Supercell, src ConfigSource) (*lattice.Configuration, error) {
	switch m.Kind {
	case MotifDefault, "":
		return lattice.NewConfiguration(scel), nil
	case MotifOccupation:
		c, err := lattice.FromOccupation(scel, m.Occupation)
		if err != nil {
			return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "motif occupation").
				ForSetting("driver/motif/occupation").Wrap(err)
		}
		return c, nil
	case MotifConfigDoF:
		st, err := lattice.ReadState(m.Path)
		if err != nil {
			return nil, monte.Errorf(monte.ErrCodeMalformedSnapshot, "motif state").InFile(m.Path).Wrap(err)
		}
		c, err := tileState(st, scel)
		if err != nil {
			return nil, monte.Errorf(monte.ErrCodeMalformedSnapshot, "motif state").InFile(m.Path).Wrap(err)
		}
		return c, nil
	case MotifConfigName:
		if src == nil {
			return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "motif %q requires a configuration store", m.Name).
				ForSetting("driver/motif/configname")
		}
		st, err := src.LookupConfiguration(ctx, m.Name)
		if err != nil {
			return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "motif %q", m.Name).
				ForSetting("driver/motif/configname").Wrap(err)
		}
		c, err := tileState(st, scel)
		if err != nil {
			return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "motif %q", m.Name).
				ForSetting("driver/motif/configname").Wrap(err)
		}
		return c, nil
	default:
		return nil, monte.Errorf(monte.ErrCodeInvalidSettings, "unknown motif kind %q", m.Kind).
			ForSetting("driver/motif")
	}
}

func tileState(st lattice.State, scel *lattice.Supercell) (*lattice.Configuration, error) {
	if st.Dims == scel.Dims() {
		return st.Configuration(scel)
	}
	small, err := lattice.NewSupercell(scel.Prim(), st.Dims)
	if err != nil {
		return nil, fmt.Errorf("motif supercell: %w", err)
	}
	c, err := st.Configuration(small)
	if err != nil {
		return nil, err
	}
	return lattice.Tile(c, scel)
}
