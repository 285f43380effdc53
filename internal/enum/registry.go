package enum

import (
	"fmt"
	"slices"
	"strings"

	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

// Properties is what the archive reads from the running ensemble.
type Properties interface {
	Observation(name string) (float64, bool)
	// Live returns the current configuration; the archive copies it.
	Live() *lattice.Configuration
	CompN() []float64
}

// CheckFunc decides whether the current configuration should be considered
// for insertion. fp is the fingerprint of its canonical form.
type CheckFunc func(a *Archive, c *lattice.Configuration, fp string) bool

var checks = map[string]CheckFunc{
	"always": func(*Archive, *lattice.Configuration, string) bool { return true },
	"is_primitive": func(_ *Archive, c *lattice.Configuration, _ string) bool {
		return lattice.IsPrimitive(c)
	},
	"is_new": func(a *Archive, _ *lattice.Configuration, fp string) bool {
		_, excluded := a.excluded[fp]
		_, held := a.byFP[fp]
		return !excluded && !held
	},
}

// CheckNames lists the registered checks.
func CheckNames() []string {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Metric scores a configuration from an ensemble observation, optionally
// negated with a leading "-" so that larger values rank better.
type Metric struct {
	Name   string
	negate bool
	obs    string
}

// ParseMetric validates a metric against the ensemble's observation names.
func ParseMetric(s string, observations []string) (Metric, error) {
	m := Metric{Name: s, obs: s}
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		m.negate, m.obs = true, rest
	}
	if !slices.Contains(observations, m.obs) {
		return Metric{}, fmt.Errorf("unknown enumeration metric %q", s)
	}
	return m, nil
}

// Score evaluates the metric.
func (m Metric) Score(p Properties) float64 {
	v, ok := p.Observation(m.obs)
	if !ok {
		panic(fmt.Sprintf("enum: observation %q disappeared", m.obs))
	}
	if m.negate {
		return -v
	}
	return v
}
