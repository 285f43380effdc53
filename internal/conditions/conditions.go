// Package conditions defines canonical-ensemble thermodynamic conditions
// and the ordered lists a driver sweeps over.
package conditions

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// KB is the Boltzmann constant in eV/K.
const KB = 8.6173303e-5

// DefaultTolerance is used when conditions are compared without an explicit
// tolerance.
const DefaultTolerance = 1e-6

// Canonical holds the temperature and the fixed composition (species count
// per primitive cell) of one canonical Monte Carlo run.
type Canonical struct {
	Temperature float64   `json:"temperature"`
	CompN       []float64 `json:"comp_n"`
	Tolerance   float64   `json:"tolerance"`
}

// New returns conditions with the default tolerance.
func New(temperature float64, compN []float64) Canonical {
	return Canonical{Temperature: temperature, CompN: append([]float64(nil), compN...), Tolerance: DefaultTolerance}
}

func (c Canonical) tol() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return DefaultTolerance
}

// Beta returns 1/(kB T); +Inf at T = 0.
func (c Canonical) Beta() float64 {
	if c.Temperature == 0 {
		return math.Inf(1)
	}
	return 1 / (KB * c.Temperature)
}

// Add returns c + o component-wise, keeping c's tolerance.
func (c Canonical) Add(o Canonical) (Canonical, error) {
	return c.combine(o, 1)
}

// Sub returns c - o component-wise, keeping c's tolerance.
func (c Canonical) Sub(o Canonical) (Canonical, error) {
	return c.combine(o, -1)
}

// Scale multiplies every component by f.
func (c Canonical) Scale(f float64) Canonical {
	out := Canonical{Temperature: c.Temperature * f, CompN: make([]float64, len(c.CompN)), Tolerance: c.Tolerance}
	for i, v := range c.CompN {
		out.CompN[i] = v * f
	}
	return out
}

func (c Canonical) combine(o Canonical, sign float64) (Canonical, error) {
	if len(c.CompN) != len(o.CompN) {
		return Canonical{}, fmt.Errorf("composition length mismatch: %d vs %d", len(c.CompN), len(o.CompN))
	}
	out := Canonical{
		Temperature: c.Temperature + sign*o.Temperature,
		CompN:       make([]float64, len(c.CompN)),
		Tolerance:   c.Tolerance,
	}
	for i := range c.CompN {
		out.CompN[i] = c.CompN[i] + sign*o.CompN[i]
	}
	return out, nil
}

// Equal compares within c's tolerance.
func (c Canonical) Equal(o Canonical) bool {
	tol := c.tol()
	if math.Abs(c.Temperature-o.Temperature) > tol || len(c.CompN) != len(o.CompN) {
		return false
	}
	for i := range c.CompN {
		if math.Abs(c.CompN[i]-o.CompN[i]) > tol {
			return false
		}
	}
	return true
}

// Increments returns how many conditions an incremental sweep from init to
// final by incr contains, including both ends. Every non-zero component of
// incr must imply the same whole number of increments.
func Increments(init, final, incr Canonical) (int, error) {
	span, err := final.Sub(init)
	if err != nil {
		return 0, err
	}
	if len(incr.CompN) != len(span.CompN) {
		return 0, fmt.Errorf("incremental conditions: composition length mismatch")
	}
	tol := init.tol()
	steps := -1.0
	check := func(name string, d, inc float64) error {
		if math.Abs(inc) <= tol {
			if math.Abs(d) > tol {
				return fmt.Errorf("incremental conditions: %s changes by %g but its increment is zero", name, d)
			}
			return nil
		}
		s := d / inc
		if s < -tol {
			return fmt.Errorf("incremental conditions: %s increment %g moves away from final value", name, inc)
		}
		if math.Abs(s-math.Round(s)) > 1e-6 {
			return fmt.Errorf("incremental conditions: %s span %g is not a whole multiple of %g", name, d, inc)
		}
		if steps >= 0 && math.Round(s) != steps {
			return fmt.Errorf("incremental conditions: %s implies %d increments, expected %d",
				name, int(math.Round(s)), int(steps))
		}
		steps = math.Round(s)
		return nil
	}
	if err := check("temperature", span.Temperature, incr.Temperature); err != nil {
		return 0, err
	}
	for i := range span.CompN {
		if err := check(fmt.Sprintf("comp_n[%d]", i), span.CompN[i], incr.CompN[i]); err != nil {
			return 0, err
		}
	}
	if steps < 0 {
		return 1, nil
	}
	return int(steps) + 1, nil
}

// String renders the conditions for log messages.
func (c Canonical) String() string {
	parts := make([]string, len(c.CompN))
	for i, v := range c.CompN {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprintf("T=%g comp_n=[%s]", c.Temperature, strings.Join(parts, ","))
}

// Write stores c as conditions.json.
func Write(path string, c Canonical) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write conditions %s: %w", path, err)
	}
	return nil
}

// Read loads a conditions.json file.
func Read(path string) (Canonical, error) {
	var c Canonical
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read conditions %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse conditions %s: %w", path, err)
	}
	return c, nil
}
