package conditions

import "fmt"

// Mode selects how the list of conditions is built.
type Mode string

const (
	Single      Mode = "single"
	Custom      Mode = "custom"
	Incremental Mode = "incremental"
)

// Plan carries the inputs for each drive mode; only those relevant to Mode
// are read.
type Plan struct {
	Mode    Mode
	Initial Canonical
	Final   Canonical
	Incr    Canonical
	List    []Canonical
}

// Build returns the ordered list of conditions described by p.
func (p Plan) Build() ([]Canonical, error) {
	switch p.Mode {
	case Single:
		return []Canonical{p.Initial}, nil
	case Custom:
		if len(p.List) == 0 {
			return nil, fmt.Errorf("custom conditions list is empty")
		}
		return append([]Canonical(nil), p.List...), nil
	case Incremental:
		n, err := Increments(p.Initial, p.Final, p.Incr)
		if err != nil {
			return nil, err
		}
		out := make([]Canonical, n)
		for i := range out {
			c, err := p.Initial.Add(p.Incr.Scale(float64(i)))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown drive mode %q", p.Mode)
	}
}
