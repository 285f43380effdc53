package monte

import "github.com/LonxunQuantum/CASMcode/internal/lattice"

// Stepper is the Metropolis protocol of one ensemble. E is the event type;
// events are created by Propose and consumed by exactly one of Accept or
// Reject.
type Stepper[E any] interface {
	Propose() E
	Check(e E) bool
	Accept(e E)
	Reject(e E)
}

// Ensemble is what the driver needs from a concrete ensemble under
// conditions C.
type Ensemble[C any, E any] interface {
	Stepper[E]

	Conditions() C
	// SetConditions clears accumulated samples.
	SetConditions(c C) error
	// SetConfiguration replaces the configuration, recomputes every cached
	// property from scratch and clears accumulated samples.
	SetConfiguration(c *lattice.Configuration) error
	// Configuration returns an independent copy of the current configuration.
	Configuration() *lattice.Configuration

	StepsPerPass() int
	Sample(t SampleTime)
	Samples() *SampleBuffer
	MustConverge() bool
	CheckConvergenceTime() bool
	IsConverged() bool
	Results() Row
}

// Step runs one propose/check/accept-or-reject cycle and reports whether the
// event was accepted.
func Step[E any](s Stepper[E]) bool {
	e := s.Propose()
	if s.Check(e) {
		s.Accept(e)
		return true
	}
	s.Reject(e)
	return false
}
