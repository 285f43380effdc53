package monte

import "slices"

// SampleTime records when a sample was taken.
type SampleTime struct {
	Pass int
	Step int
}

// SampleBuffer is an append-only, per-property record of observations taken
// at sampling instants.
type SampleBuffer struct {
	names []string
	data  map[string][]float64
	times []SampleTime
}

// NewSampleBuffer creates a buffer for the named properties, in order.
func NewSampleBuffer(names ...string) *SampleBuffer {
	b := &SampleBuffer{names: slices.Clone(names), data: make(map[string][]float64, len(names))}
	for _, n := range names {
		b.data[n] = nil
	}
	return b
}

// Record appends one observation of every property. values must follow the
// buffer's name order.
func (b *SampleBuffer) Record(t SampleTime, values []float64) {
	if len(values) != len(b.names) {
		panic("monte: sample has wrong number of properties")
	}
	for i, n := range b.names {
		b.data[n] = append(b.data[n], values[i])
	}
	b.times = append(b.times, t)
}

// Names returns the property names in order.
func (b *SampleBuffer) Names() []string { return b.names }

// Len returns the number of samples.
func (b *SampleBuffer) Len() int { return len(b.times) }

// Values returns the observations of one property. The slice must not be
// modified.
func (b *SampleBuffer) Values(name string) []float64 { return b.data[name] }

// Times returns when each sample was taken.
func (b *SampleBuffer) Times() []SampleTime { return b.times }

// Clear drops every observation.
func (b *SampleBuffer) Clear() {
	for n := range b.data {
		b.data[n] = nil
	}
	b.times = nil
}
