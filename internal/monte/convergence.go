package monte

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Stats summarizes one property's samples.
type Stats struct {
	// Equilibrated is false when no equilibration point was found; the
	// remaining fields are then computed over every sample.
	Equilibrated bool
	EquilSamples int
	AvgSamples   int
	Mean         float64
	Variance     float64
	// Precision is the half-width of the confidence interval of Mean.
	Precision float64
	Converged bool
}

// Equilibration finds the first sample index after which the data look
// stationary: the means of the first and second halves of the remaining
// samples agree within precision. Candidate starts are tried in strides of
// n/20 up to the midpoint.
func Equilibration(x []float64, precision float64) (int, bool) {
	n := len(x)
	if n < 2 {
		return 0, false
	}
	stride := max(1, n/20)
	for start := 0; start <= n/2; start += stride {
		rest := x[start:]
		half := len(rest) / 2
		if half == 0 {
			break
		}
		a := stat.Mean(rest[:half], nil)
		b := stat.Mean(rest[half:], nil)
		if math.Abs(a-b) <= precision {
			return start, true
		}
	}
	return 0, false
}

// BatchMeans estimates the mean of x and the half-width of its confidence
// interval at the given confidence level. The samples are grouped into about
// sqrt(n) contiguous batches, so serial correlation shorter than a batch does
// not shrink the estimate. Fewer than two batches give an infinite width.
func BatchMeans(x []float64, confidence float64) (mean, halfWidth float64) {
	n := len(x)
	if n == 0 {
		return math.NaN(), math.Inf(1)
	}
	mean = stat.Mean(x, nil)
	nb := int(math.Sqrt(float64(n)))
	if nb < 2 {
		return mean, math.Inf(1)
	}
	size := n / nb
	batches := make([]float64, nb)
	for i := range batches {
		batches[i] = stat.Mean(x[i*size:(i+1)*size], nil)
	}
	se := math.Sqrt(stat.Variance(batches, nil) / float64(nb))
	z := distuv.UnitNormal.Quantile(0.5 + confidence/2)
	return mean, z * se
}

// Convergence decides when a run has sampled enough.
//
// Precision maps each property that must converge to its required
// confidence-interval half-width. Properties absent from Precision are still
// summarized by Summarize but never gate convergence.
type Convergence struct {
	Confidence  float64
	Precision   map[string]float64
	MinSamples  int
	CheckPeriod int

	next int
}

// Due reports whether a convergence check should run with n samples taken.
// Checks happen at most once every CheckPeriod new samples.
func (c *Convergence) Due(n int) bool {
	if n == 0 || n < c.next {
		return false
	}
	c.next = n + max(1, c.CheckPeriod)
	return true
}

// Reset forgets the check schedule.
func (c *Convergence) Reset() { c.next = 0 }

// Summarize computes Stats for every property in the buffer.
func (c *Convergence) Summarize(buf *SampleBuffer) map[string]Stats {
	out := make(map[string]Stats, len(buf.Names()))
	for _, name := range buf.Names() {
		out[name] = c.summarize(name, buf.Values(name))
	}
	return out
}

func (c *Convergence) summarize(name string, x []float64) Stats {
	var st Stats
	prec, required := c.Precision[name]
	start := 0
	if required {
		start, st.Equilibrated = Equilibration(x, prec)
	} else {
		st.Equilibrated = len(x) > 0
	}
	rest := x[start:]
	st.EquilSamples = start
	st.AvgSamples = len(rest)
	st.Mean, st.Precision = BatchMeans(rest, c.Confidence)
	if len(rest) > 1 {
		st.Variance = stat.PopVariance(rest, nil)
	}
	st.Converged = st.Equilibrated && (!required || st.Precision <= prec)
	return st
}

// IsConverged reports whether every required property is equilibrated and
// within precision, and at least MinSamples samples were taken.
func (c *Convergence) IsConverged(buf *SampleBuffer) bool {
	if buf.Len() < max(c.MinSamples, 1) || len(c.Precision) == 0 {
		return false
	}
	for name := range c.Precision {
		if !c.summarize(name, buf.Values(name)).Converged {
			return false
		}
	}
	return true
}
