package monte

// SampleMode selects whether the sample period counts passes or steps.
type SampleMode string

const (
	ByPass SampleMode = "pass"
	ByStep SampleMode = "step"
)

// Limits are the optional bounds on a run. A zero value means unset.
//
// In fixed-length runs the N_pass/N_step/N_sample settings become the
// maximums and no minimums are set.
type Limits struct {
	MinPass, MaxPass     int
	MinStep, MaxStep     int
	MinSample, MaxSample int
}

func (l Limits) hasMax() bool {
	return l.MaxPass > 0 || l.MaxStep > 0 || l.MaxSample > 0
}

// Counter tracks progress through one run.
//
// step counts steps within the current pass and is reset to 0 exactly when
// it reaches stepsPerPass, incrementing pass.
type Counter struct {
	stepsPerPass int
	mode         SampleMode
	period       int
	limits       Limits

	pass    int
	step    int
	samples int
}

// NewCounter validates the configuration and returns a fresh counter.
func NewCounter(stepsPerPass int, mode SampleMode, period int, limits Limits) (*Counter, error) {
	c := &Counter{stepsPerPass: stepsPerPass, mode: mode, period: period, limits: limits}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the counter configuration before any step is taken.
//
// The run stops at the first maximum reached, so every minimum must be
// reachable by then. Both sides are compared in total steps.
func (c *Counter) Validate() error {
	if c.stepsPerPass < 1 {
		return Errorf(ErrCodeInvalidSettings, "steps per pass must be >= 1, got %d", c.stepsPerPass)
	}
	if c.mode != ByPass && c.mode != ByStep {
		return Errorf(ErrCodeInvalidSettings, "unknown sample mode %q", c.mode).ForSetting("data/sample_by")
	}
	if c.period < 1 {
		return Errorf(ErrCodeInvalidSettings, "sample period must be >= 1, got %d", c.period).ForSetting("data/sample_period")
	}
	l := c.limits
	for _, v := range []int{l.MinPass, l.MaxPass, l.MinStep, l.MaxStep, l.MinSample, l.MaxSample} {
		if v < 0 {
			return Errorf(ErrCodeInvalidSettings, "pass, step and sample bounds must be non-negative")
		}
	}
	if !l.hasMax() {
		return nil
	}
	allowed := -1
	limit := func(steps int) {
		if allowed < 0 || steps < allowed {
			allowed = steps
		}
	}
	if l.MaxPass > 0 {
		limit(l.MaxPass * c.stepsPerPass)
	}
	if l.MaxStep > 0 {
		limit(l.MaxStep)
	}
	if l.MaxSample > 0 {
		limit(l.MaxSample * c.stepsPerSample())
	}
	required := max(l.MinPass*c.stepsPerPass, l.MinStep, l.MinSample*c.stepsPerSample())
	if required > allowed {
		return Errorf(ErrCodeConflictingBounds,
			"minimum passes, steps or samples need %d steps but a maximum stops the run after %d", required, allowed)
	}
	return nil
}

func (c *Counter) stepsPerSample() int {
	if c.mode == ByPass {
		return c.period * c.stepsPerPass
	}
	return c.period
}

// Reset returns the counter to pass 0, step 0, no samples.
func (c *Counter) Reset() {
	c.pass, c.step, c.samples = 0, 0, 0
}

// Advance counts one step.
func (c *Counter) Advance() {
	c.step++
	if c.step == c.stepsPerPass {
		c.step = 0
		c.pass++
	}
}

// Pass returns the number of completed passes.
func (c *Counter) Pass() int { return c.pass }

// Step returns the step within the current pass.
func (c *Counter) Step() int { return c.step }

// Samples returns the number of samples recorded.
func (c *Counter) Samples() int { return c.samples }

// StepsPerPass returns the number of steps in one pass.
func (c *Counter) StepsPerPass() int { return c.stepsPerPass }

// TotalSteps returns the number of steps taken in the run.
func (c *Counter) TotalSteps() int { return c.pass*c.stepsPerPass + c.step }

// IsSamplingInstant reports whether a sample is due after the latest step.
func (c *Counter) IsSamplingInstant() bool {
	if c.mode == ByPass {
		return c.step == 0 && c.pass > 0 && c.pass%c.period == 0
	}
	t := c.TotalSteps()
	return t > 0 && t%c.period == 0
}

// RecordSample counts one sample.
func (c *Counter) RecordSample() { c.samples++ }

// MinimumsMet reports whether every configured minimum has been reached.
func (c *Counter) MinimumsMet() bool {
	l := c.limits
	return c.pass >= l.MinPass && c.TotalSteps() >= l.MinStep && c.samples >= l.MinSample
}

// MaximumsMet reports whether any configured maximum has been reached.
func (c *Counter) MaximumsMet() bool {
	l := c.limits
	return (l.MaxPass > 0 && c.pass >= l.MaxPass) ||
		(l.MaxStep > 0 && c.TotalSteps() >= l.MaxStep) ||
		(l.MaxSample > 0 && c.samples >= l.MaxSample)
}

// IsComplete reports whether every configured maximum has been reached.
// A counter with no maximums is never complete.
func (c *Counter) IsComplete() bool {
	l := c.limits
	if !l.hasMax() {
		return false
	}
	return (l.MaxPass == 0 || c.pass >= l.MaxPass) &&
		(l.MaxStep == 0 || c.TotalSteps() >= l.MaxStep) &&
		(l.MaxSample == 0 || c.samples >= l.MaxSample)
}

// Conflict returns a CONFLICTING_BOUNDS error when the run has hit a
// maximum without meeting its minimums.
func (c *Counter) Conflict() error {
	if c.MinimumsMet() || !c.MaximumsMet() {
		return nil
	}
	return Errorf(ErrCodeConflictingBounds,
		"minimum passes, steps or samples not met but a maximum is met (pass=%d step=%d samples=%d)",
		c.pass, c.step, c.samples)
}
