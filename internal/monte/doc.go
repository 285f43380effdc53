// Package monte holds the ensemble-independent parts of a Monte Carlo run.
//
// Counter tracks passes, steps and samples against the configured
// minimum/maximum bounds and decides when a sample is taken. SampleBuffer
// accumulates observations at those instants, and Convergence decides from
// the buffer whether sampling is sufficient, using an equilibration test
// followed by a batch-means confidence interval.
//
// Ensemble is the capability interface a concrete ensemble implements so
// that a single driver loop can run it:
//
//	for !done {
//	    monte.Step(ens)     // Propose, Check, then Accept or Reject
//	    counter.Advance()
//	    if counter.IsSamplingInstant() { ... }
//	}
//
// All randomness in a run comes from the one *rand.Rand returned by NewRand.
//
// Configuration-time problems are reported as *Error values carrying a code,
// the condition index, and the file or setting involved. Corrupted state
// inside the step loop panics instead.
package monte
