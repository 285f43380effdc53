// Package canonical implements the canonical-ensemble Metropolis event
// engine.
//
// The Engine owns the live configuration and the cached intensive
// properties (correlations, formation energy, composition). Each step
// proposes a swap of two sites holding different occupants on the same
// sublattice, computes the change in correlations from the clusters touching
// those two sites only, and commits it by adding the deltas to the cached
// values. Full recomputation happens only when the configuration is replaced.
//
// Energies are per primitive cell; the Metropolis test scales the change by
// the supercell volume.
package canonical
