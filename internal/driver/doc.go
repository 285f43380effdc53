// Package driver sweeps an ensemble over an ordered list of conditions.
//
// For each condition the driver writes a directory under the output root
// holding the conditions, the initial and final states, optional
// equilibration states, sampled observations and the enumeration archive.
// One row per finished condition is appended to results.json and/or
// results.csv at the root.
//
// The persisted artifacts are the only state carried between invocations.
// On start the driver checks that the persisted conditions still match the
// requested list, finds the first condition without both a final state and
// a results row, drops any results rows past it, and continues from there.
// A campaign that is already complete performs no steps and writes nothing.
package driver
