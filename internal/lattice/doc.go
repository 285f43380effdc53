// Package lattice holds the configuration data model: the primitive cell's
// sublattices and allowed occupants, periodic supercells, mutable
// configurations and their immutable persisted states.
//
// Sites are indexed sublattice-major, l = b*Volume + n, where n is the unit
// cell index within the supercell. Only diagonal supercells are represented;
// the crystal structure and point-group symmetry are external collaborators.
package lattice
