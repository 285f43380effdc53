// Package store provides the SQLite-backed permanent configuration store.
//
// The store holds:
//   - Supercells: one row per supercell shape, named SCEL{V}_{D0}_{D1}_{D2}_0_0_0
//   - Configurations: canonical occupations, unique on content fingerprint,
//     named "<supercell>/<index>" in insertion order
//   - Runs: one row per driver invocation, keyed by a UUIDv7
//   - Config sources: which run and condition produced a configuration
//
// Writes use ON CONFLICT DO NOTHING so that saving a configuration twice is
// a no-op that returns the existing record.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints are computed in internal/ident from RFC 8785 canonical JSON
// and SHA-256 with domain separation.
package store
