// Package ident computes content-addressed identity for lattice configurations.
//
// Fingerprints are the deduplication key of the permanent configuration store
// and of the enumeration archive's exclusion set. They are computed from
// RFC 8785 canonical JSON with SHA-256 and domain separation:
//
//	SHA256(domain + 0x00 + canonical_json)
//
// Canonical JSON here forbids floats: fingerprints are taken over integer
// occupations and supercell dimensions only, so two runs on different
// machines always agree.
package ident
