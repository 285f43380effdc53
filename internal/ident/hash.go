package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainConfiguration = "casm/configuration/v1"
	DomainSupercell     = "casm/supercell/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigurationFingerprint identifies a configuration by its supercell
// dimensions and occupation vector. Callers canonicalize the occupation
// first when symmetry-equivalent configurations must collide.
func ConfigurationFingerprint(dims [3]int, occ []int) (string, error) {
	obj := map[string]any{
		"dims":       []int{dims[0], dims[1], dims[2]},
		"occupation": occ,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ConfigurationFingerprint: %w", err)
	}
	return hashWithDomain(DomainConfiguration, canonical), nil
}

// SupercellFingerprint identifies a supercell by its dimensions and the
// occupant names allowed on each sublattice.
func SupercellFingerprint(dims [3]int, occupants [][]string) (string, error) {
	subs := make([]any, len(occupants))
	for i, o := range occupants {
		subs[i] = o
	}
	obj := map[string]any{
		"dims":        []int{dims[0], dims[1], dims[2]},
		"sublattices": subs,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SupercellFingerprint: %w", err)
	}
	return hashWithDomain(DomainSupercell, canonical), nil
}

// MustConfigurationFingerprint is like ConfigurationFingerprint but panics on error.
// Integer inputs cannot fail to marshal, so this is safe in hot paths.
func MustConfigurationFingerprint(dims [3]int, occ []int) string {
	fp, err := ConfigurationFingerprint(dims, occ)
	if err != nil {
		panic(err)
	}
	return fp
}
