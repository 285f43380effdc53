package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationFingerprint_Stable(t *testing.T) {
	dims := [3]int{2, 2, 1}
	a, err := ConfigurationFingerprint(dims, []int{0, 1, 1, 0})
	require.NoError(t, err)
	b, err := ConfigurationFingerprint(dims, []int{0, 1, 1, 0})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestConfigurationFingerprint_DistinguishesInputs(t *testing.T) {
	base := MustConfigurationFingerprint([3]int{4, 1, 1}, []int{0, 1, 1, 0})

	assert.NotEqual(t, base, MustConfigurationFingerprint([3]int{4, 1, 1}, []int{1, 0, 1, 0}))
	assert.NotEqual(t, base, MustConfigurationFingerprint([3]int{2, 2, 1}, []int{0, 1, 1, 0}))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"dims":[1,1,1]}`)
	assert.NotEqual(t,
		hashWithDomain(DomainConfiguration, data),
		hashWithDomain(DomainSupercell, data),
	)
}

func TestSupercellFingerprint(t *testing.T) {
	a, err := SupercellFingerprint([3]int{3, 3, 1}, [][]string{{"A", "B"}})
	require.NoError(t, err)
	b, err := SupercellFingerprint([3]int{3, 3, 1}, [][]string{{"A", "C"}})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
