package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysByUTF16(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b":  1,
		"a":  "x",
		"aa": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","aa":true,"b":1}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(got))
}

func TestMarshalCanonical_EscapesControlCharacters(t *testing.T) {
	got, err := MarshalCanonical("a\"b\\c\n\x01")
	require.NoError(t, err)
	assert.Equal(t, `"a\"b\\c\n\u0001"`, string(got))
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	got, err := MarshalCanonical("x\u2028y")
	require.NoError(t, err)
	assert.Equal(t, "\"x\u2028y\"", string(got))
}

func TestMarshalCanonical_NFCNormalizes(t *testing.T) {
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_RejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)

	_, err = MarshalCanonical([]any{1, 2.0})
	assert.Error(t, err)
}

func TestMarshalCanonical_IntSlices(t *testing.T) {
	got, err := MarshalCanonical([]int{0, 1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, `[0,1,1,0]`, string(got))
}
