package pwsid

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AcceptedShapes(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"UTAH001234", "UTAH001234"},
		{"utah1234", "UTAH001234"},
		{"Utah001234", "UTAH001234"},
		{"uTaH0001234", "UTAH001234"},
		{"1234", "UTAH001234"},
		{"001234", "UTAH001234"},
		{"  utah1234  ", "UTAH001234"},
		{"UTAH000000", "UTAH000000"},
		{"0", "UTAH000000"},
		// Digit runs wider than the pad width pass through unpadded.
		{"utah1234567", "UTAH1234567"},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.raw)
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.expected, got, "raw=%q", tt.raw)
	}
}

func TestNormalize_Rejected(t *testing.T) {
	rejected := []string{
		"",
		"   ",
		"AB1234",
		"utah12a4",
		"utah",
		"UTAH-1234",
		"12 34",
		"utah1234z",
	}

	for _, raw := range rejected {
		_, err := Normalize(raw)
		require.Error(t, err, "raw=%q", raw)
		assert.True(t, eris.Is(err, ErrInvalidIdentifier), "raw=%q", raw)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	canonical, err := Normalize("utah42")
	require.NoError(t, err)

	again, err := Normalize(canonical)
	require.NoError(t, err)
	assert.Equal(t, canonical, again)
}

func TestNormalize_CustomFormat(t *testing.T) {
	f := Format{Prefix: "UT", Digits: 4}

	got, err := f.Normalize("ut07")
	require.NoError(t, err)
	assert.Equal(t, "UT0007", got)

	_, err = f.Normalize("utah07")
	assert.Error(t, err)
}
