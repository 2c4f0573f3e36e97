package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("sk_live_123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "enc:"))
	assert.NotContains(t, sealed, "sk_live_123")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_123", opened)

	plain, err := s.Open("legacy-plain-value")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plain-value", plain)
}

func TestSealerRejectsTampering(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)
	sealed, err := s.Seal("secret")
	require.NoError(t, err)

	other, err := NewSealer(strings.Repeat("ab", 32))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	require.Error(t, err)

	_, err = s.Open("enc:AAAA")
	require.Error(t, err)
}

func TestNilSealer(t *testing.T) {
	s, err := NewSealer("  ")
	require.NoError(t, err)
	assert.Nil(t, s)

	v, err := s.Seal("secret")
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	_, err = s.Open("enc:abc")
	require.Error(t, err)

	_, err = NewSealer("too-short")
	require.Error(t, err)
}
