package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOIDCompare(t *testing.T) {
	a := NewOID(1, 3, 6, 1, 2, 1, 4)
	b := NewOID(1, 3, 6, 1, 2, 1, 4, 1)
	c := NewOID(1, 3, 6, 1, 2, 1, 4)

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(c))
	assert.True(t, a.Equal(c))
}

func TestOIDHasPrefixAndTrim(t *testing.T) {
	full := NewOID(1, 3, 6, 1, 2, 1, 4, 22, 1, 2, 5)
	prefix := NewOID(1, 3, 6, 1, 2, 1, 4, 22, 1, 2)

	require.True(t, full.HasPrefix(prefix))
	assert.Equal(t, NewOID(5), full.TrimPrefix(prefix))
	assert.False(t, prefix.HasPrefix(full))
}

func TestOIDString(t *testing.T) {
	assert.Equal(t, ".1.3.6.1.2.1.4", NewOID(1, 3, 6, 1, 2, 1, 4).String())
	assert.Equal(t, ".", NullOID().String())
}

func TestEncodeDecodeOIDRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		oid     OID
		include bool
	}{
		{"null", NullOID(), false},
		{"short-no-prefix", NewOID(1, 2, 3), true},
		{"internet-prefix-compressible", NewOID(1, 3, 6, 1, 2, 1, 4, 22, 1, 2), false},
		{"internet-prefix-boundary-255", NewOID(1, 3, 6, 1, 255, 9, 9), true},
		{"internet-prefix-too-large-not-compressed", NewOID(1, 3, 6, 1, 256, 9, 9), false},
		{"not-internet-prefix", NewOID(2, 3, 6, 1, 5), false},
		{"long", NewOID(1, 3, 6, 1, 4, 1, 8072, 2, 2, 1, 1, 9, 1)},
	}

	for _, networkByteOrder := range []bool{true, false} {
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				enc := EncodeOID(tc.oid, tc.include, networkByteOrder)
				got, include, n, err := DecodeOID(enc, networkByteOrder)
				require.NoError(t, err)
				assert.Equal(t, len(enc), n)
				assert.Equal(t, tc.include, include)
				assert.True(t, tc.oid.Equal(got), "expected %v got %v", tc.oid, got)
			})
		}
	}
}

func TestParseOID(t *testing.T) {
	got, err := ParseOID(".1.3.6.1.2.1.4")
	require.NoError(t, err)
	assert.True(t, got.Equal(NewOID(1, 3, 6, 1, 2, 1, 4)))

	got2, err := ParseOID("1.3.6.1.2.1.4")
	require.NoError(t, err)
	assert.True(t, got2.Equal(NewOID(1, 3, 6, 1, 2, 1, 4)))

	_, err = ParseOID("1..3")
	assert.Error(t, err)

	_, err = ParseOID("1.3.x")
	assert.Error(t, err)
}

func TestDecodeOIDShortBuffer(t *testing.T) {
	_, _, _, err := DecodeOID([]byte{1, 2}, true)
	assert.ErrorIs(t, err, ErrShortBuffer)

	enc := EncodeOID(NewOID(1, 2, 3, 4, 5), false, true)
	_, _, _, err = DecodeOID(enc[:len(enc)-1], true)
	assert.ErrorIs(t, err, ErrShortBuffer)
}
