package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		IntegerValue(-7),
		OctetStringValue([]byte("hello")),
		OctetStringValue([]byte{}),
		OctetStringValue([]byte("exactly4")),
		NullValue(),
		ObjectIdentifierValue(NewOID(1, 3, 6, 1, 2, 1, 4, 22, 1, 2, 5)),
		Counter32Value(0xffffffff),
		Gauge32Value(100),
		TimeTicksValue(123456),
		OpaqueValue([]byte{0x01, 0x02, 0x03}),
		Counter64Value(0x1_ffff_ffff),
		NoSuchObjectValue(),
		NoSuchInstanceValue(),
		EndOfMibViewValue(),
	}

	for _, networkByteOrder := range []bool{true, false} {
		for _, v := range values {
			t.Run(v.Type.String(), func(t *testing.T) {
				payload, err := encodePayload(v, networkByteOrder)
				require.NoError(t, err)

				got, n, err := decodePayload(v.Type, payload, networkByteOrder)
				require.NoError(t, err)
				assert.Equal(t, len(payload), n)
				assert.Equal(t, v, got)
			})
		}
	}
}

func TestCounter32Masking(t *testing.T) {
	var wide uint64 = 0x1_ffff_ffff
	v := Counter32Value(uint32(wide))
	assert.Equal(t, uint32(0xffffffff), v.Uint32)
}

func TestIPAddressValueRejectsWrongLength(t *testing.T) {
	_, err := IPAddressValue([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrEncodeInvalid)

	v, err := IPAddressValue([]byte{10, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, IPAddress, v.Type)
	assert.Equal(t, []byte{10, 0, 0, 1}, v.Bytes)
}

func TestOctetStringPadding(t *testing.T) {
	cases := map[string]int{
		"":     4,
		"a":    8,
		"ab":   8,
		"abc":  8,
		"abcd": 8,
		"abcde": 12,
	}
	for s, wantLen := range cases {
		enc := encodeOctets([]byte(s), byteOrder(true))
		assert.Equal(t, wantLen, len(enc), "string %q", s)
	}
}

func TestUnknownValueTypeDecodeError(t *testing.T) {
	_, _, err := decodePayload(ValueType(9999), []byte{0, 0, 0, 0}, true)
	assert.ErrorIs(t, err, ErrUnknownValueType)
}
