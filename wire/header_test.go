package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTripBothEndiannesses(t *testing.T) {
	for _, flags := range []uint8{0, FlagNetworkByteOrder, FlagNetworkByteOrder | FlagNonDefaultContext} {
		h := Header{
			Version:       1,
			Type:          TypeGetNext,
			Flags:         flags,
			SessionID:     0xdeadbeef,
			TransactionID: 42,
			PacketID:      7,
			PayloadLength: 16,
		}
		enc := EncodeHeader(h)
		require.Len(t, enc, headerLength)

		got, err := DecodeHeader(enc)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
}

func TestDecodeHeaderShortBuffer(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestHeaderFlagAccessors(t *testing.T) {
	h := Header{Flags: FlagNetworkByteOrder | FlagNonDefaultContext}
	assert.True(t, h.NetworkByteOrder())
	assert.True(t, h.NonDefaultContext())

	h2 := Header{Flags: 0}
	assert.False(t, h2.NetworkByteOrder())
	assert.False(t, h2.NonDefaultContext())
}
