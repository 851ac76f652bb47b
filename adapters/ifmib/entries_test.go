package ifmib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/ax-subagent/wire"
)

func TestCounter32EntryWalksIfRangeInOrder(t *testing.T) {
	u := newReadyUpdater(t)
	entry := u.Counter32Entry(wire.NewOID(1, 3, 6, 1, 2, 1, 2, 2, 1, 10), IfInOctets)

	first, ok := entry.FirstSubID()
	require.True(t, ok)
	assert.Equal(t, uint32(1), first.At(0))

	_, ok = entry.ValueAt(first)
	require.True(t, ok)

	second, ok := entry.NextSubID(first)
	require.True(t, ok)
	assert.True(t, second.Compare(first) > 0)

	third, ok := entry.NextSubID(second)
	require.True(t, ok)
	assert.True(t, third.Compare(second) > 0)

	_, ok = entry.NextSubID(third)
	assert.False(t, ok, "walk should exhaust after the last ifIndex")
}

func TestCounter64EntryUnmaskedLAGSum(t *testing.T) {
	u := newReadyUpdater(t)
	idx := indexOfName(t, u, "PortChannel1")
	entry := u.Counter64Entry(wire.NewOID(1, 3, 6, 1, 2, 1, 31, 1, 1, 1, 6), IfHCInOctets)

	val, ok := entry.ValueAt(wire.NewOID(idx))
	require.True(t, ok)
	assert.Equal(t, wire.Counter64, val.Type)
	assert.Equal(t, uint64(4294967295)+uint64(8589934591), val.Uint64)
}

func TestIfNumberEntryIsScalar(t *testing.T) {
	u := newReadyUpdater(t)
	entry := u.IfNumberEntry(wire.NewOID(1, 3, 6, 1, 2, 1, 2, 1))
	assert.True(t, entry.IsScalar())

	val, ok := entry.ValueAt(wire.OID{})
	require.True(t, ok)
	assert.Equal(t, int32(3), val.Int32)
}
