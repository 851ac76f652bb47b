package mib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/ax-subagent/wire"
)

func TestAddEntryRegistersPrebuiltEntry(t *testing.T) {
	prefix := wire.ParseOIDMust("1.3.6.1.2.1.99")
	entry := NewScalarEntry(prefix, func() (wire.Value, bool) {
		return wire.IntegerValue(7), true
	})

	tbl, err := NewBuilder().AddEntry(entry).Build()
	require.NoError(t, err)

	got := tbl.Get(wire.SearchRange{Start: prefix})
	assert.Equal(t, int32(7), got.Data.Int32)
}

func TestAddEntryDuplicatePrefixIsRejected(t *testing.T) {
	prefix := wire.ParseOIDMust("1.3.6.1.2.1.99")
	producer := func() (wire.Value, bool) { return wire.IntegerValue(1), true }

	_, err := NewBuilder().
		AddEntry(NewScalarEntry(prefix, producer)).
		AddScalar(prefix, producer).
		Build()
	assert.Error(t, err)
}
