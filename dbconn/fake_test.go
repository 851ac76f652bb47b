package dbconn

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeConnectRequiresSeededDB(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	err := f.Connect(ctx, "COUNTERS_DB")
	assert.Error(t, err)

	f.SeedString("COUNTERS_DB", "COUNTERS:oid:0x1", map[string]string{"SAI_PORT_STAT_IF_IN_OCTETS": "100"})
	require.NoError(t, f.Connect(ctx, "COUNTERS_DB"))
}

func TestFakeGetAll(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	f.SeedString("COUNTERS_DB", "COUNTERS:oid:0x1", map[string]string{"SAI_PORT_STAT_IF_IN_OCTETS": "100"})

	fields, ok, err := f.GetAll(ctx, "COUNTERS:oid:0x1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("100"), fields["SAI_PORT_STAT_IF_IN_OCTETS"])

	_, ok, err = f.GetAll(ctx, "COUNTERS:oid:0x2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFakeKeysGlob(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	f.SeedString("ASIC_DB", "ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:1", map[string]string{"SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID": "oid:0x3a"})
	f.SeedString("ASIC_DB", "ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:2", map[string]string{"SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID": "oid:0x3b"})
	f.SeedString("ASIC_DB", "ASIC_STATE:SAI_OBJECT_TYPE_PORT:1", map[string]string{"SAI_PORT_ATTR_ADMIN_STATE": "true"})

	keys, err := f.Keys(ctx, "ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:1", "ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:2"}, keys)
}
