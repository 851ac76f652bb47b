package arp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/ax-subagent/dbconn"
	"github.com/vpbank/ax-subagent/mib"
	"github.com/vpbank/ax-subagent/wire"
)

func newTestNextHopUpdater(t *testing.T) (*NextHopUpdater, *dbconn.Fake) {
	t.Helper()
	fake := dbconn.NewFake()
	fake.SeedString(applDB, defaultRouteKey, map[string]string{"nexthop": "10.0.0.1,10.0.0.2"})

	u := NewNextHopUpdater(fake, nil)

	ctx := context.Background()
	require.NoError(t, u.ReinitData(ctx))
	require.NoError(t, u.UpdateData(ctx))
	return u, fake
}

func buildNextHopTable(t *testing.T, u *NextHopUpdater) *mib.Table {
	t.Helper()
	prefix := wire.ParseOIDMust(".1.3.6.1.2.1.4.21.1.7")
	entry := u.AsEntry(prefix)
	got, err := mib.NewBuilder().AddSubtree(prefix, entryIterator{entry}, entry.ValueAt).Build()
	require.NoError(t, err)
	return got
}

func TestNextHopReturnsDefaultRouteFirstHop(t *testing.T) {
	u, _ := newTestNextHopUpdater(t)
	table := buildNextHopTable(t, u)

	start := wire.ParseOIDMust(".1.3.6.1.2.1.4.21.1.7")
	got := table.GetNext(wire.SearchRange{Start: start, End: wire.NullOID()})

	want := start.Append(0, 0, 0, 0)
	assert.True(t, want.Equal(got.Name), "got %s want %s", got.Name, want)
	assert.Equal(t, wire.IPAddress, got.Data.Type)
	assert.Equal(t, []byte{10, 0, 0, 1}, got.Data.Bytes)
}

func TestNextHopIgnoresNonDefaultRoutes(t *testing.T) {
	fake := dbconn.NewFake()
	fake.SeedString(applDB, "ROUTE_TABLE:192.168.1.0/24", map[string]string{"nexthop": "10.0.0.9"})
	u := NewNextHopUpdater(fake, nil)

	ctx := context.Background()
	require.NoError(t, u.ReinitData(ctx))
	require.NoError(t, u.UpdateData(ctx))

	_, ok := u.first()
	assert.False(t, ok)
}

func TestNextHopNoSuchInstance(t *testing.T) {
	u, _ := newTestNextHopUpdater(t)
	table := buildNextHopTable(t, u)

	oid := wire.ParseOIDMust(".1.3.6.1.2.1.4.21.1.7.1.2.3.4")
	got := table.Get(wire.SearchRange{Start: oid, End: oid})
	assert.Equal(t, wire.NoSuchInstance, got.Data.Type)
}
