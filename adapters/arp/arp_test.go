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

func newTestUpdater(t *testing.T) (*Updater, *dbconn.Fake) {
	t.Helper()
	fake := dbconn.NewFake()
	fake.SeedString(applDB, "NEIGH_TABLE:Ethernet37:10.0.0.19", map[string]string{"neigh": "52:54:00:04:52:5d"})
	fake.SeedString(applDB, "NEIGH_TABLE:Ethernet38:10.0.0.20", map[string]string{"neigh": "52:54:00:04:52:5e"})

	resolve := IndexResolverFromNumericSuffix("Ethernet")
	u := New(fake, resolve, nil)

	ctx := context.Background()
	require.NoError(t, u.ReinitData(ctx))
	require.NoError(t, u.UpdateData(ctx))
	return u, fake
}

func buildTable(t *testing.T, u *Updater) *mib.Table {
	t.Helper()
	prefix := wire.ParseOIDMust(".1.3.6.1.2.1.4.22.1.2")
	entry := u.AsEntry(prefix)
	got, err := mib.NewBuilder().AddSubtree(prefix, entryIterator{entry}, entry.ValueAt).Build()
	require.NoError(t, err)
	return got
}

// entryIterator re-exposes an mib.Entry's First/Next as a standalone
// mib.SubtreeIterator for table construction in this test file.
type entryIterator struct{ e mib.Entry }

func (it entryIterator) First() (wire.OID, bool)            { return it.e.FirstSubID() }
func (it entryIterator) Next(cur wire.OID) (wire.OID, bool) { return it.e.NextSubID(cur) }

func TestArpWalkReturnsFirstRow(t *testing.T) {
	u, _ := newTestUpdater(t)
	table := buildTable(t, u)

	start := wire.ParseOIDMust(".1.3.6.1.2.1.4.22.1.2")
	got := table.GetNext(wire.SearchRange{Start: start, End: wire.NullOID()})

	want := start.Append(37, 10, 0, 0, 19)
	assert.True(t, want.Equal(got.Name), "got %s want %s", got.Name, want)
	assert.Equal(t, []byte{0x52, 0x54, 0x00, 0x04, 0x52, 0x5d}, got.Data.Bytes)
}

func TestArpExactMatchInclude(t *testing.T) {
	u, _ := newTestUpdater(t)
	table := buildTable(t, u)

	start := wire.ParseOIDMust(".1.3.6.1.2.1.4.22.1.2.37.10.0.0.19")
	got := table.GetNext(wire.SearchRange{Start: start, End: wire.NullOID(), Include: true})

	assert.True(t, start.Equal(got.Name))
	assert.Equal(t, []byte{0x52, 0x54, 0x00, 0x04, 0x52, 0x5d}, got.Data.Bytes)
}

func TestArpNoSuchInstance(t *testing.T) {
	u, _ := newTestUpdater(t)
	table := buildTable(t, u)

	oid := wire.ParseOIDMust(".1.3.6.1.2.1.4.22.1.2.39")
	got := table.Get(wire.SearchRange{Start: oid, End: oid})
	assert.Equal(t, wire.NoSuchInstance, got.Data.Type)
}

func TestArpSkipsUnresolvedInterfaces(t *testing.T) {
	fake := dbconn.NewFake()
	fake.SeedString(applDB, "NEIGH_TABLE:UnknownIface:10.0.0.1", map[string]string{"neigh": "52:54:00:00:00:01"})
	u := New(fake, IndexResolverFromNumericSuffix("Ethernet"), nil)

	ctx := context.Background()
	require.NoError(t, u.ReinitData(ctx))
	require.NoError(t, u.UpdateData(ctx))

	_, ok := u.first()
	assert.False(t, ok)
}
