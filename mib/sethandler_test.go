package mib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/ax-subagent/wire"
)

type recordingHandler struct {
	testStatus   wire.ErrorStatus
	commitStatus wire.ErrorStatus
	undoStatus   wire.ErrorStatus
	committed    []wire.Value
	undone       []wire.Value
	cleanups     int
}

func (h *recordingHandler) Test(oid wire.OID, data wire.Value) wire.ErrorStatus {
	return h.testStatus
}

func (h *recordingHandler) Commit(oid wire.OID, data wire.Value) wire.ErrorStatus {
	h.committed = append(h.committed, data)
	return h.commitStatus
}

func (h *recordingHandler) Undo(oid wire.OID, data wire.Value) wire.ErrorStatus {
	h.undone = append(h.undone, data)
	return h.undoStatus
}

func (h *recordingHandler) Cleanup() { h.cleanups++ }

func coordinatorWithHandler(t *testing.T, prefix wire.OID, h SetHandler) *SetCoordinator {
	t.Helper()
	tbl, err := NewBuilder().
		AddScalar(prefix, func() (wire.Value, bool) { return wire.IntegerValue(0), true }).
		Build()
	require.NoError(t, err)
	return NewSetCoordinator(tbl, map[string]SetHandler{prefix.String(): h})
}

func TestTestSetCommitSetRoundTrip(t *testing.T) {
	prefix := wire.ParseOIDMust("1.3.6.1.2.1.200")
	h := &recordingHandler{}
	c := coordinatorWithHandler(t, prefix, h)

	vbs := []wire.VarBind{{Name: prefix, Data: wire.IntegerValue(5)}}
	status, idx := c.TestSet(1, 1, vbs)
	require.Equal(t, wire.ErrNoAgentXError, status)
	require.Equal(t, uint16(0), idx)

	status = c.CommitSet(1, 1)
	assert.Equal(t, wire.ErrNoAgentXError, status)
	require.Len(t, h.committed, 1)
	assert.Equal(t, int32(5), h.committed[0].Int32)
}

func TestTestSetUnwritablePrefixFails(t *testing.T) {
	prefix := wire.ParseOIDMust("1.3.6.1.2.1.200")
	c := coordinatorWithHandler(t, prefix, &recordingHandler{})

	other := wire.ParseOIDMust("1.3.6.1.2.1.201")
	vbs := []wire.VarBind{{Name: other, Data: wire.IntegerValue(1)}}
	status, idx := c.TestSet(1, 1, vbs)
	assert.Equal(t, wire.ErrNotWritable, status)
	assert.Equal(t, uint16(1), idx)
}

func TestTestSetReportsFirstFailingVarBindIndex(t *testing.T) {
	prefixA := wire.ParseOIDMust("1.3.6.1.2.1.200")
	prefixB := wire.ParseOIDMust("1.3.6.1.2.1.201")
	okHandler := &recordingHandler{}
	badHandler := &recordingHandler{testStatus: wire.ErrWrongValue}

	tbl, err := NewBuilder().
		AddScalar(prefixA, func() (wire.Value, bool) { return wire.IntegerValue(0), true }).
		AddScalar(prefixB, func() (wire.Value, bool) { return wire.IntegerValue(0), true }).
		Build()
	require.NoError(t, err)
	c := NewSetCoordinator(tbl, map[string]SetHandler{
		prefixA.String(): okHandler,
		prefixB.String(): badHandler,
	})

	vbs := []wire.VarBind{
		{Name: prefixA, Data: wire.IntegerValue(1)},
		{Name: prefixB, Data: wire.IntegerValue(2)},
	}
	status, idx := c.TestSet(1, 1, vbs)
	assert.Equal(t, wire.ErrWrongValue, status)
	assert.Equal(t, uint16(2), idx)
}

func TestUndoSetRevertsStagedValue(t *testing.T) {
	prefix := wire.ParseOIDMust("1.3.6.1.2.1.200")
	h := &recordingHandler{}
	c := coordinatorWithHandler(t, prefix, h)

	vbs := []wire.VarBind{{Name: prefix, Data: wire.IntegerValue(9)}}
	status, _ := c.TestSet(1, 1, vbs)
	require.Equal(t, wire.ErrNoAgentXError, status)

	status = c.UndoSet(1, 1)
	assert.Equal(t, wire.ErrNoAgentXError, status)
	require.Len(t, h.undone, 1)
	assert.Equal(t, int32(9), h.undone[0].Int32)
}

func TestCleanupSetClearsStagedStateAndNotifiesHandler(t *testing.T) {
	prefix := wire.ParseOIDMust("1.3.6.1.2.1.200")
	h := &recordingHandler{}
	c := coordinatorWithHandler(t, prefix, h)

	vbs := []wire.VarBind{{Name: prefix, Data: wire.IntegerValue(1)}}
	_, _ = c.TestSet(1, 1, vbs)
	c.CleanupSet(1, 1)

	assert.Equal(t, 1, h.cleanups)
	_, ok := c.staged[txnKey{1, 1}]
	assert.False(t, ok)
}

func TestTransactionsAreIsolatedByKey(t *testing.T) {
	prefix := wire.ParseOIDMust("1.3.6.1.2.1.200")
	h := &recordingHandler{}
	c := coordinatorWithHandler(t, prefix, h)

	vbs1 := []wire.VarBind{{Name: prefix, Data: wire.IntegerValue(1)}}
	vbs2 := []wire.VarBind{{Name: prefix, Data: wire.IntegerValue(2)}}
	_, _ = c.TestSet(1, 100, vbs1)
	_, _ = c.TestSet(1, 200, vbs2)

	require.Equal(t, wire.ErrNoAgentXError, c.CommitSet(1, 200))
	require.Len(t, h.committed, 1)
	assert.Equal(t, int32(2), h.committed[0].Int32)

	require.Equal(t, wire.ErrNoAgentXError, c.CommitSet(1, 100))
	require.Len(t, h.committed, 2)
	assert.Equal(t, int32(1), h.committed[1].Int32)
}
