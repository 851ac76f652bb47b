package mib

import "github.com/vpbank/ax-subagent/wire"

// SetHandler implements the two-phase commit protocol for a writable OID
// prefix: TestSet stages a candidate value, CommitSet finalizes the most
// recently staged value for the same transaction, UndoSet reverts it, and
// CleanupSet drops any staged state regardless of outcome. No default entry
// in this module is writable; SetHandler exists as a hook for future
// writable MIB objects.
type SetHandler interface {
	Test(oid wire.OID, data wire.Value) wire.ErrorStatus
	Commit(oid wire.OID, data wire.Value) wire.ErrorStatus
	Undo(oid wire.OID, data wire.Value) wire.ErrorStatus
	Cleanup()
}

// txnKey identifies one in-flight two-phase-commit transaction.
type txnKey struct {
	sessionID     uint32
	transactionID uint32
}

// SetCoordinator dispatches TestSet/CommitSet/UndoSet/CleanupSet PDUs to the
// SetHandler registered for the covering prefix, tracking staged state per
// (sessionID, transactionID) so CommitSet/UndoSet/CleanupSet can find the
// handler a prior TestSet selected without re-resolving the prefix.
type SetCoordinator struct {
	table    *Table
	handlers map[string]SetHandler // keyed by entry prefix string
	staged   map[txnKey][]stagedVarBind
}

type stagedVarBind struct {
	handler SetHandler
	oid     wire.OID
	data    wire.Value
}

// NewSetCoordinator builds a coordinator over table, with handlers keyed by
// the OID prefix they own.
func NewSetCoordinator(table *Table, handlers map[string]SetHandler) *SetCoordinator {
	return &SetCoordinator{
		table:    table,
		handlers: handlers,
		staged:   make(map[txnKey][]stagedVarBind),
	}
}

func (c *SetCoordinator) handlerFor(oid wire.OID) (SetHandler, bool) {
	idx := c.table.coveringIndex(oid)
	if idx < 0 {
		return nil, false
	}
	h, ok := c.handlers[c.table.prefixes[idx].String()]
	return h, ok
}

// TestSet stages each VarBind against its covering handler, returning the
// first non-OK status and the 1-based index of the offending VarBind (per
// §4.5's response-construction rule), or (NoAgentXError, 0) if every
// VarBind staged cleanly.
func (c *SetCoordinator) TestSet(sessionID, transactionID uint32, varBinds []wire.VarBind) (wire.ErrorStatus, uint16) {
	key := txnKey{sessionID, transactionID}
	var staged []stagedVarBind

	for i, vb := range varBinds {
		h, ok := c.handlerFor(vb.Name)
		if !ok {
			return wire.ErrNotWritable, uint16(i + 1)
		}
		status := h.Test(vb.Name, vb.Data)
		if status != wire.ErrNoAgentXError {
			return status, uint16(i + 1)
		}
		staged = append(staged, stagedVarBind{handler: h, oid: vb.Name, data: vb.Data})
	}

	c.staged[key] = staged
	return wire.ErrNoAgentXError, 0
}

// CommitSet finalizes every VarBind staged by the matching TestSet.
func (c *SetCoordinator) CommitSet(sessionID, transactionID uint32) wire.ErrorStatus {
	key := txnKey{sessionID, transactionID}
	for _, s := range c.staged[key] {
		if status := s.handler.Commit(s.oid, s.data); status != wire.ErrNoAgentXError {
			return status
		}
	}
	return wire.ErrNoAgentXError
}

// UndoSet reverts every VarBind staged by the matching TestSet.
func (c *SetCoordinator) UndoSet(sessionID, transactionID uint32) wire.ErrorStatus {
	key := txnKey{sessionID, transactionID}
	for _, s := range c.staged[key] {
		if status := s.handler.Undo(s.oid, s.data); status != wire.ErrNoAgentXError {
			return status
		}
	}
	return wire.ErrNoAgentXError
}

// CleanupSet drops staged state for the transaction regardless of outcome,
// notifying every handler that participated.
func (c *SetCoordinator) CleanupSet(sessionID, transactionID uint32) {
	key := txnKey{sessionID, transactionID}
	for _, s := range c.staged[key] {
		s.handler.Cleanup()
	}
	delete(c.staged, key)
}
