package fdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/vpbank/ax-subagent/dbconn"
)

const (
	bridgePortTableKeyPrefix = "ASIC_STATE:SAI_OBJECT_TYPE_BRIDGE_PORT:"
	bridgePortOIDPrefix      = "oid:0x"
	bridgePortIDAttr         = "SAI_BRIDGE_PORT_ATTR_PORT_ID"
)

// BridgePortIndex maintains the ASIC_DB mapping from a bridge-port object
// handle (the key space SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID values point
// into) to the underlying physical port's SAI object id, so that fdb's
// Updater can complete the bridge-port -> port -> ifIndex chain without
// hardcoding ASIC_DB's bridge-port table shape itself. It runs as its own
// background cache, the same shape as the Updater it feeds.
type BridgePortIndex struct {
	db       dbconn.Connector
	logger   *slog.Logger
	snapshot atomic.Pointer[map[string]string] // bridge-port id -> port SAI id
}

// NewBridgePortIndex builds a BridgePortIndex. A nil logger falls back to a
// no-op logger.
func NewBridgePortIndex(db dbconn.Connector, logger *slog.Logger) *BridgePortIndex {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discard{}, nil))
	}
	b := &BridgePortIndex{db: db, logger: logger}
	empty := map[string]string{}
	b.snapshot.Store(&empty)
	return b
}

// ReinitData re-establishes the ASIC_DB connection.
func (b *BridgePortIndex) ReinitData(ctx context.Context) error {
	if err := b.db.Connect(ctx, asicDB); err != nil {
		return fmt.Errorf("fdb: bridgeport: reinit: %w", err)
	}
	return nil
}

// UpdateData rescans ASIC_STATE:SAI_OBJECT_TYPE_BRIDGE_PORT:* and rebuilds
// the bridge-port-id -> port-SAI-id map atomically.
func (b *BridgePortIndex) UpdateData(ctx context.Context) error {
	keys, err := b.db.Keys(ctx, bridgePortTableKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("fdb: bridgeport: keys: %w", err)
	}

	next := make(map[string]string, len(keys))
	for _, key := range keys {
		tail := strings.TrimPrefix(key, bridgePortTableKeyPrefix)
		bpID, ok := stripOIDPrefix(tail, bridgePortOIDPrefix)
		if !ok {
			continue
		}

		fields, ok, err := b.db.GetAll(ctx, key)
		if err != nil {
			b.logger.Warn("fdb: bridgeport: get_all failed", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}
		rawPortID, ok := fields[bridgePortIDAttr]
		if !ok {
			continue
		}
		portSAIID := strings.TrimPrefix(string(rawPortID), "oid:")
		if portSAIID == string(rawPortID) {
			continue // attribute wasn't in the expected "oid:0x..." shape
		}
		next[bpID] = portSAIID
	}

	b.snapshot.Store(&next)
	return nil
}

func stripOIDPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || len(s) <= len(prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// Resolver adapts the current snapshot to a BridgePortResolver.
func (b *BridgePortIndex) Resolver() BridgePortResolver {
	return func(bridgePortID string) (string, bool) {
		m := *b.snapshot.Load()
		v, ok := m[bridgePortID]
		return v, ok
	}
}
