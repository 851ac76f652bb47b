// Package fdb adapts ASIC_DB's FDB_ENTRY objects into dot1qTpFdbPort (RFC
// 4363 §4, prefix .1.3.6.1.2.1.17.7.1.2.2.1.2), grounded on the reference
// implementation's FdbUpdater in rfc4363.py. The canonical extraction path
// (per this module's resolved FDB port-ID design decision) reads
// SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID, strips its literal "oid:0x" prefix,
// and resolves the remaining bridge-port handle through a bridge-port to
// physical-port map before the final ifIndex lookup; the alternative
// direct SAI_FDB_ENTRY_ATTR_PORT_ID path is not implemented here.
package fdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/vpbank/ax-subagent/dbconn"
	"github.com/vpbank/ax-subagent/mib"
	"github.com/vpbank/ax-subagent/wire"
)

const asicDB = "ASIC_DB"

// bridgePortOIDPrefixLen is the length of the literal "oid:0x" prefix that
// SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID values carry, e.g. "oid:0x3a000000000608".
const bridgePortOIDPrefixLen = 6

// BridgePortResolver maps a bridge-port object handle (with the "oid:0x"
// prefix already stripped) to the physical port object handle it sits on.
type BridgePortResolver func(bridgePortID string) (portID string, ok bool)

// PortIndexResolver maps a physical port object handle to its ifIndex.
type PortIndexResolver func(portID string) (ifIndex uint32, ok bool)

type fdbEntryKey struct {
	Vlan string `json:"vlan"`
	Mac  string `json:"mac"`
}

type snapshot struct {
	keys    []wire.OID // sorted (vlan, mac[0..5])
	ifIndex map[string]uint32
}

// Updater refreshes the FDB-to-ifIndex cache from ASIC_DB.
type Updater struct {
	db         dbconn.Connector
	bridgePort BridgePortResolver
	portIndex  PortIndexResolver
	logger     *slog.Logger
	snapshot   atomic.Pointer[snapshot]
}

func New(db dbconn.Connector, bridgePort BridgePortResolver, portIndex PortIndexResolver, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discard{}, nil))
	}
	u := &Updater{db: db, bridgePort: bridgePort, portIndex: portIndex, logger: logger}
	u.snapshot.Store(&snapshot{ifIndex: map[string]uint32{}})
	return u
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// ReinitData re-establishes the ASIC_DB connection. Bridge-port and
// physical-port index maps are supplied by the resolvers injected at
// construction time and are refreshed by their own owners.
func (u *Updater) ReinitData(ctx context.Context) error {
	if err := u.db.Connect(ctx, asicDB); err != nil {
		return fmt.Errorf("fdb: reinit: %w", err)
	}
	return nil
}

// parseFDBEntryKey splits a key like
// "ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:{"vlan":"100","mac":"52:54:00:...":...}"
// into its JSON-encoded composite-key tail.
func parseFDBEntryKey(key string) (fdbEntryKey, error) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return fdbEntryKey{}, fmt.Errorf("fdb: malformed key %q", key)
	}
	var k fdbEntryKey
	if err := json.Unmarshal([]byte(parts[2]), &k); err != nil {
		return fdbEntryKey{}, fmt.Errorf("fdb: invalid FDB_ENTRY key %q: %w", key, err)
	}
	return k, nil
}

// bridgePortID extracts the bridge-port handle from a raw
// SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID value, stripping its "oid:0x" prefix.
// This bridge-port form is the only one the adapter reads: an entry's direct
// SAI_FDB_ENTRY_ATTR_PORT_ID attribute is not consulted.
func bridgePortID(raw []byte) (string, bool) {
	if len(raw) <= bridgePortOIDPrefixLen {
		return "", false
	}
	return string(raw[bridgePortOIDPrefixLen:]), true
}

// UpdateData rescans ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:* and rebuilds the
// cache atomically.
func (u *Updater) UpdateData(ctx context.Context) error {
	keys, err := u.db.Keys(ctx, "ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:*")
	if err != nil {
		return fmt.Errorf("fdb: keys: %w", err)
	}

	next := &snapshot{ifIndex: make(map[string]uint32, len(keys))}
	for _, key := range keys {
		entKey, err := parseFDBEntryKey(key)
		if err != nil {
			u.logger.Error("fdb: invalid FDB_ENTRY", "key", key, "error", err)
			continue
		}

		fields, ok, err := u.db.GetAll(ctx, key)
		if err != nil {
			u.logger.Warn("fdb: get_all failed", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}

		rawBridgePort, ok := fields["SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID"]
		if !ok {
			continue
		}
		bpID, ok := bridgePortID(rawBridgePort)
		if !ok {
			continue
		}
		portID, ok := u.bridgePort(bpID)
		if !ok {
			continue
		}
		ifIndex, ok := u.portIndex(portID)
		if !ok {
			continue
		}

		vlan, err := strconv.ParseUint(entKey.Vlan, 10, 32)
		if err != nil {
			u.logger.Warn("fdb: malformed vlan", "key", key, "vlan", entKey.Vlan)
			continue
		}
		mac, err := net.ParseMAC(entKey.Mac)
		if err != nil {
			u.logger.Warn("fdb: malformed mac", "key", key, "mac", entKey.Mac)
			continue
		}

		subID := wire.NewOID(uint32(vlan), uint32(mac[0]), uint32(mac[1]), uint32(mac[2]), uint32(mac[3]), uint32(mac[4]), uint32(mac[5]))
		next.keys = append(next.keys, subID)
		next.ifIndex[subID.String()] = ifIndex
	}

	sort.Slice(next.keys, func(i, j int) bool { return next.keys[i].Compare(next.keys[j]) < 0 })
	u.snapshot.Store(next)
	return nil
}

func (u *Updater) current() *snapshot { return u.snapshot.Load() }

func (u *Updater) valueAt(subID wire.OID) (wire.Value, bool) {
	snap := u.current()
	idx, ok := snap.ifIndex[subID.String()]
	if !ok {
		return wire.Value{}, false
	}
	return wire.IntegerValue(int32(idx)), true
}

func (u *Updater) first() (wire.OID, bool) {
	snap := u.current()
	if len(snap.keys) == 0 {
		return wire.OID{}, false
	}
	return snap.keys[0], true
}

func (u *Updater) next(current wire.OID) (wire.OID, bool) {
	snap := u.current()
	idx := sort.Search(len(snap.keys), func(i int) bool { return snap.keys[i].Compare(current) > 0 })
	if idx >= len(snap.keys) {
		return wire.OID{}, false
	}
	return snap.keys[idx], true
}

type iterator struct{ u *Updater }

func (it iterator) First() (wire.OID, bool)             { return it.u.first() }
func (it iterator) Next(cur wire.OID) (wire.OID, bool)  { return it.u.next(cur) }

// AsEntry builds the mib.Entry for dot1qTpFdbPort at prefix (conventionally
// .1.3.6.1.2.1.17.7.1.2.2.1.2).
func (u *Updater) AsEntry(prefix wire.OID) mib.Entry {
	return mib.NewSubtreeEntry(prefix, iterator{u: u}, u.valueAt)
}
