// Package arp adapts APPL_DB's neighbor table into the IP-to-media
// ("ARP") entries of ipNetToMediaTable (RFC 1213 §6.9, prefix
// .1.3.6.1.2.1.4.22.1.2), grounded on the reference implementation's
// ArpUpdater in rfc1213.py — generalized from a direct kernel ARP-table
// read to a database-backed one, consistent with this module's external
// key-value store interface.
package arp

import (
	"context"
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

const applDB = "APPL_DB"

// IndexResolver maps an interface name (as stored in NEIGH_TABLE keys) to
// its ifIndex. Returning (0, false) drops that row, matching the reference
// updater's `if index is None: continue`.
type IndexResolver func(ifName string) (uint32, bool)

type snapshot struct {
	keys []wire.OID        // sorted (ifIndex, ipByte0..3), ascending
	macs map[string][]byte // key = wire.OID.String()
}

// Updater refreshes the ARP/ipNetToMedia cache from APPL_DB's NEIGH_TABLE
// and exposes it as a mib.Entry via AsEntry.
type Updater struct {
	db       dbconn.Connector
	resolve  IndexResolver
	logger   *slog.Logger
	snapshot atomic.Pointer[snapshot]
}

// New builds an Updater. A nil logger falls back to a no-op logger.
func New(db dbconn.Connector, resolve IndexResolver, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = noopLogger()
	}
	u := &Updater{db: db, resolve: resolve, logger: logger}
	u.snapshot.Store(&snapshot{macs: map[string][]byte{}})
	return u
}

// ReinitData re-establishes the database connection. The neighbor table
// schema itself never changes shape, so there is no index map to rebuild
// beyond what UpdateData already does.
func (u *Updater) ReinitData(ctx context.Context) error {
	if err := u.db.Connect(ctx, applDB); err != nil {
		return fmt.Errorf("arp: reinit: %w", err)
	}
	return nil
}

// UpdateData rescans NEIGH_TABLE:* and rebuilds the cache atomically.
func (u *Updater) UpdateData(ctx context.Context) error {
	keys, err := u.db.Keys(ctx, "NEIGH_TABLE:*")
	if err != nil {
		return fmt.Errorf("arp: keys: %w", err)
	}

	next := &snapshot{macs: make(map[string][]byte, len(keys))}
	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		ifName, ipStr := parts[1], parts[2]

		ifIndex, ok := u.resolve(ifName)
		if !ok {
			continue
		}

		ip := net.ParseIP(ipStr).To4()
		if ip == nil {
			continue
		}

		fields, ok, err := u.db.GetAll(ctx, key)
		if err != nil {
			u.logger.Warn("arp: get_all failed", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}
		mac, ok := fields["neigh"]
		if !ok {
			continue
		}
		macBytes, err := parseMAC(string(mac))
		if err != nil {
			u.logger.Warn("arp: malformed MAC", "key", key, "mac", string(mac))
			continue
		}

		subID := wire.NewOID(ifIndex, uint32(ip[0]), uint32(ip[1]), uint32(ip[2]), uint32(ip[3]))
		next.keys = append(next.keys, subID)
		next.macs[subID.String()] = macBytes
	}

	sort.Slice(next.keys, func(i, j int) bool { return next.keys[i].Compare(next.keys[j]) < 0 })
	u.snapshot.Store(next)
	return nil
}

func parseMAC(s string) ([]byte, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return nil, err
	}
	return []byte(hw), nil
}

func (u *Updater) current() *snapshot { return u.snapshot.Load() }

func (u *Updater) valueAt(subID wire.OID) (wire.Value, bool) {
	snap := u.current()
	mac, ok := snap.macs[subID.String()]
	if !ok {
		return wire.Value{}, false
	}
	return wire.OctetStringValue(mac), true
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

// iterator adapts Updater to mib.SubtreeIterator without exposing the
// snapshot type.
type iterator struct{ u *Updater }

func (it iterator) First() (wire.OID, bool)             { return it.u.first() }
func (it iterator) Next(cur wire.OID) (wire.OID, bool) { return it.u.next(cur) }

// AsEntry builds the mib.Entry for ipNetToMediaPhysAddress at prefix
// (conventionally .1.3.6.1.2.1.4.22.1.2).
func (u *Updater) AsEntry(prefix wire.OID) mib.Entry {
	return mib.NewSubtreeEntry(prefix, iterator{u: u}, u.valueAt)
}

// IndexResolverFromMap adapts a static ifName->ifIndex map to IndexResolver.
func IndexResolverFromMap(m map[string]uint32) IndexResolver {
	return func(ifName string) (uint32, bool) {
		idx, ok := m[ifName]
		return idx, ok
	}
}

// IndexResolverFromNumericSuffix resolves names like "Ethernet12" by
// parsing the trailing digits directly, for the common no-alias-map case.
func IndexResolverFromNumericSuffix(prefix string) IndexResolver {
	return func(ifName string) (uint32, bool) {
		if !strings.HasPrefix(ifName, prefix) {
			return 0, false
		}
		n, err := strconv.ParseUint(ifName[len(prefix):], 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(n), true
	}
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(noopWriter{}, nil))
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
