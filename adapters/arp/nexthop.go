package arp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/vpbank/ax-subagent/dbconn"
	"github.com/vpbank/ax-subagent/mib"
	"github.com/vpbank/ax-subagent/wire"
)

// defaultRouteKey is the only ROUTE_TABLE row the reference implementation
// ever turns into a sub-identifier.
const defaultRouteKey = "ROUTE_TABLE:0.0.0.0/0"

type nextHopSnapshot struct {
	keys    []wire.OID
	nextHop map[string][]byte
}

// NextHopUpdater refreshes ipRouteNextHop (RFC 1213 §6.6, prefix
// .1.3.6.1.2.1.4.21.1.7) from APPL_DB's ROUTE_TABLE, grounded on the
// reference implementation's NextHopUpdater in rfc1213.py. Only the default
// route (0.0.0.0/0) is exposed, matching the original: it builds a
// sub-identifier from the route's network address, which for any route
// other than 0.0.0.0/0 it never reaches — the original's own loop body
// short-circuits on `if ipnstr == "0.0.0.0/0"` and carries an
// unimplemented TODO for per-range sub-identifiers.
type NextHopUpdater struct {
	db       dbconn.Connector
	logger   *slog.Logger
	snapshot atomic.Pointer[nextHopSnapshot]
}

// NewNextHopUpdater builds a NextHopUpdater. A nil logger falls back to a
// no-op logger.
func NewNextHopUpdater(db dbconn.Connector, logger *slog.Logger) *NextHopUpdater {
	if logger == nil {
		logger = noopLogger()
	}
	u := &NextHopUpdater{db: db, logger: logger}
	u.snapshot.Store(&nextHopSnapshot{nextHop: map[string][]byte{}})
	return u
}

// ReinitData re-establishes the database connection. The route table's
// schema never changes shape, so there is no index map to rebuild beyond
// what UpdateData already does.
func (u *NextHopUpdater) ReinitData(ctx context.Context) error {
	if err := u.db.Connect(ctx, applDB); err != nil {
		return fmt.Errorf("arp: nexthop: reinit: %w", err)
	}
	return nil
}

// UpdateData rescans ROUTE_TABLE:* and rebuilds the cache atomically.
func (u *NextHopUpdater) UpdateData(ctx context.Context) error {
	keys, err := u.db.Keys(ctx, "ROUTE_TABLE:*")
	if err != nil {
		return fmt.Errorf("arp: nexthop: keys: %w", err)
	}

	next := &nextHopSnapshot{nextHop: map[string][]byte{}}
	for _, key := range keys {
		if key != defaultRouteKey {
			continue
		}

		fields, ok, err := u.db.GetAll(ctx, key)
		if err != nil {
			u.logger.Warn("arp: nexthop: get_all failed", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}
		raw, ok := fields["nexthop"]
		if !ok {
			continue
		}

		first := strings.SplitN(string(raw), ",", 2)[0]
		ip := net.ParseIP(first).To4()
		if ip == nil {
			u.logger.Warn("arp: nexthop: malformed nexthop address", "key", key, "nexthop", first)
			continue
		}

		subID := wire.NewOID(0, 0, 0, 0)
		next.keys = append(next.keys, subID)
		next.nextHop[subID.String()] = append([]byte(nil), ip...)
		break
	}

	sort.Slice(next.keys, func(i, j int) bool { return next.keys[i].Compare(next.keys[j]) < 0 })
	u.snapshot.Store(next)
	return nil
}

func (u *NextHopUpdater) current() *nextHopSnapshot { return u.snapshot.Load() }

func (u *NextHopUpdater) valueAt(subID wire.OID) (wire.Value, bool) {
	snap := u.current()
	ip, ok := snap.nextHop[subID.String()]
	if !ok {
		return wire.Value{}, false
	}
	v, err := wire.IPAddressValue(ip)
	if err != nil {
		return wire.Value{}, false
	}
	return v, true
}

func (u *NextHopUpdater) first() (wire.OID, bool) {
	snap := u.current()
	if len(snap.keys) == 0 {
		return wire.OID{}, false
	}
	return snap.keys[0], true
}

func (u *NextHopUpdater) next(current wire.OID) (wire.OID, bool) {
	snap := u.current()
	idx := sort.Search(len(snap.keys), func(i int) bool { return snap.keys[i].Compare(current) > 0 })
	if idx >= len(snap.keys) {
		return wire.OID{}, false
	}
	return snap.keys[idx], true
}

// nextHopIterator adapts NextHopUpdater to mib.SubtreeIterator without
// exposing the snapshot type.
type nextHopIterator struct{ u *NextHopUpdater }

func (it nextHopIterator) First() (wire.OID, bool)            { return it.u.first() }
func (it nextHopIterator) Next(cur wire.OID) (wire.OID, bool) { return it.u.next(cur) }

// AsEntry builds the mib.Entry for ipRouteNextHop at prefix (conventionally
// .1.3.6.1.2.1.4.21.1.7).
func (u *NextHopUpdater) AsEntry(prefix wire.OID) mib.Entry {
	return mib.NewSubtreeEntry(prefix, nextHopIterator{u: u}, u.valueAt)
}
