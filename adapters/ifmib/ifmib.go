// Package ifmib adapts COUNTERS_DB and APPL_DB into ifTable (RFC 1213
// §3.5, prefix .1.3.6.1.2.1.2) and ifXTable (RFC 2863 §6, prefix
// .1.3.6.1.2.1.31.1) entries, grounded on the reference implementation's
// InterfacesUpdater (rfc1213.py) and InterfaceMIBUpdater (rfc2863.py). LAG
// counters are the sum of their member ports' counters; ifTable counters
// truncate to 32 bits, ifXTable's "HC" counters keep the full 64-bit sum
// unmasked.
package ifmib

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/vpbank/ax-subagent/dbconn"
)

const (
	applDB     = "APPL_DB"
	countersDB = "COUNTERS_DB"

	portNameMapKey = "COUNTERS_PORT_NAME_MAP"
)

// Counter32Table names the 32-bit per-port counters of ifTable, RFC 1213
// §6.4.
type Counter32Table string

const (
	IfInOctets         Counter32Table = "SAI_PORT_STAT_IF_IN_OCTETS"
	IfInUcastPkts      Counter32Table = "SAI_PORT_STAT_IF_IN_UCAST_PKTS"
	IfInNUcastPkts     Counter32Table = "SAI_PORT_STAT_IF_IN_NON_UCAST_PKTS"
	IfInDiscards       Counter32Table = "SAI_PORT_STAT_IF_IN_DISCARDS"
	IfInErrors         Counter32Table = "SAI_PORT_STAT_IF_IN_ERRORS"
	IfInUnknownProtos  Counter32Table = "SAI_PORT_STAT_IF_IN_UNKNOWN_PROTOS"
	IfOutOctets        Counter32Table = "SAI_PORT_STAT_IF_OUT_OCTETS"
	IfOutUcastPkts     Counter32Table = "SAI_PORT_STAT_IF_OUT_UCAST_PKTS"
	IfOutNUcastPkts    Counter32Table = "SAI_PORT_STAT_IF_OUT_NON_UCAST_PKTS"
	IfOutDiscards      Counter32Table = "SAI_PORT_STAT_IF_OUT_DISCARDS"
	IfOutErrors        Counter32Table = "SAI_PORT_STAT_IF_OUT_ERRORS"
	IfOutQLen          Counter32Table = "SAI_PORT_STAT_IF_OUT_QLEN"
)

// Counter64Table names the 64-bit "high capacity" per-port counters of
// ifXTable, RFC 2863 §6.
type Counter64Table string

const (
	IfHCInOctets            Counter64Table = "SAI_PORT_STAT_IF_IN_OCTETS"
	IfHCInUcastPkts         Counter64Table = "SAI_PORT_STAT_IF_IN_UCAST_PKTS"
	IfHCInMulticastPkts     Counter64Table = "SAI_PORT_STAT_IF_IN_MULTICAST_PKTS"
	IfHCInBroadcastPkts     Counter64Table = "SAI_PORT_STAT_IF_IN_BROADCAST_PKTS"
	IfHCOutOctets           Counter64Table = "SAI_PORT_STAT_IF_OUT_OCTETS"
	IfHCOutUcastPkts        Counter64Table = "SAI_PORT_STAT_IF_OUT_UCAST_PKTS"
	IfHCOutMulticastPkts    Counter64Table = "SAI_PORT_STAT_IF_OUT_MULTICAST_PKTS"
	IfHCOutBroadcastPkts    Counter64Table = "SAI_PORT_STAT_IF_OUT_BROADCAST_PKTS"
)

const (
	mask32 = 0x00000000ffffffff
	mask64 = 0xffffffffffffffff
)

// AdminOperStatus is the ifAdminStatus/ifOperStatus value space (up=1,
// down=2), per the status_map in _get_status.
type AdminOperStatus int32

const (
	StatusUp   AdminOperStatus = 1
	StatusDown AdminOperStatus = 2
)

type portEntry struct {
	name       string
	alias      string
	saiID      string
	adminUp    bool
	haveAdmin  bool
	operUp     bool
	haveOper   bool
	mtu        uint32
}

type lagEntry struct {
	name    string
	members []string // port names
}

type snapshot struct {
	ifRange       []uint32 // sorted ifIndex values (ports + LAGs)
	oidName       map[uint32]string
	oidIsLag      map[uint32]bool
	ports         map[string]portEntry
	lags          map[string]lagEntry
	counters      map[string]map[string][]byte // saiID -> field -> raw value
}

// Updater refreshes the interface table cache from APPL_DB and COUNTERS_DB.
type Updater struct {
	db       dbconn.Connector
	logger   *slog.Logger
	snapshot atomic.Pointer[snapshot]
}

func New(db dbconn.Connector, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discard{}, nil))
	}
	u := &Updater{db: db, logger: logger}
	u.snapshot.Store(&snapshot{
		oidName:  map[uint32]string{},
		oidIsLag: map[uint32]bool{},
		ports:    map[string]portEntry{},
		lags:     map[string]lagEntry{},
		counters: map[string]map[string][]byte{},
	})
	return u
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// ReinitData rebuilds the port/LAG identity maps: names, aliases, SAI IDs,
// LAG membership, and the sorted ifIndex range. ifIndex assignment is a
// deliberate simplification of the reference implementation's SAI-object-id
// based numbering: ports and LAGs are indexed 1..N in name-sorted order,
// which keeps this adapter deterministic without a SAI object directory.
func (u *Updater) ReinitData(ctx context.Context) error {
	portKeys, err := u.db.Keys(ctx, "PORT_TABLE:*")
	if err != nil {
		return fmt.Errorf("ifmib: list ports: %w", err)
	}
	lagKeys, err := u.db.Keys(ctx, "LAG_TABLE:*")
	if err != nil {
		return fmt.Errorf("ifmib: list lags: %w", err)
	}
	saiByName, _, err := u.db.GetAll(ctx, portNameMapKey)
	if err != nil {
		return fmt.Errorf("ifmib: %s: %w", portNameMapKey, err)
	}

	ports := make(map[string]portEntry, len(portKeys))
	for _, key := range portKeys {
		name := key[len("PORT_TABLE:"):]
		fields, ok, err := u.db.GetAll(ctx, key)
		if err != nil {
			return fmt.Errorf("ifmib: get_all %s: %w", key, err)
		}
		if !ok {
			continue
		}
		pe := portEntry{name: name, alias: name}
		if alias, ok := fields["alias"]; ok {
			pe.alias = string(alias)
		}
		if sai, ok := saiByName[name]; ok {
			pe.saiID = string(sai)
		}
		ports[name] = pe
	}

	lags := make(map[string]lagEntry, len(lagKeys))
	for _, key := range lagKeys {
		name := key[len("LAG_TABLE:"):]
		memberKeys, err := u.db.Keys(ctx, fmt.Sprintf("LAG_MEMBER_TABLE:%s:*", name))
		if err != nil {
			return fmt.Errorf("ifmib: list lag members: %w", err)
		}
		prefix := fmt.Sprintf("LAG_MEMBER_TABLE:%s:", name)
		var members []string
		for _, mk := range memberKeys {
			members = append(members, mk[len(prefix):])
		}
		sort.Strings(members)
		lags[name] = lagEntry{name: name, members: members}
	}

	names := make([]string, 0, len(ports)+len(lags))
	for name := range ports {
		names = append(names, name)
	}
	for name := range lags {
		names = append(names, name)
	}
	sort.Strings(names)

	oidName := make(map[uint32]string, len(names))
	oidIsLag := make(map[uint32]bool, len(names))
	ifRange := make([]uint32, 0, len(names))
	for i, name := range names {
		idx := uint32(i + 1)
		oidName[idx] = name
		_, isLag := lags[name]
		oidIsLag[idx] = isLag
		ifRange = append(ifRange, idx)
	}

	prev := u.snapshot.Load()
	u.snapshot.Store(&snapshot{
		ifRange:  ifRange,
		oidName:  oidName,
		oidIsLag: oidIsLag,
		ports:    ports,
		lags:     lags,
		counters: prev.counters,
	})
	return nil
}

// UpdateData refreshes per-port counter rows from COUNTERS_DB and admin/oper
// status + MTU from APPL_DB, leaving the identity maps built by ReinitData
// untouched.
func (u *Updater) UpdateData(ctx context.Context) error {
	snap := u.snapshot.Load()

	counters := make(map[string]map[string][]byte, len(snap.ports))
	ports := make(map[string]portEntry, len(snap.ports))
	for name, pe := range snap.ports {
		if pe.saiID != "" {
			fields, ok, err := u.db.GetAll(ctx, "COUNTERS:"+pe.saiID)
			if err != nil {
				u.logger.Warn("ifmib: counters get_all failed", "port", name, "error", err)
			} else if ok {
				counters[pe.saiID] = fields
			}
		}

		entryFields, ok, err := u.db.GetAll(ctx, "PORT_TABLE:"+name)
		if err != nil {
			u.logger.Warn("ifmib: port_table get_all failed", "port", name, "error", err)
		} else if ok {
			pe.haveAdmin = true
			pe.adminUp = string(entryFields["admin_status"]) == "up"
			pe.haveOper = true
			pe.operUp = string(entryFields["oper_status"]) == "up"
			if mtu, ok := entryFields["mtu"]; ok {
				if v, err := strconv.ParseUint(string(mtu), 10, 32); err == nil {
					pe.mtu = uint32(v)
				}
			}
		}
		ports[name] = pe
	}

	u.snapshot.Store(&snapshot{
		ifRange:  snap.ifRange,
		oidName:  snap.oidName,
		oidIsLag: snap.oidIsLag,
		ports:    ports,
		lags:     snap.lags,
		counters: counters,
	})
	return nil
}

func (u *Updater) current() *snapshot { return u.snapshot.Load() }

// IfRange returns the sorted ifIndex values currently known, for GetNext
// iteration.
func (u *Updater) IfRange() []uint32 { return append([]uint32(nil), u.current().ifRange...) }

// IfNumber is ifNumber: the count of known interfaces (ports + LAGs).
func (u *Updater) IfNumber() int { return len(u.current().ifRange) }

// IndexOf resolves an interface name to its ifIndex, for adapters (arp, in
// particular) that key their own rows by interface name. Returns (0, false)
// when portName names neither a port nor a LAG currently known.
func (u *Updater) IndexOf(portName string) (uint32, bool) {
	idx := u.indexOf(portName)
	return idx, idx != 0
}

// Resolver adapts IndexOf to the arp adapter's IndexResolver shape.
func (u *Updater) Resolver() func(ifName string) (uint32, bool) {
	return u.IndexOf
}

func (u *Updater) rawCounter(ifIndex uint32, table string) (uint64, bool) {
	snap := u.current()
	if snap.oidIsLag[ifIndex] {
		name := snap.oidName[ifIndex]
		lag := snap.lags[name]
		var sum uint64
		for _, member := range lag.members {
			memberIdx := u.indexOf(member)
			if memberIdx == 0 {
				continue
			}
			v, ok := u.rawCounter(memberIdx, table)
			if !ok {
				continue
			}
			sum += v
		}
		return sum, true
	}

	name, ok := snap.oidName[ifIndex]
	if !ok {
		return 0, false
	}
	pe, ok := snap.ports[name]
	if !ok || pe.saiID == "" {
		return 0, false
	}
	fields, ok := snap.counters[pe.saiID]
	if !ok {
		return 0, false
	}
	raw, ok := fields[table]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		u.logger.Warn("ifmib: malformed counter", "table", table, "value", string(raw))
		return 0, false
	}
	return v, true
}

func (u *Updater) indexOf(portName string) uint32 {
	snap := u.current()
	for idx, name := range snap.oidName {
		if name == portName {
			return idx
		}
	}
	return 0
}

// PortIndexBySAIID maps a physical port's SAI object id (the
// COUNTERS_PORT_NAME_MAP value, e.g. "0x1000000000001") to its ifIndex, for
// adapters that learn a port by its SAI handle rather than its name — the
// fdb adapter's bridge-port resolution chain in particular.
func (u *Updater) PortIndexBySAIID(saiID string) (uint32, bool) {
	snap := u.current()
	for name, pe := range snap.ports {
		if pe.saiID == saiID {
			return u.indexOf(name), true
		}
	}
	return 0, false
}

// GetCounter32 returns the masked-to-32-bit counter for ifIndex, summing LAG
// member counters first when ifIndex names a LAG, then masking the sum —
// matching _get_counter's "truncate to 32-bit counter" comment.
func (u *Updater) GetCounter32(ifIndex uint32, table Counter32Table) (uint32, bool) {
	v, ok := u.rawCounter(ifIndex, string(table))
	if !ok {
		return 0, false
	}
	return uint32(v & mask32), true
}

// GetCounter64 returns the full 64-bit counter for ifIndex, summing LAG
// members unmasked — the ifXTable "HC" counters never truncate.
func (u *Updater) GetCounter64(ifIndex uint32, table Counter64Table) (uint64, bool) {
	v, ok := u.rawCounter(ifIndex, string(table))
	if !ok {
		return 0, false
	}
	return v & mask64, true
}

// Name returns ifDescr/ifName for ifIndex.
func (u *Updater) Name(ifIndex uint32) (string, bool) {
	snap := u.current()
	name, ok := snap.oidName[ifIndex]
	if !ok {
		return "", false
	}
	if snap.oidIsLag[ifIndex] {
		return name, true
	}
	pe := snap.ports[name]
	return pe.alias, true
}

// AdminStatus returns ifAdminStatus for ifIndex, defaulting to down when the
// DB entry is silent (the reference updater's documented behavior: "If
// state is not in DB entry assume interface is down").
func (u *Updater) AdminStatus(ifIndex uint32) (AdminOperStatus, bool) {
	return u.status(ifIndex, true)
}

// OperStatus returns ifOperStatus for ifIndex, same default-down rule.
func (u *Updater) OperStatus(ifIndex uint32) (AdminOperStatus, bool) {
	return u.status(ifIndex, false)
}

func (u *Updater) status(ifIndex uint32, admin bool) (AdminOperStatus, bool) {
	snap := u.current()
	name, ok := snap.oidName[ifIndex]
	if !ok {
		return 0, false
	}
	if snap.oidIsLag[ifIndex] {
		return StatusDown, true
	}
	pe, ok := snap.ports[name]
	if !ok {
		return StatusDown, true
	}
	up := pe.operUp
	if admin {
		up = pe.adminUp
	}
	if up {
		return StatusUp, true
	}
	return StatusDown, true
}

// MTU returns ifMtu for ifIndex.
func (u *Updater) MTU(ifIndex uint32) (uint32, bool) {
	snap := u.current()
	name, ok := snap.oidName[ifIndex]
	if !ok || snap.oidIsLag[ifIndex] {
		return 0, ok
	}
	return snap.ports[name].mtu, true
}
