package ifmib

import (
	"github.com/vpbank/ax-subagent/mib"
	"github.com/vpbank/ax-subagent/wire"
)

// ifIndexIterator walks the sorted ifIndex range exposed by an Updater,
// generalized from the fdb and arp adapters' own iterator shape (a single
// sorted slice plus binary search) to the coarser "one sub-identifier per
// entry" key space of ifTable/ifXTable columns.
type ifIndexIterator struct{ u *Updater }

func (it ifIndexIterator) First() (wire.OID, bool) {
	r := it.u.IfRange()
	if len(r) == 0 {
		return wire.OID{}, false
	}
	return wire.NewOID(r[0]), true
}

func (it ifIndexIterator) Next(current wire.OID) (wire.OID, bool) {
	if current.Len() != 1 {
		return wire.OID{}, false
	}
	r := it.u.IfRange()
	cur := current.At(0)
	for _, idx := range r {
		if idx > cur {
			return wire.NewOID(idx), true
		}
	}
	return wire.OID{}, false
}

func subIDToIndex(subID wire.OID) (uint32, bool) {
	if subID.Len() != 1 {
		return 0, false
	}
	return subID.At(0), true
}

// Counter32Entry builds the mib.Entry for one ifTable 32-bit counter column
// (e.g. ifInOctets) at prefix.
func (u *Updater) Counter32Entry(prefix wire.OID, table Counter32Table) mib.Entry {
	return mib.NewSubtreeEntry(prefix, ifIndexIterator{u: u}, func(subID wire.OID) (wire.Value, bool) {
		idx, ok := subIDToIndex(subID)
		if !ok {
			return wire.Value{}, false
		}
		v, ok := u.GetCounter32(idx, table)
		if !ok {
			return wire.Value{}, false
		}
		return wire.Counter32Value(v), true
	})
}

// Counter64Entry builds the mib.Entry for one ifXTable 64-bit "HC" counter
// column (e.g. ifHCInOctets) at prefix.
func (u *Updater) Counter64Entry(prefix wire.OID, table Counter64Table) mib.Entry {
	return mib.NewSubtreeEntry(prefix, ifIndexIterator{u: u}, func(subID wire.OID) (wire.Value, bool) {
		idx, ok := subIDToIndex(subID)
		if !ok {
			return wire.Value{}, false
		}
		v, ok := u.GetCounter64(idx, table)
		if !ok {
			return wire.Value{}, false
		}
		return wire.Counter64Value(v), true
	})
}

// NameEntry builds the mib.Entry for ifDescr/ifName at prefix.
func (u *Updater) NameEntry(prefix wire.OID) mib.Entry {
	return mib.NewSubtreeEntry(prefix, ifIndexIterator{u: u}, func(subID wire.OID) (wire.Value, bool) {
		idx, ok := subIDToIndex(subID)
		if !ok {
			return wire.Value{}, false
		}
		name, ok := u.Name(idx)
		if !ok {
			return wire.Value{}, false
		}
		return wire.OctetStringValue([]byte(name)), true
	})
}

// AdminStatusEntry builds the mib.Entry for ifAdminStatus at prefix.
func (u *Updater) AdminStatusEntry(prefix wire.OID) mib.Entry {
	return mib.NewSubtreeEntry(prefix, ifIndexIterator{u: u}, func(subID wire.OID) (wire.Value, bool) {
		idx, ok := subIDToIndex(subID)
		if !ok {
			return wire.Value{}, false
		}
		st, ok := u.AdminStatus(idx)
		if !ok {
			return wire.Value{}, false
		}
		return wire.IntegerValue(int32(st)), true
	})
}

// OperStatusEntry builds the mib.Entry for ifOperStatus at prefix.
func (u *Updater) OperStatusEntry(prefix wire.OID) mib.Entry {
	return mib.NewSubtreeEntry(prefix, ifIndexIterator{u: u}, func(subID wire.OID) (wire.Value, bool) {
		idx, ok := subIDToIndex(subID)
		if !ok {
			return wire.Value{}, false
		}
		st, ok := u.OperStatus(idx)
		if !ok {
			return wire.Value{}, false
		}
		return wire.IntegerValue(int32(st)), true
	})
}

// MTUEntry builds the mib.Entry for ifMtu at prefix.
func (u *Updater) MTUEntry(prefix wire.OID) mib.Entry {
	return mib.NewSubtreeEntry(prefix, ifIndexIterator{u: u}, func(subID wire.OID) (wire.Value, bool) {
		idx, ok := subIDToIndex(subID)
		if !ok {
			return wire.Value{}, false
		}
		mtu, ok := u.MTU(idx)
		if !ok {
			return wire.Value{}, false
		}
		return wire.Gauge32Value(mtu), true
	})
}

// IfNumberEntry builds the mib.Entry for the scalar ifNumber.0 at prefix.
func (u *Updater) IfNumberEntry(prefix wire.OID) mib.Entry {
	return mib.NewScalarEntry(prefix, func() (wire.Value, bool) {
		return wire.IntegerValue(int32(u.IfNumber())), true
	})
}
