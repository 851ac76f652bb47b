package mib

import (
	"sort"

	"github.com/vpbank/ax-subagent/wire"
)

// Table is the composed, queryable lookup structure produced by Build. It
// answers Get and GetNext uniformly over scalar and subtree entries.
type Table struct {
	// entries is sorted by Prefix ascending; entries[i] corresponds to
	// prefixes[i].
	entries  []Entry
	prefixes []wire.OID
}

// coveringIndex returns the index of the longest registered prefix that is a
// component-wise prefix of (or equal to) oid, or -1 if none covers it.
func (t *Table) coveringIndex(oid wire.OID) int {
	best := -1
	bestLen := -1
	for i, p := range t.prefixes {
		if oid.HasPrefix(p) && p.Len() > bestLen {
			best = i
			bestLen = p.Len()
		}
	}
	return best
}

// Get implements the exact-match lookup algorithm from the MIB registry
// design: find the longest covering prefix, invoke its producer with the
// remaining suffix, and translate producer absence into NO_SUCH_INSTANCE.
func (t *Table) Get(sr wire.SearchRange) wire.VarBind {
	idx := t.coveringIndex(sr.Start)
	if idx < 0 {
		return wire.VarBind{Name: sr.Start, Data: wire.NoSuchObjectValue()}
	}
	entry := t.entries[idx]
	subID := sr.Start.TrimPrefix(t.prefixes[idx])
	val, ok := entry.ValueAt(subID)
	if !ok {
		return wire.VarBind{Name: sr.Start, Data: wire.NoSuchInstanceValue()}
	}
	return wire.VarBind{Name: sr.Start, Data: val}
}

// GetNext implements the lexicographic-successor algorithm: if a prefix
// covers sr.Start, try an inclusive exact match first (when sr.Include),
// then ask that entry's iterator for the next suffix; otherwise binary
// search the sorted prefix list for the next subtree entirely and take its
// first instance, skipping empty subtrees. The walk stops at sr.End.
func (t *Table) GetNext(sr wire.SearchRange) wire.VarBind {
	if idx := t.coveringIndex(sr.Start); idx >= 0 {
		entry := t.entries[idx]
		prefix := t.prefixes[idx]
		subID := sr.Start.TrimPrefix(prefix)

		if sr.Include {
			if val, ok := entry.ValueAt(subID); ok {
				name := prefix.Append(subID.IDs()...)
				if endOfMIB(name, sr.End) {
					return endOfMIBVarBind(sr.Start)
				}
				return wire.VarBind{Name: name, Data: val}
			}
		}

		if nextSub, ok := entry.NextSubID(subID); ok {
			name := prefix.Append(nextSub.IDs()...)
			if endOfMIB(name, sr.End) {
				return endOfMIBVarBind(sr.Start)
			}
			if val, ok := entry.ValueAt(nextSub); ok {
				return wire.VarBind{Name: name, Data: val}
			}
		}

		return t.nextFromIndex(idx+1, sr)
	}

	start := sort.Search(len(t.prefixes), func(i int) bool {
		return t.prefixes[i].Compare(sr.Start) > 0
	})
	return t.nextFromIndex(start, sr)
}

// nextFromIndex scans entries starting at i, returning the first entry's
// first concrete instance, skipping entries whose subtree is presently
// empty.
func (t *Table) nextFromIndex(i int, sr wire.SearchRange) wire.VarBind {
	for ; i < len(t.entries); i++ {
		entry := t.entries[i]
		prefix := t.prefixes[i]
		firstSub, ok := entry.FirstSubID()
		if !ok {
			continue
		}
		val, ok := entry.ValueAt(firstSub)
		if !ok {
			continue
		}
		name := prefix.Append(firstSub.IDs()...)
		if endOfMIB(name, sr.End) {
			return endOfMIBVarBind(sr.Start)
		}
		return wire.VarBind{Name: name, Data: val}
	}
	return endOfMIBVarBind(sr.Start)
}

func endOfMIB(candidate wire.OID, end wire.OID) bool {
	if end.IsNull() {
		return false
	}
	return candidate.Compare(end) >= 0
}

func endOfMIBVarBind(name wire.OID) wire.VarBind {
	return wire.VarBind{Name: name, Data: wire.EndOfMibViewValue()}
}
