package mib

import (
	"fmt"
	"sort"

	"github.com/vpbank/ax-subagent/wire"
)

// Builder composes entries from multiple declarative sources into a single
// Table, replacing the call-order multiple-inheritance composition of the
// reference implementation with an explicit, ordered construction: entries
// are added by repeated calls, in the order the caller chooses. Call order
// does not settle collisions: Build rejects two entries registered at an
// identical prefix, and nested prefixes resolve to the longest covering one.
type Builder struct {
	entries []Entry
	err     error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// AddScalar registers a single-instance entry at prefix.
func (b *Builder) AddScalar(prefix wire.OID, producer Producer) *Builder {
	b.entries = append(b.entries, NewScalarEntry(prefix, producer))
	return b
}

// AddSubtree registers a dynamic, iterable entry at prefix.
func (b *Builder) AddSubtree(prefix wire.OID, iter SubtreeIterator, producer SubtreeProducer) *Builder {
	b.entries = append(b.entries, NewSubtreeEntry(prefix, iter, producer))
	return b
}

// AddEntry registers an already-built Entry, for callers (typically a
// dbconn-backed adapter's own AsEntry/*Entry constructor) that assemble
// their Entry value directly rather than through AddScalar/AddSubtree.
func (b *Builder) AddEntry(e Entry) *Builder {
	b.entries = append(b.entries, e)
	return b
}

// Merge appends every entry from another Builder, preserving its internal
// call order as a contiguous block — this is how one declarative MIB module
// is composed into a larger table alongside others.
func (b *Builder) Merge(other *Builder) *Builder {
	if other.err != nil && b.err == nil {
		b.err = other.err
	}
	b.entries = append(b.entries, other.entries...)
	return b
}

// Build validates the accumulated entries and produces a Table. Two entries
// registered at an identical prefix are a configuration error, rejected
// here rather than silently resolved at lookup time. Nesting prefixes
// (one entry's prefix a strict ancestor of another's) are unaffected —
// Table.Get always resolves to the longest covering prefix.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}

	seen := make(map[string]int, len(b.entries))
	for i, e := range b.entries {
		key := e.Prefix.String()
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("mib: duplicate prefix %s (entries %d and %d)", key, prev, i)
		}
		seen[key] = i
	}

	idx := make([]int, len(b.entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool {
		return b.entries[idx[x]].Prefix.Compare(b.entries[idx[y]].Prefix) < 0
	})

	t := &Table{
		entries:  make([]Entry, len(idx)),
		prefixes: make([]wire.OID, len(idx)),
	}
	for pos, i := range idx {
		t.entries[pos] = b.entries[i]
		t.prefixes[pos] = b.entries[i].Prefix
	}
	return t, nil
}
