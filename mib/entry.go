// Package mib implements the declarative OID-subtree registry described by
// the MIB registry & table design: a build-time composition of scalar and
// dynamic-subtree entries into a single sorted lookup structure, with Get and
// GetNext semantics uniform across both kinds.
package mib

import "github.com/vpbank/ax-subagent/wire"

// Producer yields the current value for a scalar entry, or (Value{}, false)
// if the value is presently unavailable (translated to NO_SUCH_INSTANCE).
type Producer func() (wire.Value, bool)

// SubtreeProducer yields the value at a given sub-identifier suffix within a
// dynamic subtree, or (Value{}, false) if no instance exists at that suffix.
type SubtreeProducer func(subID wire.OID) (wire.Value, bool)

// SubtreeIterator walks the sub-identifiers of a dynamic subtree in
// ascending lexicographic order. First returns the smallest sub-identifier
// present, or (wire.OID{}, false) if the subtree is currently empty. Next
// returns the smallest sub-identifier strictly greater than current, or
// (wire.OID{}, false) if current is the last one.
type SubtreeIterator interface {
	First() (wire.OID, bool)
	Next(current wire.OID) (wire.OID, bool)
}

// Entry is one registered OID-prefix binding: either a scalar (a single
// instance at the prefix itself, conventionally suffixed by ".0") or a
// dynamic subtree (many instances, keyed by an updater-maintained cache).
type Entry struct {
	Prefix wire.OID

	// scalar path
	scalar Producer

	// subtree path
	iterator SubtreeIterator
	subtree  SubtreeProducer
}

// NewScalarEntry builds an Entry that answers exactly one instance, at
// Prefix itself (suffix length zero).
func NewScalarEntry(prefix wire.OID, producer Producer) Entry {
	return Entry{Prefix: prefix, scalar: producer}
}

// NewSubtreeEntry builds an Entry backed by a dynamic, iterable key space.
func NewSubtreeEntry(prefix wire.OID, iter SubtreeIterator, producer SubtreeProducer) Entry {
	return Entry{Prefix: prefix, iterator: iter, subtree: producer}
}

// IsScalar reports whether this entry is the single-instance kind.
func (e Entry) IsScalar() bool { return e.scalar != nil }

// ValueAt returns the value at the given suffix (empty for a scalar entry's
// sole instance), or false if no instance exists there.
func (e Entry) ValueAt(subID wire.OID) (wire.Value, bool) {
	if e.IsScalar() {
		if subID.Len() != 0 {
			return wire.Value{}, false
		}
		return e.scalar()
	}
	return e.subtree(subID)
}

// FirstSubID returns the lexicographically smallest suffix with a value
// currently present under this entry.
func (e Entry) FirstSubID() (wire.OID, bool) {
	if e.IsScalar() {
		return wire.NewOID(), true
	}
	return e.iterator.First()
}

// NextSubID returns the smallest suffix strictly greater than current with a
// value currently present under this entry.
func (e Entry) NextSubID(current wire.OID) (wire.OID, bool) {
	if e.IsScalar() {
		return wire.OID{}, false
	}
	return e.iterator.Next(current)
}
