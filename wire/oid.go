// Package wire implements the RFC 2741 AgentX wire codec: bit-exact
// encoding/decoding of PDU headers, Object Identifiers, octet strings, typed
// VarBinds, and the administrative/request/response PDU bodies. Every
// multi-byte integer in a PDU is encoded in the endianness carried by that
// PDU's own header flag — this package never assumes network byte order.
package wire

import (
	"encoding/binary"
	"fmt"
)

// internetPrefix is the 4-component prefix eligible for the 5th-component
// compression described in RFC 2741 §5.1: OIDs beginning with 1.3.6.1.x
// encode x as a single-byte prefix tag and omit the first four components.
var internetPrefix = [4]uint32{1, 3, 6, 1}

// OID is an Object Identifier: an ordered sequence of unsigned 32-bit
// sub-identifiers. It is a value type — comparisons and copies never touch
// the heap beyond the backing slice, and the zero value is the null OID.
type OID struct {
	ids []uint32
}

// NewOID builds an OID from its sub-identifier components.
func NewOID(ids ...uint32) OID {
	cp := make([]uint32, len(ids))
	copy(cp, ids)
	return OID{ids: cp}
}

// Len returns the number of sub-identifiers.
func (o OID) Len() int { return len(o.ids) }

// At returns the i-th sub-identifier.
func (o OID) At(i int) uint32 { return o.ids[i] }

// IDs returns the underlying sub-identifier slice. Callers must not mutate it.
func (o OID) IDs() []uint32 { return o.ids }

// IsNull reports whether this is the zero-length null OID.
func (o OID) IsNull() bool { return len(o.ids) == 0 }

// Append returns a new OID with the given sub-identifiers appended.
func (o OID) Append(ids ...uint32) OID {
	out := make([]uint32, 0, len(o.ids)+len(ids))
	out = append(out, o.ids...)
	out = append(out, ids...)
	return OID{ids: out}
}

// HasPrefix reports whether prefix is a component-wise prefix of o (or equal
// to o).
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix.ids) > len(o.ids) {
		return false
	}
	for i, v := range prefix.ids {
		if o.ids[i] != v {
			return false
		}
	}
	return true
}

// TrimPrefix returns the sub-identifiers of o following prefix. It does not
// check that prefix matches: it drops len(prefix) leading components, and
// panics only if prefix is longer than o — callers check HasPrefix first.
func (o OID) TrimPrefix(prefix OID) OID {
	return OID{ids: append([]uint32(nil), o.ids[len(prefix.ids):]...)}
}

// Compare returns -1, 0, or 1 per the component-wise lexicographic order
// defined in RFC 2741 §5.1: shorter OIDs sort before longer ones that share
// the same leading components.
func (o OID) Compare(other OID) int {
	n := len(o.ids)
	if len(other.ids) < n {
		n = len(other.ids)
	}
	for i := 0; i < n; i++ {
		if o.ids[i] < other.ids[i] {
			return -1
		}
		if o.ids[i] > other.ids[i] {
			return 1
		}
	}
	switch {
	case len(o.ids) < len(other.ids):
		return -1
	case len(o.ids) > len(other.ids):
		return 1
	default:
		return 0
	}
}

// Equal reports whether o and other have identical sub-identifiers.
func (o OID) Equal(other OID) bool { return o.Compare(other) == 0 }

// String renders the OID in dotted-decimal form with a leading dot, e.g.
// ".1.3.6.1.2.1.4.22.1.2".
func (o OID) String() string {
	s := ""
	for _, id := range o.ids {
		s += fmt.Sprintf(".%d", id)
	}
	if s == "" {
		return "."
	}
	return s
}

// byteOrder resolves the binary.ByteOrder implied by the NETWORK_BYTE_ORDER
// header flag: set means big-endian (network order), clear means
// little-endian.
func byteOrder(networkByteOrder bool) binary.ByteOrder {
	if networkByteOrder {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// EncodeOID serializes o per RFC 2741 §5.1: a 4-byte header
// (n_subid, prefix, include, reserved=0) followed by n_subid 32-bit
// sub-identifiers. When o begins with 1.3.6.1.<x> with x in 1..255, the
// first five components are elided and prefix is set to x (a prefix byte
// of 0 means "no prefix", so x = 0 is sent uncompressed).
func EncodeOID(o OID, include bool, networkByteOrder bool) []byte {
	order := byteOrder(networkByteOrder)

	ids := o.ids
	var prefix byte
	if len(ids) >= 5 && ids[0] == internetPrefix[0] && ids[1] == internetPrefix[1] &&
		ids[2] == internetPrefix[2] && ids[3] == internetPrefix[3] && ids[4] >= 1 && ids[4] <= 0xff {
		prefix = byte(ids[4])
		ids = ids[5:]
	}

	buf := make([]byte, 4+4*len(ids))
	buf[0] = byte(len(ids))
	buf[1] = prefix
	if include {
		buf[2] = 1
	}
	buf[3] = 0
	for i, id := range ids {
		order.PutUint32(buf[4+4*i:], id)
	}
	return buf
}

// DecodeOID parses the wire representation produced by EncodeOID, returning
// the reconstructed OID, whether the include bit was set, and the number of
// bytes consumed.
func DecodeOID(b []byte, networkByteOrder bool) (oid OID, include bool, n int, err error) {
	if len(b) < 4 {
		return OID{}, false, 0, ErrShortBuffer
	}
	nSubID := int(b[0])
	prefix := b[1]
	include = b[2] != 0

	need := 4 + 4*nSubID
	if len(b) < need {
		return OID{}, false, 0, ErrShortBuffer
	}

	order := byteOrder(networkByteOrder)
	var ids []uint32
	if prefix != 0 {
		ids = make([]uint32, 0, nSubID+5)
		ids = append(ids, internetPrefix[0], internetPrefix[1], internetPrefix[2], internetPrefix[3], uint32(prefix))
	} else {
		ids = make([]uint32, 0, nSubID)
	}
	for i := 0; i < nSubID; i++ {
		ids = append(ids, order.Uint32(b[4+4*i:]))
	}
	return OID{ids: ids}, include, need, nil
}

// NullOID returns the zero-length OID used as a placeholder in OpenPDU
// (subagents without an identity OID send this).
func NullOID() OID { return OID{} }

// ParseOID parses a dot-delimited OID string such as ".1.3.6.1.2.1.4" or
// "1.3.6.1.2.1.4" (a leading dot is optional) into an OID.
func ParseOID(s string) (OID, error) {
	if len(s) > 0 && s[0] == '.' {
		s = s[1:]
	}
	if s == "" {
		return OID{}, nil
	}
	var ids []uint32
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if i == start {
				return OID{}, fmt.Errorf("%w: empty component in %q", ErrMalformed, s)
			}
			var v uint64
			for _, c := range s[start:i] {
				if c < '0' || c > '9' {
					return OID{}, fmt.Errorf("%w: non-numeric component in %q", ErrMalformed, s)
				}
				v = v*10 + uint64(c-'0')
				if v > 0xffffffff {
					return OID{}, fmt.Errorf("%w: component overflow in %q", ErrMalformed, s)
				}
			}
			ids = append(ids, uint32(v))
			start = i + 1
		}
	}
	return OID{ids: ids}, nil
}

// ParseOIDMust is ParseOID for compile-time-constant OID literals; it
// panics on malformed input, which a hardcoded MIB-module prefix should
// never produce.
func ParseOIDMust(s string) OID {
	o, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return o
}
