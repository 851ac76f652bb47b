package wire

import "encoding/binary"

// ValueType is the 2-byte type tag carried by every VarBind, per RFC 2741
// §5.4 and the table in §3 of the design.
type ValueType uint16

const (
	Integer          ValueType = 2
	OctetString      ValueType = 4
	Null             ValueType = 5
	ObjectIdentifier ValueType = 6
	IPAddress        ValueType = 64
	Counter32        ValueType = 65
	Gauge32          ValueType = 66
	TimeTicks        ValueType = 67
	Opaque           ValueType = 68
	Counter64        ValueType = 70
	NoSuchObject     ValueType = 128
	NoSuchInstance   ValueType = 129
	EndOfMibView     ValueType = 130
)

// String renders the value type's symbolic name, falling back to the
// numeric tag for anything this codec doesn't recognize.
func (t ValueType) String() string {
	switch t {
	case Integer:
		return "Integer"
	case OctetString:
		return "OctetString"
	case Null:
		return "Null"
	case ObjectIdentifier:
		return "ObjectIdentifier"
	case IPAddress:
		return "IpAddress"
	case Counter32:
		return "Counter32"
	case Gauge32:
		return "Gauge32"
	case TimeTicks:
		return "TimeTicks"
	case Opaque:
		return "Opaque"
	case Counter64:
		return "Counter64"
	case NoSuchObject:
		return "NoSuchObject"
	case NoSuchInstance:
		return "NoSuchInstance"
	case EndOfMibView:
		return "EndOfMibView"
	default:
		return "Unknown"
	}
}

// IsEmptyType reports whether the type carries no payload bytes at all
// (NULL and the three error sentinels).
func (t ValueType) IsEmptyType() bool {
	switch t {
	case Null, NoSuchObject, NoSuchInstance, EndOfMibView:
		return true
	default:
		return false
	}
}

// Value is a tagged union holding exactly the payload implied by its Type.
// Only the field(s) relevant to Type are meaningful; constructors below are
// the supported way to build one.
type Value struct {
	Type ValueType

	Int32  int32  // Integer
	Uint32 uint32 // Counter32, Gauge32, TimeTicks
	Uint64 uint64 // Counter64
	Bytes  []byte // OctetString, Opaque, IPAddress (4 bytes)
	OID    OID    // ObjectIdentifier
}

func IntegerValue(v int32) Value            { return Value{Type: Integer, Int32: v} }
func OctetStringValue(b []byte) Value       { return Value{Type: OctetString, Bytes: b} }
func NullValue() Value                      { return Value{Type: Null} }
func ObjectIdentifierValue(o OID) Value     { return Value{Type: ObjectIdentifier, OID: o} }
func Counter32Value(v uint32) Value         { return Value{Type: Counter32, Uint32: v & 0xffffffff} }
func Gauge32Value(v uint32) Value           { return Value{Type: Gauge32, Uint32: v} }
func TimeTicksValue(v uint32) Value         { return Value{Type: TimeTicks, Uint32: v} }
func OpaqueValue(b []byte) Value            { return Value{Type: Opaque, Bytes: b} }
func Counter64Value(v uint64) Value         { return Value{Type: Counter64, Uint64: v} }
func NoSuchObjectValue() Value              { return Value{Type: NoSuchObject} }
func NoSuchInstanceValue() Value            { return Value{Type: NoSuchInstance} }
func EndOfMibViewValue() Value              { return Value{Type: EndOfMibView} }

// IPAddressValue builds an IP_ADDRESS value from a 4-byte slice. It returns
// ErrEncodeInvalid if ip is not exactly 4 bytes.
func IPAddressValue(ip []byte) (Value, error) {
	if len(ip) != 4 {
		return Value{}, ErrEncodeInvalid
	}
	cp := make([]byte, 4)
	copy(cp, ip)
	return Value{Type: IPAddress, Bytes: cp}, nil
}

// padLen returns the number of zero bytes needed to round n up to a 4-byte
// boundary.
func padLen(n int) int { return (4 - n%4) % 4 }

// encodeOctets writes a 4-byte length, the data, and zero padding to the
// next 4-byte boundary — the shared representation for OctetString, Opaque,
// and IPAddress.
func encodeOctets(b []byte, order binary.ByteOrder) []byte {
	pad := padLen(len(b))
	out := make([]byte, 4+len(b)+pad)
	order.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

// decodeOctets is the inverse of encodeOctets; it returns the data bytes and
// the total number of bytes (including length field and padding) consumed.
func decodeOctets(b []byte, order binary.ByteOrder) (data []byte, n int, err error) {
	if len(b) < 4 {
		return nil, 0, ErrShortBuffer
	}
	length := int(order.Uint32(b))
	pad := padLen(length)
	total := 4 + length + pad
	if len(b) < total {
		return nil, 0, ErrShortBuffer
	}
	data = make([]byte, length)
	copy(data, b[4:4+length])
	return data, total, nil
}

// encodePayload serializes only the type-specific payload of v (the part
// after a VarBind's name), per the wire-size table in §3.
func encodePayload(v Value, networkByteOrder bool) ([]byte, error) {
	order := byteOrder(networkByteOrder)

	switch v.Type {
	case Integer:
		buf := make([]byte, 4)
		order.PutUint32(buf, uint32(v.Int32))
		return buf, nil

	case Counter32, Gauge32, TimeTicks:
		buf := make([]byte, 4)
		order.PutUint32(buf, v.Uint32)
		return buf, nil

	case Counter64:
		buf := make([]byte, 8)
		order.PutUint64(buf, v.Uint64)
		return buf, nil

	case OctetString, Opaque, IPAddress:
		return encodeOctets(v.Bytes, order), nil

	case ObjectIdentifier:
		return EncodeOID(v.OID, false, networkByteOrder), nil

	case Null, NoSuchObject, NoSuchInstance, EndOfMibView:
		return nil, nil

	default:
		return nil, ErrEncodeInvalid
	}
}

// decodePayload parses the type-specific payload of a value given its type
// tag, returning the value and the number of bytes consumed.
func decodePayload(t ValueType, b []byte, networkByteOrder bool) (Value, int, error) {
	order := byteOrder(networkByteOrder)

	switch t {
	case Integer:
		if len(b) < 4 {
			return Value{}, 0, ErrShortBuffer
		}
		return Value{Type: Integer, Int32: int32(order.Uint32(b))}, 4, nil

	case Counter32, Gauge32, TimeTicks:
		if len(b) < 4 {
			return Value{}, 0, ErrShortBuffer
		}
		return Value{Type: t, Uint32: order.Uint32(b)}, 4, nil

	case Counter64:
		if len(b) < 8 {
			return Value{}, 0, ErrShortBuffer
		}
		return Value{Type: Counter64, Uint64: order.Uint64(b)}, 8, nil

	case OctetString, Opaque, IPAddress:
		data, n, err := decodeOctets(b, order)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Type: t, Bytes: data}, n, nil

	case ObjectIdentifier:
		oid, _, n, err := DecodeOID(b, networkByteOrder)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Type: ObjectIdentifier, OID: oid}, n, nil

	case Null, NoSuchObject, NoSuchInstance, EndOfMibView:
		return Value{Type: t}, 0, nil

	default:
		return Value{}, 0, ErrUnknownValueType
	}
}
