package wire

import "encoding/binary"

// PDUType identifies the kind of AgentX PDU a header describes.
type PDUType uint8

const (
	TypeOpen             PDUType = 1
	TypeClose            PDUType = 2
	TypeRegister         PDUType = 3
	TypeUnregister       PDUType = 4
	TypeGet              PDUType = 5
	TypeGetNext          PDUType = 6
	TypeGetBulk          PDUType = 7
	TypeTestSet          PDUType = 8
	TypeCommitSet        PDUType = 9
	TypeUndoSet          PDUType = 10
	TypeCleanupSet       PDUType = 11
	TypeNotify           PDUType = 12
	TypePing             PDUType = 13
	TypeIndexAllocate    PDUType = 14
	TypeIndexDeallocate  PDUType = 15
	TypeAddAgentCaps     PDUType = 16
	TypeRemoveAgentCaps  PDUType = 17
	TypeResponse         PDUType = 18
)

// Header flag bits, RFC 2741 §6.1.
const (
	FlagInstanceRegistration uint8 = 0x01
	FlagNewIndex             uint8 = 0x02
	FlagAnyIndex             uint8 = 0x04
	FlagNonDefaultContext    uint8 = 0x08
	FlagNetworkByteOrder     uint8 = 0x10
)

// headerLength is the fixed size of every AgentX PDU header.
const headerLength = 20

// ErrorStatus is the 2-byte error field of a ResponsePDU.
type ErrorStatus uint16

const (
	ErrNoAgentXError    ErrorStatus = 0
	ErrOpenFailed       ErrorStatus = 256
	ErrNotOpen          ErrorStatus = 257
	ErrIndexWrongType   ErrorStatus = 258
	ErrIndexAlreadyAlloc ErrorStatus = 259
	ErrIndexNoneAvail   ErrorStatus = 260
	ErrIndexNotAlloc    ErrorStatus = 261
	ErrUnsupportedContext ErrorStatus = 262
	ErrDuplicateRegistr ErrorStatus = 263
	ErrUnknownRegistr   ErrorStatus = 264
	ErrUnknownAgentCaps ErrorStatus = 265
	ErrParseError       ErrorStatus = 266
	ErrRequestDenied    ErrorStatus = 267
	ErrProcessingError  ErrorStatus = 268

	ErrGenErr    ErrorStatus = 5
	ErrNoSuchName ErrorStatus = 2
	ErrNotWritable ErrorStatus = 17
	ErrWrongValue ErrorStatus = 10
)

// Header is the fixed 20-byte PDU header common to every AgentX message.
type Header struct {
	Version       uint8
	Type          PDUType
	Flags         uint8
	SessionID     uint32
	TransactionID uint32
	PacketID      uint32
	PayloadLength uint32
}

// NetworkByteOrder reports whether this header's payload is big-endian.
func (h Header) NetworkByteOrder() bool { return h.Flags&FlagNetworkByteOrder != 0 }

// NonDefaultContext reports whether a context octet string follows the
// header before the type-specific payload.
func (h Header) NonDefaultContext() bool { return h.Flags&FlagNonDefaultContext != 0 }

// DecodeHeader parses the fixed 20-byte header from the front of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < headerLength {
		return Header{}, ErrShortBuffer
	}
	h := Header{
		Version: b[0],
		Type:    PDUType(b[1]),
		Flags:   b[2],
		// b[3] is reserved.
	}
	order := byteOrder(h.NetworkByteOrder())
	h.SessionID = order.Uint32(b[4:8])
	h.TransactionID = order.Uint32(b[8:12])
	h.PacketID = order.Uint32(b[12:16])
	h.PayloadLength = order.Uint32(b[16:20])
	return h, nil
}

// EncodeHeader serializes h. The PayloadLength field must already be set by
// the caller (the PDU-level encoder back-patches it after building the
// payload).
func EncodeHeader(h Header) []byte {
	buf := make([]byte, headerLength)
	buf[0] = h.Version
	buf[1] = byte(h.Type)
	buf[2] = h.Flags
	buf[3] = 0

	order := byteOrder(h.NetworkByteOrder())
	order.PutUint32(buf[4:8], h.SessionID)
	order.PutUint32(buf[8:12], h.TransactionID)
	order.PutUint32(buf[12:16], h.PacketID)
	order.PutUint32(buf[16:20], h.PayloadLength)
	return buf
}

// putUint32 writes v into the first four bytes of b in the given byte order.
func putUint32(order binary.ByteOrder, b []byte, v uint32) { order.PutUint32(b, v) }
