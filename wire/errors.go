package wire

import "errors"

// Sentinel decode/encode errors. Callers use errors.Is against these; the
// session layer maps them to the recovery policy described by the protocol
// error taxonomy (drop the PDU, or reset the session).
var (
	// ErrShortBuffer means fewer bytes were available than the structure
	// being decoded requires.
	ErrShortBuffer = errors.New("wire: short buffer")

	// ErrMalformed means the input is structurally invalid even though
	// enough bytes are present; ParseOID returns it for an empty,
	// non-numeric or overflowing component. A payload length larger than
	// the bytes present is reported as ErrShortBuffer instead.
	ErrMalformed = errors.New("wire: malformed PDU")

	// ErrUnknownType means the PDU type byte did not match any recognized
	// AgentX PDU type.
	ErrUnknownType = errors.New("wire: unsupported PDU type")

	// ErrUnknownValueType means a VarBind's type tag did not match any
	// value type in §3's table.
	ErrUnknownValueType = errors.New("wire: unknown value type")

	// ErrEncodeInvalid means a value could not be encoded as declared,
	// e.g. a negative value offered for an unsigned type.
	ErrEncodeInvalid = errors.New("wire: value invalid for encoding")
)
