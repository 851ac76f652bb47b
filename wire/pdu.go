package wire

import (
	"encoding/binary"
	"fmt"
)

// SearchRange carries the (start, end, include) triple that bounds a Get or
// GetNext lookup. Include is folded into the wire encoding of Start's OID
// header (the low "include" byte), not End's.
type SearchRange struct {
	Start   OID
	End     OID
	Include bool
}

// VarBind is one (type, name, data) triple.
type VarBind struct {
	Name OID
	Data Value
}

// PDU is implemented by every decoded AgentX message. PDUHeader returns the
// common 20-byte header so callers can match responses by packetID / build
// a reply with matching session/transaction/packet IDs without a type
// switch.
type PDU interface {
	PDUHeader() Header
}

// ─── Administrative PDUs ───────────────────────────────────────────────────

type OpenPDU struct {
	H       Header
	Context []byte
	Timeout uint8
	ID      OID
	Descr   string
}

func (p *OpenPDU) PDUHeader() Header { return p.H }

type ClosePDU struct {
	H          Header
	Context    []byte
	ReasonCode uint8
}

func (p *ClosePDU) PDUHeader() Header { return p.H }

type RegisterPDU struct {
	H          Header
	Context    []byte
	Timeout    uint8
	Priority   uint8
	RangeSubID uint8
	Subtree    OID
	UpperBound uint32 // only meaningful when RangeSubID != 0
}

func (p *RegisterPDU) PDUHeader() Header { return p.H }

type UnregisterPDU struct {
	H          Header
	Context    []byte
	Priority   uint8
	RangeSubID uint8
	Subtree    OID
	UpperBound uint32
}

func (p *UnregisterPDU) PDUHeader() Header { return p.H }

type NotifyPDU struct {
	H        Header
	Context  []byte
	VarBinds []VarBind
}

func (p *NotifyPDU) PDUHeader() Header { return p.H }

type PingPDU struct {
	H       Header
	Context []byte
}

func (p *PingPDU) PDUHeader() Header { return p.H }

type IndexAllocatePDU struct {
	H        Header
	Context  []byte
	VarBinds []VarBind
}

func (p *IndexAllocatePDU) PDUHeader() Header { return p.H }

type IndexDeallocatePDU struct {
	H        Header
	Context  []byte
	VarBinds []VarBind
}

func (p *IndexDeallocatePDU) PDUHeader() Header { return p.H }

type AddAgentCapsPDU struct {
	H       Header
	Context []byte
	ID      OID
	Descr   string
}

func (p *AddAgentCapsPDU) PDUHeader() Header { return p.H }

type RemoveAgentCapsPDU struct {
	H       Header
	Context []byte
	ID      OID
}

func (p *RemoveAgentCapsPDU) PDUHeader() Header { return p.H }

// ─── Request PDUs ───────────────────────────────────────────────────────────

type GetPDU struct {
	H       Header
	Context []byte
	Ranges  []SearchRange
}

func (p *GetPDU) PDUHeader() Header { return p.H }

type GetNextPDU struct {
	H       Header
	Context []byte
	Ranges  []SearchRange
}

func (p *GetNextPDU) PDUHeader() Header { return p.H }

// GetBulkPDU is decoded but always degraded to GetNext semantics (max
// repetitions = 1) per §6.2 — GetBulk is explicitly out of scope.
type GetBulkPDU struct {
	H              Header
	Context        []byte
	NonRepeaters   uint16
	MaxRepetitions uint16
	Ranges         []SearchRange
}

func (p *GetBulkPDU) PDUHeader() Header { return p.H }

type TestSetPDU struct {
	H        Header
	Context  []byte
	VarBinds []VarBind
}

func (p *TestSetPDU) PDUHeader() Header { return p.H }

type CommitSetPDU struct {
	H       Header
	Context []byte
}

func (p *CommitSetPDU) PDUHeader() Header { return p.H }

type UndoSetPDU struct {
	H       Header
	Context []byte
}

func (p *UndoSetPDU) PDUHeader() Header { return p.H }

type CleanupSetPDU struct {
	H       Header
	Context []byte
}

func (p *CleanupSetPDU) PDUHeader() Header { return p.H }

// ─── Response PDU ───────────────────────────────────────────────────────────

type ResponsePDU struct {
	H          Header
	Context    []byte
	SysUpTime  uint32
	Error      ErrorStatus
	ErrorIndex uint16
	VarBinds   []VarBind
}

func (p *ResponsePDU) PDUHeader() Header { return p.H }

// NewResponse builds a ResponsePDU whose header matches req's session,
// transaction and packet IDs and endianness, per §4.5's response
// construction rule. NON_DEFAULT_CONTEXT is cleared unconditionally: this
// package never echoes a request's context back on a response (no response
// PDU constructed here carries a non-nil Context), and EncodePDU only
// writes context bytes when Context is non-nil, so leaving the inherited
// flag set would emit a header promising a context octet string that never
// follows it.
func NewResponse(req Header, errStatus ErrorStatus, errIndex uint16, varBinds []VarBind) *ResponsePDU {
	h := req
	h.Type = TypeResponse
	h.Flags &^= FlagNonDefaultContext
	return &ResponsePDU{
		H:          h,
		Error:      errStatus,
		ErrorIndex: errIndex,
		VarBinds:   varBinds,
	}
}

// ─── Stream decoding ────────────────────────────────────────────────────────

// DecodePDU decodes a single PDU from the front of b, returning the decoded
// PDU and the remaining bytes. A byte stream may contain several
// concatenated PDUs; callers loop until the remainder is empty.
func DecodePDU(b []byte) (PDU, []byte, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, b, err
	}
	if uint32(len(b)) < uint32(headerLength)+h.PayloadLength {
		return nil, b, ErrShortBuffer
	}
	payload := b[headerLength : headerLength+int(h.PayloadLength)]
	rest := b[headerLength+int(h.PayloadLength):]

	var ctx []byte
	if h.NonDefaultContext() {
		data, n, err := decodeOctets(payload, byteOrder(h.NetworkByteOrder()))
		if err != nil {
			return nil, b, err
		}
		ctx = data
		payload = payload[n:]
	}

	pdu, err := decodeBody(h, ctx, payload)
	if err != nil {
		return nil, b, err
	}
	return pdu, rest, nil
}

func decodeBody(h Header, ctx []byte, p []byte) (PDU, error) {
	order := byteOrder(h.NetworkByteOrder())

	switch h.Type {
	case TypeOpen:
		if len(p) < 4 {
			return nil, ErrShortBuffer
		}
		timeout := p[0]
		oid, _, n, err := DecodeOID(p[4:], h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		descr, _, err := decodeOctets(p[4+n:], order)
		if err != nil {
			return nil, err
		}
		return &OpenPDU{H: h, Context: ctx, Timeout: timeout, ID: oid, Descr: string(descr)}, nil

	case TypeClose:
		if len(p) < 4 {
			return nil, ErrShortBuffer
		}
		return &ClosePDU{H: h, Context: ctx, ReasonCode: p[0]}, nil

	case TypeRegister:
		return decodeRegisterLike(h, ctx, p, order, false)

	case TypeUnregister:
		return decodeRegisterLike(h, ctx, p, order, true)

	case TypeGet:
		ranges, err := decodeSearchRanges(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &GetPDU{H: h, Context: ctx, Ranges: ranges}, nil

	case TypeGetNext:
		ranges, err := decodeSearchRanges(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &GetNextPDU{H: h, Context: ctx, Ranges: ranges}, nil

	case TypeGetBulk:
		if len(p) < 4 {
			return nil, ErrShortBuffer
		}
		nonRep := order.Uint16(p[0:2])
		maxRep := order.Uint16(p[2:4])
		ranges, err := decodeSearchRanges(p[4:], h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &GetBulkPDU{H: h, Context: ctx, NonRepeaters: nonRep, MaxRepetitions: maxRep, Ranges: ranges}, nil

	case TypeTestSet:
		vbs, err := decodeVarBinds(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &TestSetPDU{H: h, Context: ctx, VarBinds: vbs}, nil

	case TypeCommitSet:
		return &CommitSetPDU{H: h, Context: ctx}, nil

	case TypeUndoSet:
		return &UndoSetPDU{H: h, Context: ctx}, nil

	case TypeCleanupSet:
		return &CleanupSetPDU{H: h, Context: ctx}, nil

	case TypeNotify:
		vbs, err := decodeVarBinds(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &NotifyPDU{H: h, Context: ctx, VarBinds: vbs}, nil

	case TypePing:
		return &PingPDU{H: h, Context: ctx}, nil

	case TypeIndexAllocate:
		vbs, err := decodeVarBinds(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &IndexAllocatePDU{H: h, Context: ctx, VarBinds: vbs}, nil

	case TypeIndexDeallocate:
		vbs, err := decodeVarBinds(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &IndexDeallocatePDU{H: h, Context: ctx, VarBinds: vbs}, nil

	case TypeAddAgentCaps:
		oid, _, n, err := DecodeOID(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		descr, _, err := decodeOctets(p[n:], order)
		if err != nil {
			return nil, err
		}
		return &AddAgentCapsPDU{H: h, Context: ctx, ID: oid, Descr: string(descr)}, nil

	case TypeRemoveAgentCaps:
		oid, _, _, err := DecodeOID(p, h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &RemoveAgentCapsPDU{H: h, Context: ctx, ID: oid}, nil

	case TypeResponse:
		if len(p) < 8 {
			return nil, ErrShortBuffer
		}
		sysUpTime := order.Uint32(p[0:4])
		errStatus := ErrorStatus(order.Uint16(p[4:6]))
		errIndex := order.Uint16(p[6:8])
		vbs, err := decodeVarBinds(p[8:], h.NetworkByteOrder())
		if err != nil {
			return nil, err
		}
		return &ResponsePDU{H: h, Context: ctx, SysUpTime: sysUpTime, Error: errStatus, ErrorIndex: errIndex, VarBinds: vbs}, nil

	default:
		return nil, fmt.Errorf("%w: type %d", ErrUnknownType, h.Type)
	}
}

func decodeRegisterLike(h Header, ctx []byte, p []byte, order binary.ByteOrder, isUnregister bool) (PDU, error) {
	if len(p) < 4 {
		return nil, ErrShortBuffer
	}
	var timeout, priority, rangeSubID uint8
	off := 0
	if !isUnregister {
		timeout = p[0]
		priority = p[1]
		rangeSubID = p[2]
		off = 4
	} else {
		priority = p[1]
		rangeSubID = p[2]
		off = 4
	}
	oid, _, n, err := DecodeOID(p[off:], h.NetworkByteOrder())
	if err != nil {
		return nil, err
	}
	off += n

	var upper uint32
	if rangeSubID != 0 {
		if len(p) < off+4 {
			return nil, ErrShortBuffer
		}
		upper = order.Uint32(p[off : off+4])
	}

	if isUnregister {
		return &UnregisterPDU{H: h, Context: ctx, Priority: priority, RangeSubID: rangeSubID, Subtree: oid, UpperBound: upper}, nil
	}
	return &RegisterPDU{H: h, Context: ctx, Timeout: timeout, Priority: priority, RangeSubID: rangeSubID, Subtree: oid, UpperBound: upper}, nil
}

func decodeSearchRanges(p []byte, networkByteOrder bool) ([]SearchRange, error) {
	var ranges []SearchRange
	for len(p) > 0 {
		start, include, n1, err := DecodeOID(p, networkByteOrder)
		if err != nil {
			return nil, err
		}
		p = p[n1:]
		end, _, n2, err := DecodeOID(p, networkByteOrder)
		if err != nil {
			return nil, err
		}
		p = p[n2:]
		ranges = append(ranges, SearchRange{Start: start, End: end, Include: include})
	}
	return ranges, nil
}

func decodeVarBinds(p []byte, networkByteOrder bool) ([]VarBind, error) {
	var vbs []VarBind
	for len(p) > 0 {
		if len(p) < 4 {
			return nil, ErrShortBuffer
		}
		order := byteOrder(networkByteOrder)
		typ := ValueType(order.Uint16(p[0:2]))
		// bytes [2:4] reserved
		p = p[4:]

		name, _, n, err := DecodeOID(p, networkByteOrder)
		if err != nil {
			return nil, err
		}
		p = p[n:]

		val, n2, err := decodePayload(typ, p, networkByteOrder)
		if err != nil {
			return nil, err
		}
		p = p[n2:]

		vbs = append(vbs, VarBind{Name: name, Data: val})
	}
	return vbs, nil
}

// ─── Encoding ────────────────────────────────────────────────────────────────

func encodeSearchRange(sr SearchRange, networkByteOrder bool) []byte {
	var out []byte
	out = append(out, EncodeOID(sr.Start, sr.Include, networkByteOrder)...)
	out = append(out, EncodeOID(sr.End, false, networkByteOrder)...)
	return out
}

func encodeVarBind(vb VarBind, networkByteOrder bool) ([]byte, error) {
	order := byteOrder(networkByteOrder)
	head := make([]byte, 4)
	order.PutUint16(head[0:2], uint16(vb.Data.Type))
	payload, err := encodePayload(vb.Data, networkByteOrder)
	if err != nil {
		return nil, err
	}
	var out []byte
	out = append(out, head...)
	out = append(out, EncodeOID(vb.Name, false, networkByteOrder)...)
	out = append(out, payload...)
	return out, nil
}

// EncodePDU serializes pdu to its wire form, back-patching the header's
// PayloadLength once the body is built. The NON_DEFAULT_CONTEXT flag and
// context bytes are written automatically when the PDU carries a non-nil
// context.
func EncodePDU(pdu PDU) ([]byte, error) {
	h := pdu.PDUHeader()
	netOrder := h.NetworkByteOrder()

	var body []byte
	var ctx []byte

	switch v := pdu.(type) {
	case *OpenPDU:
		ctx = v.Context
		body = append(body, v.Timeout, 0, 0, 0)
		body = append(body, EncodeOID(v.ID, false, netOrder)...)
		body = append(body, encodeOctets([]byte(v.Descr), byteOrder(netOrder))...)

	case *ClosePDU:
		ctx = v.Context
		body = append(body, v.ReasonCode, 0, 0, 0)

	case *RegisterPDU:
		ctx = v.Context
		body = append(body, v.Timeout, v.Priority, v.RangeSubID, 0)
		body = append(body, EncodeOID(v.Subtree, false, netOrder)...)
		if v.RangeSubID != 0 {
			tail := make([]byte, 4)
			byteOrder(netOrder).PutUint32(tail, v.UpperBound)
			body = append(body, tail...)
		}

	case *UnregisterPDU:
		ctx = v.Context
		body = append(body, 0, v.Priority, v.RangeSubID, 0)
		body = append(body, EncodeOID(v.Subtree, false, netOrder)...)
		if v.RangeSubID != 0 {
			tail := make([]byte, 4)
			byteOrder(netOrder).PutUint32(tail, v.UpperBound)
			body = append(body, tail...)
		}

	case *GetPDU:
		ctx = v.Context
		for _, r := range v.Ranges {
			body = append(body, encodeSearchRange(r, netOrder)...)
		}

	case *GetNextPDU:
		ctx = v.Context
		for _, r := range v.Ranges {
			body = append(body, encodeSearchRange(r, netOrder)...)
		}

	case *GetBulkPDU:
		ctx = v.Context
		head := make([]byte, 4)
		byteOrder(netOrder).PutUint16(head[0:2], v.NonRepeaters)
		byteOrder(netOrder).PutUint16(head[2:4], v.MaxRepetitions)
		body = append(body, head...)
		for _, r := range v.Ranges {
			body = append(body, encodeSearchRange(r, netOrder)...)
		}

	case *TestSetPDU:
		ctx = v.Context
		for _, vb := range v.VarBinds {
			enc, err := encodeVarBind(vb, netOrder)
			if err != nil {
				return nil, err
			}
			body = append(body, enc...)
		}

	case *CommitSetPDU:
		ctx = v.Context
	case *UndoSetPDU:
		ctx = v.Context
	case *CleanupSetPDU:
		ctx = v.Context

	case *NotifyPDU:
		ctx = v.Context
		for _, vb := range v.VarBinds {
			enc, err := encodeVarBind(vb, netOrder)
			if err != nil {
				return nil, err
			}
			body = append(body, enc...)
		}

	case *PingPDU:
		ctx = v.Context

	case *IndexAllocatePDU:
		ctx = v.Context
		for _, vb := range v.VarBinds {
			enc, err := encodeVarBind(vb, netOrder)
			if err != nil {
				return nil, err
			}
			body = append(body, enc...)
		}

	case *IndexDeallocatePDU:
		ctx = v.Context
		for _, vb := range v.VarBinds {
			enc, err := encodeVarBind(vb, netOrder)
			if err != nil {
				return nil, err
			}
			body = append(body, enc...)
		}

	case *AddAgentCapsPDU:
		ctx = v.Context
		body = append(body, EncodeOID(v.ID, false, netOrder)...)
		body = append(body, encodeOctets([]byte(v.Descr), byteOrder(netOrder))...)

	case *RemoveAgentCapsPDU:
		ctx = v.Context
		body = append(body, EncodeOID(v.ID, false, netOrder)...)

	case *ResponsePDU:
		ctx = v.Context
		head := make([]byte, 8)
		order := byteOrder(netOrder)
		order.PutUint32(head[0:4], v.SysUpTime)
		order.PutUint16(head[4:6], uint16(v.Error))
		order.PutUint16(head[6:8], v.ErrorIndex)
		body = append(body, head...)
		for _, vb := range v.VarBinds {
			enc, err := encodeVarBind(vb, netOrder)
			if err != nil {
				return nil, err
			}
			body = append(body, enc...)
		}

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, pdu)
	}

	if ctx != nil {
		h.Flags |= FlagNonDefaultContext
		ctxBytes := encodeOctets(ctx, byteOrder(netOrder))
		body = append(ctxBytes, body...)
	}

	h.PayloadLength = uint32(len(body))
	out := EncodeHeader(h)
	out = append(out, body...)
	return out, nil
}
