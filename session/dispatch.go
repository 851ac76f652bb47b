package session

import (
	"fmt"
	"io"

	"github.com/vpbank/ax-subagent/wire"
)

// readPDU reads one framed PDU off the connection: a fixed 20-byte header
// followed by PayloadLength more bytes, then hands the whole buffer to
// wire.DecodePDU. This blocks on the header read rather than polling a
// short SetReadDeadline, so a shutdown must close the connection out from
// under it (see serve's watcher goroutine) instead of relying on a timeout
// to notice cancellation; a deadline-based poll loop risks losing bytes
// already consumed by a prior partial io.ReadFull when it times out mid-PDU.
func (s *Session) readPDU() (wire.PDU, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(s.conn, header); err != nil {
		return nil, err
	}

	h, err := wire.DecodeHeader(header)
	if err != nil {
		return nil, fmt.Errorf("readPDU: header: %w", err)
	}

	payload := make([]byte, h.PayloadLength)
	if h.PayloadLength > 0 {
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			return nil, fmt.Errorf("readPDU: payload: %w", err)
		}
	}

	buf := make([]byte, 0, headerSize+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)

	pdu, _, err := wire.DecodePDU(buf)
	if err != nil {
		return nil, fmt.Errorf("readPDU: decode: %w", err)
	}
	return pdu, nil
}

// writePDU encodes and writes pdu to the connection.
func (s *Session) writePDU(pdu wire.PDU) error {
	b, err := wire.EncodePDU(pdu)
	if err != nil {
		return fmt.Errorf("writePDU: encode: %w", err)
	}
	_, err = s.conn.Write(b)
	return err
}

// roundTrip writes req and reads the single Response PDU that answers it.
// Used only during Open/Register, before the Serving loop starts reading
// request PDUs from the master.
func (s *Session) roundTrip(req wire.PDU) (*wire.ResponsePDU, error) {
	if err := s.writePDU(req); err != nil {
		return nil, err
	}
	pdu, err := s.readPDU()
	if err != nil {
		return nil, err
	}
	resp, ok := pdu.(*wire.ResponsePDU)
	if !ok {
		return nil, fmt.Errorf("roundTrip: expected Response, got type %d", pdu.PDUHeader().Type)
	}
	if resp.H.PacketID != req.PDUHeader().PacketID {
		return nil, fmt.Errorf("roundTrip: packet ID mismatch: sent %d, got %d", req.PDUHeader().PacketID, resp.H.PacketID)
	}
	return resp, nil
}

// dispatch handles one request PDU read during the Serving state. It
// returns true when the caller should close the connection (a Close PDU
// was received). Administrative PDU types this subagent neither expects
// nor acts on (Notify, Ping, IndexAllocate/Deallocate, AddAgentCaps/
// RemoveAgentCaps) get a bare NoAgentXError ack per §6.2. An unsolicited
// Response is logged at debug level and not answered.
func (s *Session) dispatch(pdu wire.PDU) (closeConn bool) {
	switch p := pdu.(type) {
	case *wire.GetPDU:
		s.respond(p.H, s.get(p.Ranges))

	case *wire.GetNextPDU:
		s.respond(p.H, s.getNext(p.Ranges))

	case *wire.GetBulkPDU:
		// GetBulk is explicitly degraded to GetNext semantics (§6.2): one
		// successor per requested range, ignoring NonRepeaters/MaxRepetitions.
		s.respond(p.H, s.getNext(p.Ranges))

	case *wire.TestSetPDU:
		errStatus, errIndex := wire.ErrNotWritable, uint16(1)
		if s.setCoord != nil {
			errStatus, errIndex = s.setCoord.TestSet(p.H.SessionID, p.H.TransactionID, p.VarBinds)
		}
		s.ack(p.H, errStatus, errIndex)

	case *wire.CommitSetPDU:
		errStatus := wire.ErrProcessingError
		if s.setCoord != nil {
			errStatus = s.setCoord.CommitSet(p.H.SessionID, p.H.TransactionID)
		}
		s.ack(p.H, errStatus, 0)

	case *wire.UndoSetPDU:
		errStatus := wire.ErrProcessingError
		if s.setCoord != nil {
			errStatus = s.setCoord.UndoSet(p.H.SessionID, p.H.TransactionID)
		}
		s.ack(p.H, errStatus, 0)

	case *wire.CleanupSetPDU:
		if s.setCoord != nil {
			s.setCoord.CleanupSet(p.H.SessionID, p.H.TransactionID)
		}
		// CleanupSet has no Response per RFC 2741 §7.2.4.6.

	case *wire.ClosePDU:
		return true

	case *wire.ResponsePDU:
		s.logger.Debug("session: unsolicited response ignored", "packet_id", p.H.PacketID)

	default:
		s.ack(pdu.PDUHeader(), wire.ErrNoAgentXError, 0)
	}
	return false
}

func (s *Session) get(ranges []wire.SearchRange) []wire.VarBind {
	out := make([]wire.VarBind, 0, len(ranges))
	for _, sr := range ranges {
		out = append(out, s.table.Get(sr))
	}
	return out
}

func (s *Session) getNext(ranges []wire.SearchRange) []wire.VarBind {
	out := make([]wire.VarBind, 0, len(ranges))
	for _, sr := range ranges {
		out = append(out, s.table.GetNext(sr))
	}
	return out
}

// respond sends a Response PDU carrying varBinds with NoAgentXError.
func (s *Session) respond(reqHeader wire.Header, varBinds []wire.VarBind) {
	resp := wire.NewResponse(reqHeader, wire.ErrNoAgentXError, 0, varBinds)
	if err := s.writePDU(resp); err != nil {
		s.logger.Warn("session: failed to write response", "error", err)
	}
}

// ack sends a Response PDU with no VarBinds, used for administrative PDUs
// and Set-protocol acknowledgements.
func (s *Session) ack(reqHeader wire.Header, errStatus wire.ErrorStatus, errIndex uint16) {
	resp := wire.NewResponse(reqHeader, errStatus, errIndex, nil)
	if err := s.writePDU(resp); err != nil {
		s.logger.Warn("session: failed to write ack", "error", err)
	}
}
