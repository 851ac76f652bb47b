package session

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/ax-subagent/wire"
)

// fakeMaster accepts a single connection and answers Open/Register with
// NoAgentXError Response PDUs, recording the requests it saw.
type fakeMaster struct {
	ln       net.Listener
	sawOpen  chan *wire.OpenPDU
	sawRegs  chan *wire.RegisterPDU
	assigned uint32
}

func startFakeMaster(t *testing.T, sockPath string) *fakeMaster {
	t.Helper()
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	m := &fakeMaster{
		ln:       ln,
		sawOpen:  make(chan *wire.OpenPDU, 1),
		sawRegs:  make(chan *wire.RegisterPDU, 8),
		assigned: 42,
	}
	go m.serveOne(t)
	return m
}

func (m *fakeMaster) serveOne(t *testing.T) {
	conn, err := m.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		pdu, err := readPDUFrom(conn)
		if err != nil {
			return
		}
		switch p := pdu.(type) {
		case *wire.OpenPDU:
			m.sawOpen <- p
			resp := wire.NewResponse(p.H, wire.ErrNoAgentXError, 0, nil)
			resp.H.SessionID = m.assigned
			writePDUTo(t, conn, resp)
		case *wire.RegisterPDU:
			m.sawRegs <- p
			resp := wire.NewResponse(p.H, wire.ErrNoAgentXError, 0, nil)
			writePDUTo(t, conn, resp)
		default:
			return
		}
	}
}

func readPDUFrom(conn net.Conn) (wire.PDU, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	h, err := wire.DecodeHeader(header)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, h.PayloadLength)
	if h.PayloadLength > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return nil, err
		}
	}
	buf := append(append([]byte{}, header...), payload...)
	pdu, _, err := wire.DecodePDU(buf)
	return pdu, err
}

func writePDUTo(t *testing.T, conn net.Conn, pdu wire.PDU) {
	t.Helper()
	b, err := wire.EncodePDU(pdu)
	require.NoError(t, err)
	_, err = conn.Write(b)
	require.NoError(t, err)
}

func TestOpenAndRegisterHandshake(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "master.sock")
	master := startFakeMaster(t, sockPath)
	defer master.ln.Close()

	cfg := Config{
		SocketPath:  sockPath,
		DialTimeout: time.Second,
		AgentDescr:  "test-subagent",
		Prefixes: []wire.OID{
			wire.ParseOIDMust("1.3.6.1.2.1.2"),
			wire.ParseOIDMust("1.3.6.1.2.1.31"),
		},
	}
	s := New(cfg, testTable(t), nil, slog.New(slog.NewTextHandler(discardWriter{}, nil)))

	conn, err := net.DialTimeout("unix", sockPath, time.Second)
	require.NoError(t, err)
	s.conn = conn
	defer conn.Close()

	require.NoError(t, s.open())
	assert.Equal(t, uint32(42), s.sessionID)

	require.NoError(t, s.register())

	select {
	case open := <-master.sawOpen:
		assert.Equal(t, "test-subagent", open.Descr)
	case <-time.After(time.Second):
		t.Fatal("master never saw Open PDU")
	}

	var regs []*wire.RegisterPDU
	for i := 0; i < len(cfg.Prefixes); i++ {
		select {
		case r := <-master.sawRegs:
			regs = append(regs, r)
		case <-time.After(time.Second):
			t.Fatalf("master only saw %d of %d Register PDUs", len(regs), len(cfg.Prefixes))
		}
	}
	require.Len(t, regs, 2)
	assert.Equal(t, uint8(0), regs[0].Priority)
	assert.Equal(t, uint8(1), regs[1].Priority)
	assert.True(t, regs[0].Subtree.Equal(cfg.Prefixes[0]))
	assert.True(t, regs[1].Subtree.Equal(cfg.Prefixes[1]))
}

func TestServeClosesOnContextCancel(t *testing.T) {
	s := newTestSession(t)
	client, agent := net.Pipe()
	defer client.Close()
	s.conn = agent

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after context cancellation")
	}
}
