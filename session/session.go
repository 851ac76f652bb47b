// Package session drives the AgentX protocol state machine described by the
// session-protocol design: connect, open, register the configured subtree
// prefixes, then serve Get/GetNext/Set requests against a mib.Table until
// the connection drops, retrying with a fixed interval in between. It is
// the one goroutine in the runtime that ever touches the transport socket;
// everything it reads comes from updater-maintained caches via the table,
// never a blocking call to the external database.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/vpbank/ax-subagent/mib"
	"github.com/vpbank/ax-subagent/wire"
)

const (
	headerSize = 20 // RFC 2741 fixed PDU header length.

	defaultDialTimeout    = time.Second
	defaultRetryInterval  = 3 * time.Second
	openPDUTimeoutSeconds = 5
	regPDUTimeoutSeconds  = 5

	// escalateAfter is the number of consecutive dial failures after which
	// connect errors are logged at ERROR instead of WARN, per §6.1.
	escalateAfter = 10
)

// Config configures one Session's transport target and registration set.
type Config struct {
	// SocketPath is the Unix-domain stream socket the master agent listens
	// on, typically /var/agentx/master.
	SocketPath string

	// DialTimeout bounds each connection attempt. Default 1s.
	DialTimeout time.Duration

	// RetryInterval is the wait between a failed/dropped connection and the
	// next attempt. Default 3s.
	RetryInterval time.Duration

	// AgentOID optionally identifies this subagent in the Open PDU. The
	// null OID (the default) is conventional for subagents without a
	// stable identity OID of their own.
	AgentOID wire.OID

	// AgentDescr is the human-readable description sent in the Open PDU.
	AgentDescr string

	// Prefixes are the subtree OIDs to register, in priority order: the
	// slice index becomes each Register PDU's priority byte.
	Prefixes []wire.OID
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return defaultDialTimeout
}

func (c Config) retryInterval() time.Duration {
	if c.RetryInterval > 0 {
		return c.RetryInterval
	}
	return defaultRetryInterval
}

// Session runs the connect -> open -> register -> serve loop against a
// fixed Config until its Run context is cancelled.
type Session struct {
	cfg      Config
	table    *mib.Table
	setCoord *mib.SetCoordinator
	logger   *slog.Logger

	conn          net.Conn
	sessionID     uint32
	transactionID uint32
	packetID      uint32
	failures      int
}

// New builds a Session. setCoord may be nil when no MIB entry is writable —
// every TestSet then fails NotWritable. A nil logger falls back to a no-op
// logger.
func New(cfg Config, table *mib.Table, setCoord *mib.SetCoordinator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Session{cfg: cfg, table: table, setCoord: setCoord, logger: logger}
}

// Run executes the reconnect loop until ctx is cancelled, at which point it
// returns nil. A failure at any stage (dial, open, register, serve) is
// logged and followed by a RetryInterval wait before the next attempt,
// matching the Retry state in the protocol state machine.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.runOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("session: connection cycle ended, will retry", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.retryInterval()):
		}
	}
}

// runOnce drives a single Disconnected -> ... -> Serving -> Disconnected
// cycle.
func (s *Session) runOnce(ctx context.Context) error {
	conn, err := net.DialTimeout("unix", s.cfg.SocketPath, s.cfg.dialTimeout())
	if err != nil {
		s.failures++
		lvl := slog.LevelWarn
		if s.failures > escalateAfter {
			lvl = slog.LevelError
		}
		s.logger.Log(ctx, lvl, "session: dial failed", "socket", s.cfg.SocketPath, "error", err, "consecutive_failures", s.failures)
		return fmt.Errorf("session: dial: %w", err)
	}
	s.failures = 0
	s.conn = conn
	defer conn.Close()

	if err := s.open(); err != nil {
		return fmt.Errorf("session: open: %w", err)
	}
	s.logger.Info("session: opened", "session_id", s.sessionID)

	if err := s.register(); err != nil {
		return fmt.Errorf("session: register: %w", err)
	}
	s.logger.Info("session: registered", "prefixes", len(s.cfg.Prefixes))

	return s.serve(ctx)
}

// open sends the Open PDU and records the sessionID the master assigns.
func (s *Session) open() error {
	txn, pkt := s.nextIDs()
	req := &wire.OpenPDU{
		H: wire.Header{
			Version:       1,
			Type:          wire.TypeOpen,
			Flags:         wire.FlagNetworkByteOrder,
			TransactionID: txn,
			PacketID:      pkt,
		},
		Timeout: openPDUTimeoutSeconds,
		ID:      s.cfg.AgentOID,
		Descr:   s.cfg.AgentDescr,
	}
	resp, err := s.roundTrip(req)
	if err != nil {
		return err
	}
	if resp.Error != wire.ErrNoAgentXError {
		return fmt.Errorf("open rejected: error=%d", resp.Error)
	}
	s.sessionID = resp.H.SessionID
	return nil
}

// register sends one Register PDU per declared prefix, priority = index,
// per §4.5's Registering state.
func (s *Session) register() error {
	for i, prefix := range s.cfg.Prefixes {
		txn, pkt := s.nextIDs()
		req := &wire.RegisterPDU{
			H: wire.Header{
				Version:       1,
				Type:          wire.TypeRegister,
				Flags:         wire.FlagNetworkByteOrder,
				SessionID:     s.sessionID,
				TransactionID: txn,
				PacketID:      pkt,
			},
			Timeout:  regPDUTimeoutSeconds,
			Priority: uint8(i),
			Subtree:  prefix,
		}
		resp, err := s.roundTrip(req)
		if err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		if resp.Error != wire.ErrNoAgentXError {
			return fmt.Errorf("%s rejected: error=%d", prefix, resp.Error)
		}
	}
	return nil
}

// serve is the Serving state's read+dispatch loop. It returns when the
// connection is closed by the peer or ctx is cancelled (in which case it
// closes the connection itself to unblock the pending read).
func (s *Session) serve(ctx context.Context) error {
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-watcherDone:
		}
	}()

	for {
		pdu, err := s.readPDU()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				s.logger.Info("session: connection closed by peer")
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		}

		if shouldClose := s.dispatch(pdu); shouldClose {
			s.logger.Info("session: close requested by peer")
			return nil
		}
	}
}

// noopWriter discards log output when no logger is supplied.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func (s *Session) nextIDs() (transactionID, packetID uint32) {
	s.transactionID++
	s.packetID++
	return s.transactionID, s.packetID
}
