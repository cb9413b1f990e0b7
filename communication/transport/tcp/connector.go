package tcp

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
)

// dialer returns the configured dialer or a net.Dialer bound to the interface
func (c *Config) dialer() transport.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	d := &net.Dialer{
		Control: dualStackControl(c.AllowDualStackSocket),
	}
	if ip := net.ParseIP(strings.Trim(c.Interface, "[]")); ip != nil && !ip.IsUnspecified() {
		d.LocalAddr = &net.TCPAddr{IP: ip}
	}
	return d
}

// dial opens and prepares a connection to ep for session s
func dial(s *session, ep transport.Endpoint) (net.Conn, error) {
	address := ep.String()
	t0 := time.Now()
	if s.cfg.SLogger != nil {
		s.cfg.SLogger.Info("connectStart",
			slog.String("spanID", s.id),
			slog.String("protocol", "tcp"),
			slog.String("remoteAddr", address),
			slog.Time("t", t0),
		)
	}

	conn, err := s.cfg.dialer().DialContext(s.ctx, "tcp", address)

	if s.cfg.SLogger != nil {
		s.cfg.SLogger.Info("connectDone",
			slog.String("spanID", s.id),
			slog.Any("err", err),
			slog.String("errClass", transport.ClassifyError(err)),
			slog.String("protocol", "tcp"),
			slog.String("remoteAddr", address),
			slog.Time("t0", t0),
			slog.Time("t", time.Now()),
		)
	}
	if err != nil {
		return nil, err
	}

	if err := upgradeConnection(conn, &s.cfg); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if s.cfg.SLogger != nil {
		conn = transport.ObserveConn(conn, s.cfg.SLogger, s.id)
	}
	return conn, nil
}

// upgradeConnection applies the socket options of cfg to a TCP connection.
// Connections of other types are left untouched.
func upgradeConnection(conn net.Conn, cfg *Config) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	// Nagle's algorithm stays enabled unless NoDelay is requested
	if err := tcpConn.SetNoDelay(cfg.NoDelay); err != nil {
		return err
	}

	if cfg.SendBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(cfg.SendBufferSize); err != nil {
			return err
		}
	}

	if cfg.ReceiveBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(cfg.ReceiveBufferSize); err != nil {
			return err
		}
	}

	return nil
}

// sleepContext waits for d and reports false when ctx ended first
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
