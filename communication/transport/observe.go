package transport

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// ObserveConn wraps conn so that every read, write and close is logged to log.
// Reads and writes are logged at debug level, close at info level. Every record
// carries the span ID, the addresses and the error class of the operation.
func ObserveConn(conn net.Conn, log SLogger, spanID string) net.Conn {
	return &observedConn{
		Conn:     conn,
		log:      log,
		spanID:   spanID,
		laddr:    safeconn.LocalAddr(conn),
		raddr:    safeconn.RemoteAddr(conn),
		protocol: safeconn.Network(conn),
	}
}

type observedConn struct {
	net.Conn
	closeOnce sync.Once
	log       SLogger
	spanID    string
	laddr     string
	raddr     string
	protocol  string
}

func (c *observedConn) attrs(extra ...any) []any {
	return append([]any{
		slog.String("spanID", c.spanID),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
	}, extra...)
}

// Read implements net.Conn
func (c *observedConn) Read(buf []byte) (int, error) {
	t0 := time.Now()
	c.log.Debug("readStart", c.attrs(slog.Int("ioBufferSize", len(buf)), slog.Time("t", t0))...)

	n, err := c.Conn.Read(buf)

	c.log.Debug("readDone", c.attrs(
		slog.Int("ioBytesCount", n),
		slog.Any("err", err),
		slog.String("errClass", ClassifyError(err)),
		slog.Time("t0", t0),
		slog.Time("t", time.Now()),
	)...)
	return n, err
}

// Write implements net.Conn
func (c *observedConn) Write(buf []byte) (int, error) {
	t0 := time.Now()
	c.log.Debug("writeStart", c.attrs(slog.Int("ioBufferSize", len(buf)), slog.Time("t", t0))...)

	n, err := c.Conn.Write(buf)

	c.log.Debug("writeDone", c.attrs(
		slog.Int("ioBytesCount", n),
		slog.Any("err", err),
		slog.String("errClass", ClassifyError(err)),
		slog.Time("t0", t0),
		slog.Time("t", time.Now()),
	)...)
	return n, err
}

// Close implements net.Conn. Subsequent calls return net.ErrClosed.
func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeOnce.Do(func() {
		t0 := time.Now()
		err = c.Conn.Close()
		c.log.Info("closeDone", c.attrs(
			slog.Any("err", err),
			slog.String("errClass", ClassifyError(err)),
			slog.Time("t0", t0),
			slog.Time("t", time.Now()),
		)...)
	})
	return
}

// Unwrap returns the observed connection
func (c *observedConn) Unwrap() net.Conn {
	return c.Conn
}
