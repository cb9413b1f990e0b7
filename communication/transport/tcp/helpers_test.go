package tcp

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

// newListener listens on a random loopback port for the duration of the test
func newListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

// acceptOne returns a channel that yields the first accepted connection
func acceptOne(t *testing.T, ln net.Listener) <-chan net.Conn {
	t.Helper()
	ch := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(ch)
			return
		}
		ch <- conn
	}()
	return ch
}

func waitConn(t *testing.T, ch <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case conn, ok := <-ch:
		require.True(t, ok, "accept failed")
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for connection")
		return nil
	}
}

// readN reads exactly n bytes from conn
func readN(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return buf
}

func testConfig(connectionString string) Config {
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.ConnectionString = connectionString
	cfg.RetryBackoff = 5 * time.Millisecond
	return cfg
}

func connectClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { _ = c.Close() })
}

func refusedError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

// --------------------------------------------------------------------------
// Event recording
// --------------------------------------------------------------------------

type recorder struct {
	mu     sync.Mutex
	events []transport.Event
	errs   map[transport.Event][]error
	data   [][]byte
}

// record subscribes to every event of c
func record(c *Client) *recorder {
	r := &recorder{errs: map[transport.Event][]error{}}
	for ev := transport.ConnectionAttempt; ev <= transport.UnhandledUserException; ev++ {
		c.Subscribe(ev, func(n transport.Notification) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, n.Event)
			if n.Err != nil {
				r.errs[n.Event] = append(r.errs[n.Event], n.Err)
			}
			if n.Event == transport.ReceiveDataComplete {
				r.data = append(r.data, n.Data)
			}
		})
	}
	return r
}

func (r *recorder) count(ev transport.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

// only returns the recorded events that are part of filter, in order
func (r *recorder) only(filter ...transport.Event) []transport.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transport.Event
	for _, e := range r.events {
		for _, f := range filter {
			if e == f {
				out = append(out, e)
			}
		}
	}
	return out
}

func (r *recorder) errors(ev transport.Event) []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs[ev]...)
}

func (r *recorder) received() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.data...)
}

// --------------------------------------------------------------------------
// Fake connections
// --------------------------------------------------------------------------

// countingConn records the size of every write
type countingConn struct {
	net.Conn
	mu     sync.Mutex
	writes []int
}

func (c *countingConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	c.writes = append(c.writes, len(b))
	c.mu.Unlock()
	return c.Conn.Write(b)
}

func (c *countingConn) sizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.writes...)
}

// newBlockingConn returns a FuncConn whose reads block until it is closed and
// whose writes block until release is closed. writing receives every write.
func newBlockingConn(release <-chan struct{}, writing chan<- []byte) *netstub.FuncConn {
	closed := make(chan struct{})
	var once sync.Once
	return &netstub.FuncConn{
		ReadFunc: func(b []byte) (int, error) {
			<-closed
			return 0, net.ErrClosed
		},
		WriteFunc: func(b []byte) (int, error) {
			writing <- append([]byte(nil), b...)
			select {
			case <-release:
				return len(b), nil
			case <-closed:
				return 0, net.ErrClosed
			}
		},
		CloseFunc: func() error {
			once.Do(func() { close(closed) })
			return nil
		},
	}
}

// readStep serves one Read call of a scripted connection
type readStep func(b []byte) (int, error)

// newScriptedConn returns a FuncConn whose reads run the steps sent on reads, one
// per call, and fail with net.ErrClosed once it is closed. A nil write accepts
// everything.
func newScriptedConn(reads <-chan readStep, write func(b []byte) (int, error)) *netstub.FuncConn {
	closed := make(chan struct{})
	var once sync.Once
	if write == nil {
		write = func(b []byte) (int, error) { return len(b), nil }
	}
	return &netstub.FuncConn{
		ReadFunc: func(b []byte) (int, error) {
			select {
			case step := <-reads:
				return step(b)
			case <-closed:
				return 0, net.ErrClosed
			}
		},
		WriteFunc: write,
		CloseFunc: func() error {
			once.Do(func() { close(closed) })
			return nil
		},
	}
}

func brokenPipeError() error {
	return &net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.EPIPE)}
}

func connectionResetError() error {
	return &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
}

// scriptedDialer hands out conn on every dial
func scriptedDialer(conn net.Conn) *netstub.FuncDialer {
	return &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return conn, nil
		},
	}
}
