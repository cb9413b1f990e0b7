package transport

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/bassosimone/errclass"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the current state
	ErrInvalidState = errors.New("transport: invalid client state for operation")
	// ErrNotConnected is returned when sending without an established connection
	ErrNotConnected = errors.New("transport: client is not connected")
	// ErrConfiguration wraps every settings and connection string problem
	ErrConfiguration = errors.New("transport: invalid configuration")
	// ErrConnectionFailed is returned by Connect when no connection could be established
	ErrConnectionFailed = errors.New("transport: connection failed")
	// ErrSendQueueOverflow is returned by a send that found the queue full
	ErrSendQueueOverflow = errors.New("transport: client reached maximum send queue size")
	// ErrPayloadDropped completes the handles of payloads evicted from a full queue
	ErrPayloadDropped = errors.New("transport: payload dropped from send queue")
	// ErrClosed is returned once the client was closed
	ErrClosed = errors.New("transport: client is closed")
	// ErrNoReceivedData is returned by Read outside of a receive notification
	ErrNoReceivedData = errors.New("transport: no received data available")
	// ErrUnsupportedProtocol is returned by the factory for protocols without a client
	ErrUnsupportedProtocol = errors.New("transport: unsupported protocol")
	// ErrUserHandler wraps panics raised by notification handlers
	ErrUserHandler = errors.New("transport: notification handler panicked")
)

// ClassifyError maps err to a short errno-like label such as "ECONNREFUSED".
// It returns an empty string for a nil error.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	return errclass.New(err)
}

// IsConnectionRefused reports whether a connect attempt was actively refused,
// which is the only failure a client retries
func IsConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || ClassifyError(err) == errclass.ECONNREFUSED
}

// IsBenignDisconnect reports whether err is the expected outcome of a connection
// being closed, either by the peer or by our own Disconnect racing with I/O
func IsBenignDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	return ClassifyError(err) == errclass.ECONNABORTED
}
