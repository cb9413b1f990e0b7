package transport

import (
	"context"
	"net"
)

// --------------------------------------------------------------------------
// Client State
// --------------------------------------------------------------------------

// ClientState is the lifecycle state of a client. A client moves from
// Disconnected to Connecting on ConnectAsync, to Connected once the socket is
// established and back to Disconnected when the connection terminates for any
// reason. Retries of a refused connect keep the client in Connecting.
type ClientState int32

const (
	Disconnected ClientState = iota
	Connecting
	Connected
)

func (s ClientState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClient is the contract shared by all communication clients
type IClient interface {
	// ConnectAsync starts connecting in the background. The returned channel is
	// closed once the attempt has finished, successfully or not, or when the client
	// is disconnected meanwhile. It fails with ErrInvalidState unless the client is
	// Disconnected and with ErrConfiguration when the settings cannot be used.
	ConnectAsync() (<-chan struct{}, error)

	// Connect calls ConnectAsync and blocks until the client left Connecting. It
	// returns nil when the client ended up Connected.
	Connect(ctx context.Context) error

	// Disconnect terminates the current connection. When it returns the client is
	// Disconnected. Calling it while already Disconnected does nothing.
	Disconnect()

	// Send queues data for transmission and waits until it was written
	Send(data []byte) error

	// SendAsync queues data for transmission. data must not be modified until the
	// returned handle is done.
	SendAsync(data []byte) (*SendHandle, error)

	// Read copies received data into p. It is only valid while a ReceiveData
	// notification is being handled.
	Read(p []byte) (int, error)

	// Subscribe registers fn for notifications of the given event
	Subscribe(event Event, fn HandlerFunc)

	// State returns the current lifecycle state
	State() ClientState

	// Statistics returns the transport counters of the client
	Statistics() *Statistics

	// ServerURI identifies the remote end, for example "tcp://localhost:8888"
	ServerURI() string

	// Status returns a human readable multi-line summary of the client
	Status() string

	// Close disconnects and releases the client. It cannot be connected afterwards.
	Close() error
}

// Dialer creates network connections; *net.Dialer implements it
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
