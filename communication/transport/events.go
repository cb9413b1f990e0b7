package transport

import (
	"fmt"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// Event identifies one of the fixed notification channels of a client
type Event int

const (
	// ConnectionAttempt is raised when ConnectAsync starts connecting
	ConnectionAttempt Event = iota
	// ConnectionEstablished is raised once the socket is connected
	ConnectionEstablished
	// ConnectionTerminated is raised once per connection when it ends for any reason
	ConnectionTerminated
	// ConnectionException carries the error of a failed connect attempt
	ConnectionException
	// SendDataStart is raised when a payload was accepted into the send queue
	SendDataStart
	// SendDataComplete is raised when a payload was fully written
	SendDataComplete
	// SendDataException carries send errors, including queue overflow
	SendDataException
	// ReceiveData announces received data; Read is valid while it is handled
	ReceiveData
	// ReceiveDataComplete carries a private copy of the received data
	ReceiveDataComplete
	// ReceiveDataException carries receive errors, including stream desync
	ReceiveDataException
	// UnhandledUserException carries panics raised by other handlers
	UnhandledUserException

	eventCount
)

var eventNames = [eventCount]string{
	"ConnectionAttempt",
	"ConnectionEstablished",
	"ConnectionTerminated",
	"ConnectionException",
	"SendDataStart",
	"SendDataComplete",
	"SendDataException",
	"ReceiveData",
	"ReceiveDataComplete",
	"ReceiveDataException",
	"UnhandledUserException",
}

func (e Event) String() string {
	if e < 0 || e >= eventCount {
		return fmt.Sprintf("Event(%d)", int(e))
	}
	return eventNames[e]
}

// Notification is passed to handlers. Only the fields relevant to the event are set:
// Err for the exception events, Size for the receive events and Data for
// ReceiveDataComplete.
type Notification struct {
	Event Event
	Err   error
	Size  int
	Data  []byte
}

// HandlerFunc handles a notification. It runs on the goroutine that raised the
// event and should return quickly; a slow handler stalls the pipeline behind it.
type HandlerFunc func(n Notification)

// --------------------------------------------------------------------------
// Dispatcher
// --------------------------------------------------------------------------

// Dispatcher fans notifications out to subscribed handlers. A panicking handler
// never escapes into the pipeline: the panic is re-raised as an
// UnhandledUserException notification, and a panic inside a handler of that event
// is logged and dropped.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers [eventCount][]HandlerFunc
}

// NewDispatcher creates a dispatcher without handlers
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe adds fn to the handlers of event
func (d *Dispatcher) Subscribe(event Event, fn HandlerFunc) {
	if event < 0 || event >= eventCount || fn == nil {
		return
	}
	d.mu.Lock()
	d.handlers[event] = append(d.handlers[event], fn)
	d.mu.Unlock()
}

// HasHandlers reports whether anything subscribed to event
func (d *Dispatcher) HasHandlers(event Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[event]) > 0
}

// Emit delivers n to every handler of n.Event in subscription order
func (d *Dispatcher) Emit(n Notification) {
	d.mu.RLock()
	handlers := d.handlers[n.Event]
	d.mu.RUnlock()

	for _, fn := range handlers {
		d.invoke(fn, n)
	}
}

func (d *Dispatcher) invoke(fn HandlerFunc, n Notification) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if n.Event == UnhandledUserException {
			Logger.Errorf("unhandled exception handler panicked: %v (original: %v)", r, n.Err)
			return
		}
		d.Emit(Notification{
			Event: UnhandledUserException,
			Err:   fmt.Errorf("%w: %s: %v", ErrUserHandler, n.Event, r),
		})
	}()
	fn(n)
}
