package tcp

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport/payload"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/tcp")

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// session holds everything that belongs to one connection attempt and the
// connection it may produce. Terminating a session cancels it for good; the next
// ConnectAsync creates a new one, so stale goroutines of an old connection can
// never act on a new one.
type session struct {
	id      string
	cfg     Config
	servers []transport.Endpoint
	ctx     context.Context
	cancel  context.CancelFunc

	cancelled  atomic.Bool
	terminated chan struct{}

	connectDone chan struct{}
	connectOnce sync.Once
	attempts    int
	serverIndex atomic.Int64

	// guarded by Client.mu
	conn      net.Conn
	connected bool

	// send pipeline
	queue   *sendQueue
	sendMu  sync.Mutex
	sending atomic.Bool
	txBuf   []byte

	// receive pipeline
	rxBuf     []byte
	decoder   *payload.Decoder
	liveMu    sync.Mutex
	live      []byte
	readIndex int
}

func newSession(cfg Config, servers []transport.Endpoint) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:          transport.NewSpanID(),
		cfg:         cfg,
		servers:     servers,
		ctx:         ctx,
		cancel:      cancel,
		terminated:  make(chan struct{}),
		connectDone: make(chan struct{}),
		queue:       &sendQueue{},
	}
	return s
}

// signalConnect releases everybody waiting on the connect handle
func (s *session) signalConnect() {
	s.connectOnce.Do(func() { close(s.connectDone) })
}

func (s *session) server() transport.Endpoint {
	return s.servers[int(s.serverIndex.Load())%len(s.servers)]
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client is a TCP implementation of transport.IClient. It owns at most one
// connection at a time and runs one goroutine per active pipeline: the connect
// loop while connecting, the receive loop while connected and the send dispatcher
// while payloads are queued.
type Client struct {
	config  Config
	events  *transport.Dispatcher
	stats   *transport.Statistics
	metrics *clientMetrics

	state atomic.Int32

	mu      sync.Mutex
	session *session
	closed  bool
}

var _ transport.IClient = &Client{}

// NewClient creates a disconnected client. The settings are validated by
// ConnectAsync (or up front with Validate).
func NewClient(cfg Config) *Client {
	name := cfg.Name
	if name == "" {
		name = "tcp"
	}
	return &Client{
		config:  cfg,
		events:  transport.NewDispatcher(),
		stats:   transport.NewStatistics(),
		metrics: newClientMetrics(name),
	}
}

// Validate reports whether the settings of the client can be used to connect
func (c *Client) Validate() error {
	_, _, err := c.config.resolve()
	return err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClient)
// --------------------------------------------------------------------------

func (c *Client) ConnectAsync() (<-chan struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, transport.ErrClosed
	}
	if state := c.State(); state != transport.Disconnected {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot connect while %s", transport.ErrInvalidState, state)
	}
	cfg, servers, err := c.config.resolve()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	s := newSession(cfg, servers)
	c.session = s
	c.state.Store(int32(transport.Connecting))
	c.mu.Unlock()

	Logger.Debugf("[%s] connecting to %s (max attempts %d)", cfg.Name, s.server(), cfg.MaxConnectionAttempts)
	c.events.Emit(transport.Notification{Event: transport.ConnectionAttempt})

	go c.connectLoop(s)
	return s.connectDone, nil
}

func (c *Client) Connect(ctx context.Context) error {
	return transport.Connect(ctx, c, transport.DefaultPollInterval)
}

func (c *Client) Disconnect() {
	s := c.currentSession()
	if s == nil {
		return
	}
	c.terminate(s)
}

func (c *Client) Subscribe(event transport.Event, fn transport.HandlerFunc) {
	c.events.Subscribe(event, fn)
}

func (c *Client) State() transport.ClientState {
	return transport.ClientState(c.state.Load())
}

func (c *Client) Statistics() *transport.Statistics {
	return c.stats
}

func (c *Client) ServerURI() string {
	if s := c.currentSession(); s != nil {
		return "tcp://" + s.server().String()
	}
	_, servers, err := c.config.resolve()
	if err != nil || len(servers) == 0 {
		return "tcp://"
	}
	return "tcp://" + servers[0].String()
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.Disconnect()
	c.stats.Stop()
	return nil
}

// Status returns the state, timing and queue information of the client
func (c *Client) Status() string {
	var sb strings.Builder
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
	}

	s := c.currentSession()
	cfg := c.config
	if s != nil {
		cfg = s.cfg
	}

	addField("Client State", c.State().String())
	addField("Server URI", c.ServerURI())
	addField("Connection Time", c.stats.ConnectionTime().Round(time.Millisecond).String())
	addField("Receive Buffer Size", fmt.Sprintf("%d bytes", cfg.ReceiveBufferSize))
	addField("Send Buffer Size", fmt.Sprintf("%d bytes", cfg.SendBufferSize))
	addField("Payload Aware", fmt.Sprintf("%t", cfg.PayloadAware))
	queued := 0
	if s != nil {
		queued = s.queue.len()
	}
	addField("Queued Payloads", fmt.Sprintf("%d", queued))
	addField("Bytes Sent", fmt.Sprintf("%d (%.1f B/s)", c.stats.TotalBytesSent(), c.stats.SendRate()))
	addField("Bytes Received", fmt.Sprintf("%d (%.1f B/s)", c.stats.TotalBytesReceived(), c.stats.ReceiveRate()))
	return sb.String()
}

// --------------------------------------------------------------------------
// Connection state machine
// --------------------------------------------------------------------------

func (c *Client) currentSession() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// connectLoop dials until the session is connected, cancelled or out of attempts.
// Only refused connections are retried; every failure is reported.
func (c *Client) connectLoop(s *session) {
	backoff := s.cfg.RetryBackoff

	for {
		s.attempts++
		c.metrics.connectAttempts.Inc()
		ep := s.server()

		conn, err := dial(s, ep)
		if err == nil {
			if c.establish(s, conn) {
				go c.receiveLoop(s, conn)
			}
			return
		}
		if s.cancelled.Load() {
			return
		}

		Logger.Warningf("[%s] connection attempt %d to %s failed: %v", s.cfg.Name, s.attempts, ep, err)
		c.metrics.connectionExceptions.Inc()
		c.events.Emit(transport.Notification{Event: transport.ConnectionException, Err: err})

		maxAttempts := s.cfg.MaxConnectionAttempts
		if !transport.IsConnectionRefused(err) || (maxAttempts != -1 && s.attempts >= maxAttempts) {
			c.terminate(s)
			return
		}

		// the next attempt goes to the next server of the list
		s.serverIndex.Add(1)

		// exponential backoff with a small random jitter (+-10%)
		jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
		if !sleepContext(s.ctx, jitter) {
			return
		}
		backoff = min(backoff*2, s.cfg.MaxRetryBackoff)
	}
}

// establish publishes a new connection. It reports false if the session was
// terminated while dialing, in which case conn is closed.
func (c *Client) establish(s *session, conn net.Conn) bool {
	c.mu.Lock()
	if s.cancelled.Load() || c.session != s {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	s.conn = conn
	s.connected = true
	s.txBuf = make([]byte, s.cfg.SendBufferSize)
	if s.cfg.PayloadAware {
		s.decoder = payload.NewDecoder(s.cfg.codec())
	} else {
		s.rxBuf = make([]byte, s.cfg.ReceiveBufferSize)
	}
	c.state.Store(int32(transport.Connected))
	c.mu.Unlock()

	c.stats.MarkConnected(time.Now())
	c.metrics.connectionsOpened.Inc()
	s.signalConnect()

	Logger.Infof("[%s] connected to %s after %d attempt(s)", s.cfg.Name, s.server(), s.attempts)
	c.events.Emit(transport.Notification{Event: transport.ConnectionEstablished})
	return true
}

// terminate ends session s exactly once: it closes the socket, moves the client
// to Disconnected, fails whatever is still queued and raises ConnectionTerminated.
// Concurrent callers wait until the first one has updated the state.
func (c *Client) terminate(s *session) {
	if !s.cancelled.CompareAndSwap(false, true) {
		<-s.terminated
		return
	}
	s.cancel()

	c.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if c.session == s {
		c.state.Store(int32(transport.Disconnected))
	}
	wasConnected := s.connected
	c.mu.Unlock()

	if wasConnected {
		c.stats.MarkDisconnected(time.Now())
		c.metrics.connectionsClosed.Inc()
		Logger.Infof("[%s] disconnected from %s", s.cfg.Name, s.server())
	}
	s.signalConnect()
	c.metrics.payloadsDropped.Add(s.queue.close(transport.ErrNotConnected))
	close(s.terminated)

	c.events.Emit(transport.Notification{Event: transport.ConnectionTerminated})
}
