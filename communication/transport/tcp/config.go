package tcp

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport/payload"
)

const (
	// DefaultConnectionString is used when Config.ConnectionString is empty
	DefaultConnectionString = "Server=localhost:8888"
	// DefaultBufferSize is the default size of the transmit and receive buffers
	DefaultBufferSize = 32 * 1024
	// DefaultMaxSendQueueSize bounds the number of payloads waiting to be sent
	DefaultMaxSendQueueSize = 500000
	// DefaultMaxConnectionAttempts retries refused connections forever
	DefaultMaxConnectionAttempts = -1
	// DefaultRetryBackoff is the delay before the first retry of a refused connect
	DefaultRetryBackoff = 50 * time.Millisecond
	// DefaultMaxRetryBackoff caps the doubling retry delay
	DefaultMaxRetryBackoff = 5 * time.Second
)

// Config holds the settings of a TCP client. Keys present in ConnectionString
// take precedence over the corresponding fields:
//
//	server                 host:port, [ipv6]:port or a comma separated list
//	port                   legacy, merged into a server without port
//	interface              local address to bind to
//	payloadAware           frame payloads with marker and length
//	maxSendQueueSize       payloads allowed to wait for transmission (<=0 unbounded)
//	maxConnectionAttempts  attempts before giving up on refused connects (<1 unlimited)
//	sendBufferSize         transmit chunk size
//	receiveBufferSize      receive buffer size
//	noDelay                disable Nagle's algorithm
//	allowDualStackSocket   accept IPv4 peers on IPv6 sockets
//	integratedSecurity     accepted for compatibility, authentication is not performed
type Config struct {
	ConnectionString string

	// Name labels the client in logs and metrics
	Name string

	PayloadAware     bool
	PayloadMarker    []byte
	PayloadByteOrder binary.ByteOrder
	MaxPayloadSize   int

	SendBufferSize        int
	ReceiveBufferSize     int
	MaxSendQueueSize      int
	MaxConnectionAttempts int

	Interface            string
	AllowDualStackSocket bool
	NoDelay              bool
	IntegratedSecurity   bool

	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration

	// Dialer replaces the default net.Dialer, mostly for tests
	Dialer transport.Dialer

	// SLogger enables structured tracing of every socket operation when set
	SLogger transport.SLogger
}

// DefaultConfig returns the default settings
func DefaultConfig() Config {
	return Config{
		ConnectionString:      DefaultConnectionString,
		Name:                  "tcp",
		PayloadMarker:         payload.DefaultMarker,
		PayloadByteOrder:      binary.LittleEndian,
		MaxPayloadSize:        payload.DefaultMaxPayloadSize,
		SendBufferSize:        DefaultBufferSize,
		ReceiveBufferSize:     DefaultBufferSize,
		MaxSendQueueSize:      DefaultMaxSendQueueSize,
		MaxConnectionAttempts: DefaultMaxConnectionAttempts,
		AllowDualStackSocket:  true,
		RetryBackoff:          DefaultRetryBackoff,
		MaxRetryBackoff:       DefaultMaxRetryBackoff,
	}
}

// resolve applies the connection string to a copy of c and validates the result
func (c Config) resolve() (Config, []transport.Endpoint, error) {
	connStr := c.ConnectionString
	if strings.TrimSpace(connStr) == "" {
		connStr = DefaultConnectionString
	}
	settings, err := transport.ParseConnectionString(connStr)
	if err != nil {
		return c, nil, err
	}
	settings.MergeLegacyPort()

	server, ok := settings.Get("server")
	if !ok {
		return c, nil, fmt.Errorf("%w: server is required (e.g. server=localhost:8888)", transport.ErrConfiguration)
	}
	servers, err := transport.ParseServerList(server)
	if err != nil {
		return c, nil, err
	}

	if v, ok := settings.Get("interface"); ok {
		c.Interface = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"maxSendQueueSize", &c.MaxSendQueueSize},
		{"maxConnectionAttempts", &c.MaxConnectionAttempts},
		{"sendBufferSize", &c.SendBufferSize},
		{"receiveBufferSize", &c.ReceiveBufferSize},
	}
	for _, f := range ints {
		if *f.dst, err = settings.Int(f.key, *f.dst); err != nil {
			return c, nil, err
		}
	}
	bools := []struct {
		key string
		dst *bool
	}{
		{"payloadAware", &c.PayloadAware},
		{"noDelay", &c.NoDelay},
		{"allowDualStackSocket", &c.AllowDualStackSocket},
		{"integratedSecurity", &c.IntegratedSecurity},
	}
	for _, f := range bools {
		if *f.dst, err = settings.Bool(f.key, *f.dst); err != nil {
			return c, nil, err
		}
	}

	if err := c.normalize(); err != nil {
		return c, nil, err
	}
	return c, servers, nil
}

// normalize fills zero values with defaults and rejects unusable values
func (c *Config) normalize() error {
	if c.Name == "" {
		c.Name = "tcp"
	}
	if c.MaxConnectionAttempts < 1 {
		c.MaxConnectionAttempts = -1
	}
	if c.MaxSendQueueSize < 0 {
		c.MaxSendQueueSize = 0
	}
	if c.SendBufferSize < 0 || c.ReceiveBufferSize < 0 {
		return fmt.Errorf("%w: buffer sizes must be positive (send=%d, receive=%d)",
			transport.ErrConfiguration, c.SendBufferSize, c.ReceiveBufferSize)
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = DefaultBufferSize
	}
	if c.ReceiveBufferSize == 0 {
		c.ReceiveBufferSize = DefaultBufferSize
	}
	if len(c.PayloadMarker) == 0 {
		c.PayloadMarker = payload.DefaultMarker
	}
	if c.PayloadByteOrder == nil {
		c.PayloadByteOrder = binary.LittleEndian
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.MaxRetryBackoff < c.RetryBackoff {
		c.MaxRetryBackoff = max(c.RetryBackoff, DefaultMaxRetryBackoff)
	}
	if c.Interface != "" && net.ParseIP(strings.Trim(c.Interface, "[]")) == nil {
		return fmt.Errorf("%w: interface %q is not an IP address", transport.ErrConfiguration, c.Interface)
	}
	return nil
}

// codec builds the payload codec for the configured marker and byte order
func (c *Config) codec() *payload.Codec {
	return &payload.Codec{
		Marker:         c.PayloadMarker,
		ByteOrder:      c.PayloadByteOrder,
		MaxPayloadSize: c.MaxPayloadSize,
	}
}
