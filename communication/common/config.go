package common

import (
	"fmt"
	"strconv"
	"strings"
)

// formatter produces the sectioned "name: value" layout used by every config String()
type formatter struct {
	sb strings.Builder
}

func (f *formatter) addSection(title string) {
	f.sb.WriteString("\n")
	f.sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func (f *formatter) addField(name, value string) {
	f.sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
}

func (f *formatter) String() string {
	return f.sb.String()
}

// limit renders -1 (and any other non-positive value) as "unlimited"
func limit(v int) string {
	if v <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(v)
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the settings of the gsfclient connect command. The connection
// string is handed to the transport factory unchanged; the remaining fields are
// merged into it when they differ from their defaults.
type ClientConfig struct {
	ConnectionString string

	// Transport overrides (zero means "keep what the connection string says")
	SendBufferSize        int
	ReceiveBufferSize     int
	MaxConnectionAttempts int
	MaxSendQueueSize      int

	// Output settings
	HexOutput       bool
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	f := &formatter{}

	f.addSection("Client")
	f.addField("Connection String", c.ConnectionString)
	f.addField("Max Connection Attempts", limit(c.MaxConnectionAttempts))
	f.addField("Max Send Queue Size", limit(c.MaxSendQueueSize))
	if c.SendBufferSize > 0 {
		f.addField("Send Buffer", fmt.Sprintf("%d bytes", c.SendBufferSize))
	}
	if c.ReceiveBufferSize > 0 {
		f.addField("Receive Buffer", fmt.Sprintf("%d bytes", c.ReceiveBufferSize))
	}

	f.addSection("Output")
	f.addField("Hex Output", strconv.FormatBool(c.HexOutput))
	if c.MetricsEndpoint != "" {
		f.addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	f.addSection("Logging")
	f.addField("Log Level", c.LogLevel)

	return f.String()
}

// --------------------------------------------------------------------------
// Listener configuration struct
// --------------------------------------------------------------------------

// ListenerConfig holds the settings of the gsfclient listen command, a peer used
// to exercise the client against a real socket.
type ListenerConfig struct {
	Endpoint     string
	PayloadAware bool
	Echo         bool
	LogLevel     string
}

// String returns a formatted string representation of the listener configuration
func (c *ListenerConfig) String() string {
	f := &formatter{}

	f.addSection("Listener")
	f.addField("Endpoint", c.Endpoint)
	f.addField("Payload Aware", strconv.FormatBool(c.PayloadAware))
	f.addField("Echo", strconv.FormatBool(c.Echo))

	f.addSection("Logging")
	f.addField("Log Level", c.LogLevel)

	return f.String()
}
