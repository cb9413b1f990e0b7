package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/factory")

// Options carry the settings that cannot be expressed in a connection string
type Options struct {
	// Name labels the client in logs and metrics
	Name string
	// SLogger enables structured I/O tracing of the client's connections
	SLogger transport.SLogger
}

// Constructor builds a client from the settings of a connection string. The
// protocol key has already been removed from settings.
type Constructor func(settings transport.Settings, opts Options) (transport.IClient, error)

// registry maps lower case protocol names to constructors
var registry = xsync.NewMapOf[string, Constructor]()

// knownProtocols are the protocols of the GSF family; those without a registered
// constructor are reported as unsupported rather than unknown
var knownProtocols = []string{"tcp", "tls", "udp", "file", "serial", "zeromq"}

func init() {
	Register("tcp", newTCPClient)
}

// Register adds or replaces the constructor of protocol
func Register(protocol string, fn Constructor) {
	registry.Store(strings.ToLower(protocol), fn)
}

// Protocols returns the registered protocol names in sorted order
func Protocols() []string {
	var names []string
	registry.Range(func(name string, _ Constructor) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Create builds a client from a connection string such as
// "protocol=tcp; server=localhost:8888; payloadAware=true". The protocol key
// selects the client type, the remaining keys configure it.
func Create(connectionString string) (transport.IClient, error) {
	return CreateWithOptions(connectionString, Options{})
}

// CreateWithOptions is Create with additional options
func CreateWithOptions(connectionString string, opts Options) (transport.IClient, error) {
	settings, err := transport.ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	protocol, ok := settings.Get("protocol")
	if !ok || strings.TrimSpace(protocol) == "" {
		return nil, fmt.Errorf("%w: protocol is required (one of %s)",
			transport.ErrConfiguration, strings.Join(knownProtocols, ", "))
	}
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	settings.Delete("protocol")

	fn, ok := registry.Load(protocol)
	if !ok {
		for _, known := range knownProtocols {
			if known == protocol {
				return nil, fmt.Errorf("%w: no %s client is available (registered: %s)",
					transport.ErrUnsupportedProtocol, protocol, strings.Join(Protocols(), ", "))
			}
		}
		return nil, fmt.Errorf("%w: unknown protocol %q", transport.ErrConfiguration, protocol)
	}

	client, err := fn(settings, opts)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("created %s client for %s", protocol, client.ServerURI())
	return client, nil
}

// newTCPClient passes the settings on to the TCP client, which parses them the
// same way it parses its own connection string
func newTCPClient(settings transport.Settings, opts Options) (transport.IClient, error) {
	cfg := tcp.DefaultConfig()
	cfg.ConnectionString = settings.String()
	if opts.Name != "" {
		cfg.Name = opts.Name
	}
	cfg.SLogger = opts.SLogger

	client := tcp.NewClient(cfg)
	if err := client.Validate(); err != nil {
		return nil, err
	}
	return client, nil
}
