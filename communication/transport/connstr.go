package transport

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Connection string
// --------------------------------------------------------------------------

// Settings are the key/value pairs of a connection string. Keys are stored lower
// case, so lookups are case-insensitive.
type Settings map[string]string

// ParseConnectionString parses "key=value; key=value" pairs. Values may be wrapped
// in braces to carry semicolons or equal signs, e.g. "server={a;b}". Empty
// segments are ignored.
func ParseConnectionString(s string) (Settings, error) {
	settings := Settings{}

	for _, segment := range splitSegments(s) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, ok := strings.Cut(segment, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: malformed connection string segment %q (expected key=value)", ErrConfiguration, segment)
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '{' && value[len(value)-1] == '}' {
			value = value[1 : len(value)-1]
		}
		settings[key] = value
	}
	return settings, nil
}

// splitSegments splits on semicolons that are not nested in braces
func splitSegments(s string) []string {
	var segments []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				segments = append(segments, s[start:i])
				start = i + 1
			}
		}
	}
	return append(segments, s[start:])
}

// Get returns the value of key, ignoring case
func (s Settings) Get(key string) (string, bool) {
	v, ok := s[strings.ToLower(key)]
	return v, ok
}

// Set stores value under key, ignoring case
func (s Settings) Set(key, value string) {
	s[strings.ToLower(key)] = value
}

// Delete removes key, ignoring case
func (s Settings) Delete(key string) {
	delete(s, strings.ToLower(key))
}

// Bool parses key as a boolean, returning def when it is absent
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, ok := s.Get(key)
	if !ok || v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return def, fmt.Errorf("%w: %s=%q is not a boolean", ErrConfiguration, key, v)
}

// Int parses key as an integer, returning def when it is absent
func (s Settings) Int(key string, def int) (int, error) {
	v, ok := s.Get(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q is not an integer", ErrConfiguration, key, v)
	}
	return n, nil
}

// String renders the settings with sorted keys
func (s Settings) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := s[k]
		if strings.ContainsAny(v, ";=") {
			v = "{" + v + "}"
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "; ")
}

// --------------------------------------------------------------------------
// Endpoints
// --------------------------------------------------------------------------

// Endpoint is a host and port pair
type Endpoint struct {
	Host string
	Port int
}

// String returns the endpoint in dialable form, bracketing IPv6 literals
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint parses "host:port" or "[ipv6]:port"
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: server %q must be specified as host:port", ErrConfiguration, s)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: server %q is missing a host", ErrConfiguration, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: port %q is not between 0 and 65535", ErrConfiguration, portStr)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// ParseServerList parses a comma separated list of endpoints
func ParseServerList(s string) ([]Endpoint, error) {
	var endpoints []Endpoint
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		ep, err := ParseEndpoint(item)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: server is required", ErrConfiguration)
	}
	return endpoints, nil
}

// MergeLegacyPort folds the obsolete "port" key into "server". It only applies
// when server names a single host without a port.
func (s Settings) MergeLegacyPort() {
	port, ok := s.Get("port")
	if !ok {
		return
	}
	server, ok := s.Get("server")
	if ok && server != "" && !strings.Contains(server, ",") {
		if _, _, err := net.SplitHostPort(server); err != nil {
			s.Set("server", net.JoinHostPort(strings.Trim(server, "[]"), port))
		}
	}
	s.Delete("port")
}
