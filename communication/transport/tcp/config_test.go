package tcp

import (
	"encoding/binary"
	"testing"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	cfg, servers, err := Config{}.resolve()
	require.NoError(t, err)

	assert.Equal(t, []transport.Endpoint{{Host: "localhost", Port: 8888}}, servers)
	assert.Equal(t, "tcp", cfg.Name)
	assert.Equal(t, -1, cfg.MaxConnectionAttempts)
	assert.Equal(t, binary.LittleEndian, cfg.PayloadByteOrder)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, cfg.PayloadMarker)

	assert.Equal(t, DefaultBufferSize, cfg.SendBufferSize)
	assert.Equal(t, DefaultBufferSize, cfg.ReceiveBufferSize)

	_, _, err = Config{ConnectionString: "server=localhost:1", SendBufferSize: -1}.resolve()
	assert.ErrorIs(t, err, transport.ErrConfiguration)
}

func TestResolveConnectionStringOverrides(t *testing.T) {
	base := DefaultConfig()
	base.ConnectionString = "Server=example.org; Port=9000; PayloadAware=true; MaxSendQueueSize=10; " +
		"MaxConnectionAttempts=0; SendBufferSize=1024; ReceiveBufferSize=2048; NoDelay=true; " +
		"AllowDualStackSocket=false; IntegratedSecurity=true; Interface=127.0.0.1"

	cfg, servers, err := base.resolve()
	require.NoError(t, err)

	assert.Equal(t, []transport.Endpoint{{Host: "example.org", Port: 9000}}, servers)
	assert.True(t, cfg.PayloadAware)
	assert.Equal(t, 10, cfg.MaxSendQueueSize)
	assert.Equal(t, -1, cfg.MaxConnectionAttempts, "values below one mean unlimited")
	assert.Equal(t, 1024, cfg.SendBufferSize)
	assert.Equal(t, 2048, cfg.ReceiveBufferSize)
	assert.True(t, cfg.NoDelay)
	assert.False(t, cfg.AllowDualStackSocket)
	assert.True(t, cfg.IntegratedSecurity)
	assert.Equal(t, "127.0.0.1", cfg.Interface)

	// the original config is not modified
	assert.False(t, base.PayloadAware)
}

func TestResolveRejectsBadSettings(t *testing.T) {
	tests := map[string]string{
		"no server":        "payloadAware=true",
		"no port":          "server=badhost",
		"port range":       "server=localhost:70000",
		"bad integer":      "server=localhost:1; sendBufferSize=lots",
		"bad boolean":      "server=localhost:1; noDelay=sometimes",
		"bad interface":    "server=localhost:1; interface=eth0",
		"malformed":        "server",
		"negative buffers": "server=localhost:1; receiveBufferSize=-1",
	}
	for name, connStr := range tests {
		_, _, err := testConfig(connStr).resolve()
		assert.ErrorIs(t, err, transport.ErrConfiguration, name)
	}
}
