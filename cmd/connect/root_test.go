package connect

import (
	"testing"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPayloadAware(t *testing.T) {
	aware, err := isPayloadAware("protocol=tcp; server=localhost:8888; PayloadAware=true")
	require.NoError(t, err)
	assert.True(t, aware)

	aware, err = isPayloadAware("protocol=tcp; server=localhost:8888")
	require.NoError(t, err)
	assert.False(t, aware)

	_, err = isPayloadAware("protocol=tcp; server")
	assert.ErrorIs(t, err, transport.ErrConfiguration)

	_, err = isPayloadAware("payloadAware=maybe")
	assert.ErrorIs(t, err, transport.ErrConfiguration)
}
