package util

import (
	"strings"
	"testing"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
}

func TestEffectiveConnectionString(t *testing.T) {
	conf := &common.ClientConfig{
		ConnectionString:      "Protocol=tcp; Server=localhost:8888",
		MaxConnectionAttempts: -1,
		SendBufferSize:        1024,
	}
	got, err := EffectiveConnectionString(conf)
	require.NoError(t, err)
	assert.Equal(t, "maxconnectionattempts=-1; protocol=tcp; sendbuffersize=1024; server=localhost:8888", got)

	conf.ConnectionString = "garbage"
	_, err = EffectiveConnectionString(conf)
	assert.Error(t, err)
}
