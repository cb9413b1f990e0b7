package transport

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient settles into final after delay
type stubClient struct {
	state        atomic.Int32
	final        ClientState
	delay        time.Duration
	disconnected atomic.Bool
	signal       bool
}

func (c *stubClient) ConnectAsync() (<-chan struct{}, error) {
	if c.State() != Disconnected {
		return nil, ErrInvalidState
	}
	c.state.Store(int32(Connecting))
	done := make(chan struct{})
	go func() {
		time.Sleep(c.delay)
		c.state.Store(int32(c.final))
		if c.signal {
			close(done)
		}
	}()
	return done, nil
}

func (c *stubClient) Connect(ctx context.Context) error { return Connect(ctx, c, 0) }
func (c *stubClient) Disconnect() {
	c.disconnected.Store(true)
	c.state.Store(int32(Disconnected))
}
func (c *stubClient) Send([]byte) error                     { return nil }
func (c *stubClient) SendAsync([]byte) (*SendHandle, error) { return NewSendHandle(), nil }
func (c *stubClient) Read([]byte) (int, error)              { return 0, ErrNoReceivedData }
func (c *stubClient) Subscribe(Event, HandlerFunc)          {}
func (c *stubClient) State() ClientState                    { return ClientState(c.state.Load()) }
func (c *stubClient) Statistics() *Statistics               { return nil }
func (c *stubClient) ServerURI() string                     { return "stub://test" }
func (c *stubClient) Status() string                        { return "" }
func (c *stubClient) Close() error                          { return nil }

var _ IClient = &stubClient{}

func TestConnectWaitsForHandle(t *testing.T) {
	c := &stubClient{final: Connected, delay: 10 * time.Millisecond, signal: true}
	require.NoError(t, Connect(context.Background(), c, time.Hour))
	assert.Equal(t, Connected, c.State())
}

func TestConnectPollsState(t *testing.T) {
	c := &stubClient{final: Connected, delay: 10 * time.Millisecond}
	require.NoError(t, Connect(context.Background(), c, 5*time.Millisecond))
}

func TestConnectFailure(t *testing.T) {
	c := &stubClient{final: Disconnected, signal: true}
	err := Connect(context.Background(), c, 5*time.Millisecond)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Contains(t, err.Error(), "stub://test")
}

func TestConnectInvalidState(t *testing.T) {
	c := &stubClient{}
	c.state.Store(int32(Connected))
	assert.ErrorIs(t, Connect(context.Background(), c, 0), ErrInvalidState)
}

func TestConnectContextCancel(t *testing.T) {
	c := &stubClient{final: Connected, delay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, Connect(ctx, c, 5*time.Millisecond), context.DeadlineExceeded)
	assert.True(t, c.disconnected.Load())
}
