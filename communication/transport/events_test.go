package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherOrder(t *testing.T) {
	d := NewDispatcher()
	var got []string
	d.Subscribe(ReceiveData, func(n Notification) { got = append(got, "first") })
	d.Subscribe(ReceiveData, func(n Notification) { got = append(got, "second") })
	d.Subscribe(SendDataStart, func(n Notification) { got = append(got, "other") })

	assert.True(t, d.HasHandlers(ReceiveData))
	assert.False(t, d.HasHandlers(ConnectionAttempt))

	d.Emit(Notification{Event: ReceiveData, Size: 3})
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestDispatcherRoutesPanics(t *testing.T) {
	d := NewDispatcher()
	var unhandled []error
	reachedNext := false

	d.Subscribe(ConnectionEstablished, func(n Notification) { panic("boom") })
	d.Subscribe(ConnectionEstablished, func(n Notification) { reachedNext = true })
	d.Subscribe(UnhandledUserException, func(n Notification) { unhandled = append(unhandled, n.Err) })

	require.NotPanics(t, func() {
		d.Emit(Notification{Event: ConnectionEstablished})
	})

	assert.True(t, reachedNext, "a panicking handler must not stop the others")
	require.Len(t, unhandled, 1)
	assert.True(t, errors.Is(unhandled[0], ErrUserHandler))
	assert.Contains(t, unhandled[0].Error(), "ConnectionEstablished")
	assert.Contains(t, unhandled[0].Error(), "boom")
}

func TestDispatcherSwallowsUnhandledHandlerPanic(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	d.Subscribe(UnhandledUserException, func(n Notification) {
		calls++
		panic("again")
	})
	d.Subscribe(SendDataComplete, func(n Notification) { panic("first") })

	require.NotPanics(t, func() {
		d.Emit(Notification{Event: SendDataComplete})
	})
	assert.Equal(t, 1, calls)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "ReceiveDataComplete", ReceiveDataComplete.String())
	assert.Equal(t, "UnhandledUserException", UnhandledUserException.String())
	assert.Equal(t, "Event(99)", Event(99).String())
	assert.Equal(t, "Connecting", Connecting.String())
}
