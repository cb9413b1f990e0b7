package tcp

import (
	"fmt"
	"testing"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPending(i int) *pendingPayload {
	return &pendingPayload{data: []byte(fmt.Sprint(i)), handle: transport.NewSendHandle()}
}

func TestSendQueueFIFOAndCompaction(t *testing.T) {
	q := &sendQueue{}
	for i := 0; i < 5000; i++ {
		_, err := q.push(newPending(i), 0)
		require.NoError(t, err)
		if i%2 == 1 {
			// interleave pops so the head moves while items are appended
			require.NotNil(t, q.pop())
		}
	}
	assert.Equal(t, 2500, q.len())

	next := 2500
	for p := q.pop(); p != nil; p = q.pop() {
		assert.Equal(t, fmt.Sprint(next), string(p.data))
		next++
	}
	assert.Equal(t, 5000, next)
	assert.Equal(t, 0, q.len())
}

func TestSendQueueOverflowEvictsOldest(t *testing.T) {
	q := &sendQueue{}
	for i := 0; i < 3; i++ {
		_, err := q.push(newPending(i), 3)
		require.NoError(t, err)
	}

	evicted, err := q.push(newPending(3), 3)
	assert.ErrorIs(t, err, transport.ErrSendQueueOverflow)
	require.Len(t, evicted, 3)
	assert.Equal(t, "0", string(evicted[0].data))
	assert.Equal(t, 0, q.len(), "the rejected payload is not queued")

	_, err = q.push(newPending(4), 3)
	require.NoError(t, err)
	assert.Equal(t, "4", string(q.pop().data))
}

func TestSendQueueClose(t *testing.T) {
	q := &sendQueue{}
	a, b := newPending(1), newPending(2)
	_, _ = q.push(a, 0)
	_, _ = q.push(b, 0)

	assert.Equal(t, 2, q.close(transport.ErrNotConnected))
	assert.ErrorIs(t, a.handle.Wait(), transport.ErrNotConnected)
	assert.ErrorIs(t, b.handle.Wait(), transport.ErrNotConnected)

	_, err := q.push(newPending(3), 0)
	assert.ErrorIs(t, err, transport.ErrNotConnected)
	assert.Nil(t, q.pop())
}
