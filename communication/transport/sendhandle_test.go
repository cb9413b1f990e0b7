package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSendHandleCompletesOnce(t *testing.T) {
	h := NewSendHandle()
	assert.Nil(t, h.Err())

	select {
	case <-h.Done():
		t.Fatal("handle must be pending")
	default:
	}

	assert.True(t, h.Complete(ErrPayloadDropped))
	assert.False(t, h.Complete(nil))
	assert.ErrorIs(t, h.Wait(), ErrPayloadDropped)
	assert.ErrorIs(t, h.Err(), ErrPayloadDropped)
}

func TestSendHandleWaitContext(t *testing.T) {
	h := NewSendHandle()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.WaitContext(ctx), context.DeadlineExceeded)

	go h.Complete(nil)
	assert.NoError(t, h.WaitContext(context.Background()))
}
