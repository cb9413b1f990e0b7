package transport

import (
	"context"
	"sync"
)

// SendHandle tracks one queued payload. It completes exactly once: with nil when
// the payload was written, ErrPayloadDropped when it was evicted from a full queue,
// ErrNotConnected when the connection ended first, or the error of the failed write.
type SendHandle struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewSendHandle creates a pending handle
func NewSendHandle() *SendHandle {
	return &SendHandle{done: make(chan struct{})}
}

// Complete resolves the handle. Only the first call has an effect and reports true.
func (h *SendHandle) Complete(err error) bool {
	completed := false
	h.once.Do(func() {
		h.err = err
		close(h.done)
		completed = true
	})
	return completed
}

// Done is closed once the handle completed
func (h *SendHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the result, or nil while the handle is pending
func (h *SendHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the handle completed and returns its result
func (h *SendHandle) Wait() error {
	<-h.done
	return h.err
}

// WaitContext is Wait bounded by ctx
func (h *SendHandle) WaitContext(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
