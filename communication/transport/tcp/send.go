package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
)

// --------------------------------------------------------------------------
// Send queue
// --------------------------------------------------------------------------

type pendingPayload struct {
	data   []byte
	handle *transport.SendHandle
}

// sendQueue is the FIFO of payloads waiting for the dispatcher
type sendQueue struct {
	mu     sync.Mutex
	items  []*pendingPayload
	head   int
	closed bool
}

func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// push appends p unless the queue is closed or holds limit payloads already. In
// the latter case the oldest limit payloads are evicted and returned and p is
// rejected. A limit of zero means unbounded.
func (q *sendQueue) push(p *pendingPayload, limit int) (evicted []*pendingPayload, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, transport.ErrNotConnected
	}
	if n := len(q.items) - q.head; limit > 0 && n >= limit {
		evicted = append(evicted, q.items[q.head:q.head+limit]...)
		clear(q.items[q.head : q.head+limit])
		q.head += limit
		q.compact()
		return evicted, fmt.Errorf("%w (%d)", transport.ErrSendQueueOverflow, limit)
	}
	q.items = append(q.items, p)
	return nil, nil
}

// pop removes the oldest payload, or returns nil when there is none
func (q *sendQueue) pop() *pendingPayload {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.head == len(q.items) {
		return nil
	}
	p := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	q.compact()
	return p
}

// compact releases the consumed prefix of the backing array
func (q *sendQueue) compact() {
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > 1024 && q.head*2 > len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}

// close rejects further pushes and completes every waiting payload with err. It
// returns the number of payloads that were failed.
func (q *sendQueue) close(err error) int {
	q.mu.Lock()
	pending := q.items[q.head:]
	q.items, q.head, q.closed = nil, 0, true
	q.mu.Unlock()

	for _, p := range pending {
		p.handle.Complete(err)
	}
	return len(pending)
}

// --------------------------------------------------------------------------
// Send pipeline
// --------------------------------------------------------------------------

func (c *Client) Send(data []byte) error {
	handle, err := c.SendAsync(data)
	if err != nil {
		return err
	}
	return handle.Wait()
}

func (c *Client) SendAsync(data []byte) (*transport.SendHandle, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil || c.State() != transport.Connected || s.cancelled.Load() {
		return nil, transport.ErrNotConnected
	}

	if s.cfg.PayloadAware {
		data = s.cfg.codec().AddHeader(data)
	}
	p := &pendingPayload{data: data, handle: transport.NewSendHandle()}

	evicted, err := s.queue.push(p, s.cfg.MaxSendQueueSize)
	for _, e := range evicted {
		e.handle.Complete(transport.ErrPayloadDropped)
	}
	if err != nil {
		if errors.Is(err, transport.ErrSendQueueOverflow) {
			c.metrics.queueOverflows.Inc()
			c.metrics.payloadsDropped.Add(len(evicted))
			Logger.Warningf("[%s] send queue overflow, dropped %d queued payloads", s.cfg.Name, len(evicted))
			c.reportSendError(s, err)
		}
		return nil, err
	}

	c.events.Emit(transport.Notification{Event: transport.SendDataStart, Size: len(data)})

	// only one dispatcher per session; the mutex makes the check-and-start atomic
	// with respect to the dispatcher giving up in drain
	s.sendMu.Lock()
	if s.sending.CompareAndSwap(false, true) {
		go c.drain(s)
	}
	s.sendMu.Unlock()

	return p.handle, nil
}

// drain transmits queued payloads in order until the queue is empty
func (c *Client) drain(s *session) {
	for {
		p := s.queue.pop()
		if p != nil {
			c.transmit(s, p)
			continue
		}

		s.sendMu.Lock()
		s.sending.Store(false)
		// a payload may have been queued after pop but before the flag was cleared
		restart := s.queue.len() > 0 && !s.cancelled.Load() && s.sending.CompareAndSwap(false, true)
		s.sendMu.Unlock()
		if !restart {
			return
		}
	}
}

// transmit writes one payload in chunks of at most SendBufferSize bytes, copying
// each chunk into the session's transmit buffer
func (c *Client) transmit(s *session, p *pendingPayload) {
	c.mu.Lock()
	conn := s.conn
	c.mu.Unlock()

	remaining := p.data
	for len(remaining) > 0 {
		if s.cancelled.Load() {
			p.handle.Complete(transport.ErrNotConnected)
			return
		}
		n := copy(s.txBuf, remaining)
		written, err := conn.Write(s.txBuf[:n])
		c.stats.UpdateBytesSent(written)
		c.metrics.bytesSent.Add(written)
		if err != nil {
			if s.cancelled.Load() || errors.Is(err, net.ErrClosed) {
				p.handle.Complete(transport.ErrNotConnected)
				return
			}
			p.handle.Complete(err)
			c.reportSendError(s, err)
			return
		}
		remaining = remaining[n:]
	}

	p.handle.Complete(nil)
	c.metrics.payloadsSent.Inc()
	c.events.Emit(transport.Notification{Event: transport.SendDataComplete, Size: len(p.data)})
}

// reportSendError raises SendDataException unless the session is already gone
func (c *Client) reportSendError(s *session, err error) {
	if s.cancelled.Load() || c.State() == transport.Disconnected {
		return
	}
	c.metrics.sendExceptions.Inc()
	Logger.Debugf("[%s] send failed (%s): %v", s.cfg.Name, transport.ClassifyError(err), err)
	c.events.Emit(transport.Notification{Event: transport.SendDataException, Err: err})
}
