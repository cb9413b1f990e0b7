package tcp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
)

// errPeerClosed ends the receive loop after an orderly shutdown by the peer
var errPeerClosed = errors.New("connection closed by peer")

// receiveLoop reads from conn until the session ends. Any error returned by a
// step terminates the connection.
func (c *Client) receiveLoop(s *session, conn net.Conn) {
	for !s.cancelled.Load() {
		if err := c.receiveStep(s, conn); err != nil {
			if errors.Is(err, errPeerClosed) {
				Logger.Infof("[%s] %s closed the connection", s.cfg.Name, s.server())
			}
			c.terminate(s)
			return
		}
	}
}

// receiveStep performs one read and delivers whatever it completed. A panic while
// processing the data is reported and the pipeline resumes with a clean decoder.
func (c *Client) receiveStep(s *session, conn net.Conn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.reportReceiveError(s, fmt.Errorf("receive processing failed: %v", r))
			err = c.resume(s)
		}
	}()

	if s.decoder != nil {
		return c.receiveFramed(s, conn)
	}
	return c.receiveRaw(s, conn)
}

// resume drops partial frame state after a failed step
func (c *Client) resume(s *session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("receive pipeline could not resume: %v", r)
		}
	}()
	if s.decoder != nil {
		s.decoder.Reset()
	}
	return nil
}

// receiveRaw delivers each read as it arrives
func (c *Client) receiveRaw(s *session, conn net.Conn) error {
	n, err := conn.Read(s.rxBuf)
	if n > 0 {
		c.stats.UpdateBytesReceived(n)
		c.metrics.bytesReceived.Add(n)
		c.deliver(s, s.rxBuf[:n])
	}
	return c.checkReadError(s, err)
}

// receiveFramed reads straight into the decoder and delivers complete payloads
func (c *Client) receiveFramed(s *session, conn net.Conn) error {
	n, err := conn.Read(s.decoder.Target())
	if n > 0 {
		c.stats.UpdateBytesReceived(n)
		c.metrics.bytesReceived.Add(n)

		frame, derr := s.decoder.Advance(n)
		if derr != nil {
			c.metrics.desyncs.Inc()
			Logger.Warningf("[%s] %v", s.cfg.Name, derr)
			c.reportReceiveError(s, derr)
		}
		if frame != nil {
			c.metrics.framesReceived.Inc()
			c.deliver(s, frame)
		}
	}
	return c.checkReadError(s, err)
}

// checkReadError decides whether a read error ends the connection and whether it
// is worth reporting. Orderly closes and errors caused by our own disconnect are
// not reported.
func (c *Client) checkReadError(s *session, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return errPeerClosed
	case s.cancelled.Load() || transport.IsBenignDisconnect(err):
		return err
	default:
		c.reportReceiveError(s, err)
		return err
	}
}

// deliver announces data through ReceiveData, during which Read serves it from
// the live buffer, then hands a private copy to ReceiveDataComplete
func (c *Client) deliver(s *session, data []byte) {
	s.liveMu.Lock()
	s.live, s.readIndex = data, 0
	s.liveMu.Unlock()

	c.events.Emit(transport.Notification{Event: transport.ReceiveData, Size: len(data)})

	s.liveMu.Lock()
	s.live, s.readIndex = nil, 0
	s.liveMu.Unlock()

	if c.events.HasHandlers(transport.ReceiveDataComplete) {
		c.events.Emit(transport.Notification{
			Event: transport.ReceiveDataComplete,
			Size:  len(data),
			Data:  bytes.Clone(data),
		})
	}
}

// Read copies the data of the ReceiveData notification being handled into p.
// Successive calls continue where the previous one stopped and return io.EOF once
// everything was read.
func (c *Client) Read(p []byte) (int, error) {
	s := c.currentSession()
	if s == nil {
		return 0, transport.ErrNoReceivedData
	}

	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if s.live == nil {
		return 0, transport.ErrNoReceivedData
	}
	if s.readIndex >= len(s.live) {
		return 0, io.EOF
	}
	n := copy(p, s.live[s.readIndex:])
	s.readIndex += n
	return n, nil
}

// reportReceiveError raises ReceiveDataException unless the session is already gone
func (c *Client) reportReceiveError(s *session, err error) {
	if s.cancelled.Load() || c.State() == transport.Disconnected {
		return
	}
	c.metrics.receiveExceptions.Inc()
	Logger.Debugf("[%s] receive failed (%s): %v", s.cfg.Name, transport.ClassifyError(err), err)
	c.events.Emit(transport.Notification{Event: transport.ReceiveDataException, Err: err})
}
