package transport

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

// Statistics holds the transport counters of a client. Totals are striped
// counters so the send and receive goroutines never contend on them; the rates
// are exponentially weighted one minute averages.
type Statistics struct {
	mu                sync.RWMutex
	lastSend          time.Time
	lastBytesSent     int
	lastReceive       time.Time
	lastBytesReceived int
	connectTime       time.Time
	disconnectTime    time.Time

	totalBytesSent     *xsync.Counter
	totalBytesReceived *xsync.Counter
	sendRate           gometrics.Meter
	receiveRate        gometrics.Meter
}

// NewStatistics creates zeroed statistics. Call Stop once they are no longer used.
func NewStatistics() *Statistics {
	return &Statistics{
		totalBytesSent:     xsync.NewCounter(),
		totalBytesReceived: xsync.NewCounter(),
		sendRate:           gometrics.NewMeter(),
		receiveRate:        gometrics.NewMeter(),
	}
}

// UpdateBytesSent records a completed write
func (s *Statistics) UpdateBytesSent(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.lastSend = time.Now()
	s.lastBytesSent = n
	s.mu.Unlock()
	s.totalBytesSent.Add(int64(n))
	s.sendRate.Mark(int64(n))
}

// UpdateBytesReceived records a completed read
func (s *Statistics) UpdateBytesReceived(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.lastReceive = time.Now()
	s.lastBytesReceived = n
	s.mu.Unlock()
	s.totalBytesReceived.Add(int64(n))
	s.receiveRate.Mark(int64(n))
}

// MarkConnected records the start of a connection
func (s *Statistics) MarkConnected(t time.Time) {
	s.mu.Lock()
	s.connectTime = t
	s.disconnectTime = time.Time{}
	s.mu.Unlock()
}

// MarkDisconnected records the end of a connection
func (s *Statistics) MarkDisconnected(t time.Time) {
	s.mu.Lock()
	if !s.connectTime.IsZero() && s.disconnectTime.IsZero() {
		s.disconnectTime = t
	}
	s.mu.Unlock()
}

// ConnectionTime is how long the current (or last) connection lasted
func (s *Statistics) ConnectionTime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.connectTime.IsZero():
		return 0
	case s.disconnectTime.IsZero():
		return time.Since(s.connectTime)
	default:
		return s.disconnectTime.Sub(s.connectTime)
	}
}

func (s *Statistics) LastSend() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSend
}

func (s *Statistics) LastBytesSent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBytesSent
}

func (s *Statistics) LastReceive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReceive
}

func (s *Statistics) LastBytesReceived() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBytesReceived
}

func (s *Statistics) ConnectTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectTime
}

func (s *Statistics) DisconnectTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disconnectTime
}

func (s *Statistics) TotalBytesSent() int64 {
	return s.totalBytesSent.Value()
}

func (s *Statistics) TotalBytesReceived() int64 {
	return s.totalBytesReceived.Value()
}

// SendRate is the one minute average of bytes written per second
func (s *Statistics) SendRate() float64 {
	return s.sendRate.Rate1()
}

// ReceiveRate is the one minute average of bytes read per second
func (s *Statistics) ReceiveRate() float64 {
	return s.receiveRate.Rate1()
}

// Stop detaches the rate meters from the go-metrics ticker
func (s *Statistics) Stop() {
	s.sendRate.Stop()
	s.receiveRate.Stop()
}
