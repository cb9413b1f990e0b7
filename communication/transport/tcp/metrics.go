package tcp

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// clientMetrics are the Prometheus counters of one client name. They live in the
// default VictoriaMetrics set, so metrics.WritePrometheus exposes them.
type clientMetrics struct {
	connectAttempts      *metrics.Counter
	connectionExceptions *metrics.Counter
	connectionsOpened    *metrics.Counter
	connectionsClosed    *metrics.Counter
	bytesSent            *metrics.Counter
	bytesReceived        *metrics.Counter
	payloadsSent         *metrics.Counter
	framesReceived       *metrics.Counter
	sendExceptions       *metrics.Counter
	receiveExceptions    *metrics.Counter
	queueOverflows       *metrics.Counter
	payloadsDropped      *metrics.Counter
	desyncs              *metrics.Counter
}

func newClientMetrics(name string) *clientMetrics {
	counter := func(metric string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`gsf_tcp_client_%s_total{client=%q}`, metric, name))
	}
	return &clientMetrics{
		connectAttempts:      counter("connect_attempts"),
		connectionExceptions: counter("connection_exceptions"),
		connectionsOpened:    counter("connections_opened"),
		connectionsClosed:    counter("connections_closed"),
		bytesSent:            counter("bytes_sent"),
		bytesReceived:        counter("bytes_received"),
		payloadsSent:         counter("payloads_sent"),
		framesReceived:       counter("frames_received"),
		sendExceptions:       counter("send_exceptions"),
		receiveExceptions:    counter("receive_exceptions"),
		queueOverflows:       counter("queue_overflows"),
		payloadsDropped:      counter("payloads_dropped"),
		desyncs:              counter("desyncs"),
	}
}
