// Package tcp implements the GSF communication client over a single TCP
// connection.
//
// A Client walks through Disconnected, Connecting and Connected. Connecting runs
// in its own goroutine and retries refused connections (with exponential backoff
// and rotation through the server list) until MaxConnectionAttempts is reached.
// Once connected, two pipelines run independently:
//
//   - Send: payloads are queued in FIFO order and written by a single dispatcher
//     goroutine in chunks of SendBufferSize. The queue is bounded by
//     MaxSendQueueSize; when it is full the oldest payloads are dropped and the new
//     send fails with transport.ErrSendQueueOverflow.
//
//   - Receive: one goroutine reads the socket. Without payload framing every read
//     is delivered as is; with PayloadAware set, reads feed a payload.Decoder and
//     only complete payloads are delivered.
//
// Each connection lives in a session that is cancelled exactly once when the
// connection ends, whoever notices first. Goroutines of a cancelled session stop
// reporting errors, so a Disconnect racing with I/O does not produce noise.
//
// Counters for every client name are exported through VictoriaMetrics
// (gsf_tcp_client_*_total); see metrics.WritePrometheus.
package tcp
