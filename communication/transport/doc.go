// Package transport defines the contract of the GSF communication clients and
// the pieces every client implementation shares.
//
// The package focuses on:
//   - The IClient interface and the client lifecycle (ClientState)
//   - Event notification with a fixed set of channels (Event, Dispatcher)
//   - Connection string and endpoint parsing (Settings, Endpoint)
//   - Error sentinels and errno-like error classification
//
// Key Components:
//
//   - IClient: connect, disconnect, send, read and observe a single connection.
//     Implementations live in sub packages, for example transport/tcp.
//
//   - Dispatcher: delivers Notifications to HandlerFuncs. Handler panics are
//     routed to UnhandledUserException and never reach the I/O goroutines.
//
//   - SendHandle: completion handle of one queued payload.
//
//   - Statistics: byte counters, timestamps and rates of a client.
//
//   - Connect: the blocking connect helper built on ConnectAsync and State.
//
//   - ObserveConn: structured (log/slog) tracing of every I/O call of a connection.
package transport
