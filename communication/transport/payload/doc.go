// Package payload implements the GSF payload framing used on stream transports
// when a client is "payload aware".
//
// Every payload is preceded by a header made of a marker (0xAA 0xBB 0xCC 0xDD by
// default) and a four byte length. A length of zero is a heartbeat and is never
// delivered.
//
// Key Components:
//
//   - Codec: AddHeader, HeaderSize and ExtractLength for a given marker, byte order
//     and payload size limit.
//
//   - Decoder: a two phase (header, payload) reassembly state machine that lets the
//     caller read straight into its buffer. Misplaced markers and impossible
//     lengths trigger a forward scan for the next marker, reported as DesyncError.
package payload
