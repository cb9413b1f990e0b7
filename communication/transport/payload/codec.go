package payload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// LengthSegment is the size of the length field that follows the marker
const LengthSegment = 4

// DefaultMaxPayloadSize bounds the length a header may declare. Anything larger is
// treated as a corrupt header rather than an allocation request.
const DefaultMaxPayloadSize = 16 * 1024 * 1024

// DefaultMarker is the four byte pattern that starts every frame
var DefaultMarker = []byte{0xAA, 0xBB, 0xCC, 0xDD}

// ErrDesync is wrapped by every DesyncError
var ErrDesync = errors.New("payload: stream out of sync")

// DesyncError reports bytes that were discarded while searching for the next marker
type DesyncError struct {
	Skipped int
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("%s: skipped %d bytes searching for marker", ErrDesync, e.Skipped)
}

func (e *DesyncError) Unwrap() error {
	return ErrDesync
}

// --------------------------------------------------------------------------
// Codec
// --------------------------------------------------------------------------

// Codec frames payloads as [marker][length][payload]. A zero length frame is a
// heartbeat and carries no payload.
//
// The byte order of the length field defaults to little-endian because that is
// what existing GSF peers put on the wire; both sides must agree on it.
type Codec struct {
	Marker         []byte
	ByteOrder      binary.ByteOrder
	MaxPayloadSize int
}

// NewCodec returns a codec with the default marker, little-endian lengths and the
// default payload size limit
func NewCodec() *Codec {
	return &Codec{
		Marker:         DefaultMarker,
		ByteOrder:      binary.LittleEndian,
		MaxPayloadSize: DefaultMaxPayloadSize,
	}
}

// HeaderSize is the number of bytes preceding the payload
func (c *Codec) HeaderSize() int {
	return len(c.Marker) + LengthSegment
}

// AddHeader returns a new slice holding the header followed by data
func (c *Codec) AddHeader(data []byte) []byte {
	hs := c.HeaderSize()
	framed := make([]byte, hs+len(data))
	copy(framed, c.Marker)
	c.ByteOrder.PutUint32(framed[len(c.Marker):hs], uint32(len(data)))
	copy(framed[hs:], data)
	return framed
}

// ExtractLength searches buf for the marker and returns the length declared by the
// header that follows it, or -1 when buf does not contain a complete header.
func (c *Codec) ExtractLength(buf []byte) int {
	idx := bytes.Index(buf, c.Marker)
	if idx < 0 {
		return -1
	}
	start := idx + len(c.Marker)
	if len(buf) < start+LengthSegment {
		return -1
	}
	return int(c.ByteOrder.Uint32(buf[start : start+LengthSegment]))
}

// validLength reports whether a declared length may be used to allocate a buffer
func (c *Codec) validLength(n int) bool {
	return n >= 0 && (c.MaxPayloadSize <= 0 || n <= c.MaxPayloadSize)
}
