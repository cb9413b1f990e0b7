package payload

import (
	"bytes"
	"errors"
	"fmt"
)

// Decoder reassembles frames from a byte stream in two phases: it first
// accumulates a complete header, then the number of payload bytes the header
// declares. Reads may deliver any amount of data, so each phase can take several
// Advance calls.
//
// The decoder does not read by itself. The caller reads into Target() and reports
// the count with Advance, which lets a socket read land directly in the
// accumulation buffer.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	codec     *Codec
	buf       []byte
	filled    int
	need      int
	inPayload bool
}

// NewDecoder returns a decoder waiting for a header
func NewDecoder(codec *Codec) *Decoder {
	hs := codec.HeaderSize()
	return &Decoder{
		codec: codec,
		buf:   make([]byte, hs),
		need:  hs,
	}
}

// Target returns the unfilled part of the current phase. It is never empty.
func (d *Decoder) Target() []byte {
	return d.buf[d.filled:d.need]
}

// Reset drops any partial frame and waits for a header again
func (d *Decoder) Reset() {
	d.filled = 0
	d.need = d.codec.HeaderSize()
	d.inPayload = false
}

// Buffered is the number of bytes held for the current phase
func (d *Decoder) Buffered() int {
	return d.filled
}

// Advance records that n bytes were written into Target(). When this completes a
// frame, the payload is returned; it aliases the decoder's buffer and stays valid
// until the next call to Target, Advance or Reset.
//
// A header whose marker is misplaced or whose length is out of range makes the
// decoder scan forward to the next marker candidate. The discarded byte count is
// reported as a *DesyncError and decoding continues with the retained bytes.
func (d *Decoder) Advance(n int) ([]byte, error) {
	if n < 0 || d.filled+n > d.need {
		panic(fmt.Sprintf("payload: advance by %d exceeds target of %d bytes", n, d.need-d.filled))
	}
	d.filled += n
	if d.filled < d.need {
		return nil, nil
	}

	if d.inPayload {
		frame := d.buf[:d.need]
		d.Reset()
		return frame, nil
	}
	return nil, d.parseHeader()
}

// parseHeader is called with a complete header in buf[:need]
func (d *Decoder) parseHeader() error {
	hs := d.codec.HeaderSize()
	header := d.buf[:hs]

	if !bytes.HasPrefix(header, d.codec.Marker) {
		return d.resync(header, 1)
	}

	length := d.codec.ExtractLength(header)
	if !d.codec.validLength(length) {
		return d.resync(header, 1)
	}

	if length == 0 {
		// heartbeat
		d.Reset()
		return nil
	}

	if cap(d.buf) < length {
		d.buf = make([]byte, length)
	}
	d.buf = d.buf[:cap(d.buf)]
	d.filled = 0
	d.need = length
	d.inPayload = true
	return nil
}

// resync keeps header bytes from the first marker candidate at or after from
func (d *Decoder) resync(header []byte, from int) error {
	marker := d.codec.Marker
	keep := 0

	if idx := bytes.Index(header[from:], marker); idx >= 0 {
		keep = len(header) - (from + idx)
	} else {
		// a marker may straddle the end of the header
		for k := min(len(marker)-1, len(header)-from); k > 0; k-- {
			if bytes.HasSuffix(header, marker[:k]) {
				keep = k
				break
			}
		}
	}

	skipped := len(header) - keep
	copy(d.buf, header[skipped:])
	d.filled = keep
	d.need = d.codec.HeaderSize()
	d.inPayload = false
	return &DesyncError{Skipped: skipped}
}

// Feed runs chunk through the decoder and calls fn for every completed frame.
// Frames passed to fn are only valid during the call. Resynchronisation errors do
// not stop decoding; they are joined and returned once chunk is consumed.
func (d *Decoder) Feed(chunk []byte, fn func(frame []byte)) error {
	var errs []error
	for len(chunk) > 0 {
		n := copy(d.Target(), chunk)
		chunk = chunk[n:]

		frame, err := d.Advance(n)
		if err != nil {
			errs = append(errs, err)
		}
		if frame != nil {
			fn(frame)
		}
	}
	return errors.Join(errs...)
}
