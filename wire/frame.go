// Package wire implements the framed message transport shared by every
// service in the suite.
//
// A frame is a 3-byte big-endian length prefix followed by exactly that
// many payload bytes. The 3-byte prefix caps payloads at 16 MiB - 1.
// There is no checksum and no magic number: the transport trusts its peer,
// and all services run on a single trusted segment.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Frame size constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 3
	// MaxPayloadSize is the maximum payload size (2^24 - 1 bytes).
	MaxPayloadSize = 1<<(8*LengthPrefixSize) - 1
)

// ErrClosed signals that the stream ended. It is returned whenever a read
// yields zero bytes, whether at a frame boundary, mid-prefix, or
// mid-payload. A decoder never surfaces a partial frame.
var ErrClosed = errors.New("wire: stream closed")

// ErrPayloadTooLarge is returned by WriteFrame when the payload does not
// fit the 3-byte length prefix. Oversized payloads are a caller error,
// not an encoding error.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum frame size")

// IsClosed reports whether err indicates an ended stream.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// WriteFrame writes the length prefix followed by the payload.
//
// The frame is assembled into a single buffer and written with one Write
// call so that a frame is not interleaved with a concurrent writer's
// output mid-frame; callers must still serialize writes per stream.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	buf[0] = byte(len(payload) >> 16)
	binary.BigEndian.PutUint16(buf[1:LengthPrefixSize], uint16(len(payload)))
	copy(buf[LengthPrefixSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return classifyWriteErr(err)
	}
	return nil
}

// ReadFrame reads a single frame and returns its payload.
//
// It blocks until the full prefix and payload are available, retrying
// partial reads. A stream that yields zero bytes at any point returns
// ErrClosed.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, classifyReadErr(err)
	}

	length := int(prefix[0])<<16 | int(binary.BigEndian.Uint16(prefix[1:]))

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, classifyReadErr(err)
	}
	return payload, nil
}

// classifyReadErr folds every stream-ended shape into ErrClosed.
// io.ReadFull reports io.EOF at a frame boundary and io.ErrUnexpectedEOF
// mid-frame; both mean the peer went away, which every caller handles
// identically.
func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrClosed
	}
	if isConnGone(err) {
		return ErrClosed
	}
	return fmt.Errorf("wire: read frame: %w", err)
}

func classifyWriteErr(err error) error {
	if isConnGone(err) {
		return ErrClosed
	}
	return fmt.Errorf("wire: write frame: %w", err)
}

// isConnGone reports whether err is one of the shapes a dead TCP
// connection produces, depending on which side noticed first.
func isConnGone(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
