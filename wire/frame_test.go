package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		[]byte(`{"name":"tank_temp","operation":"read"}`),
		bytes.Repeat([]byte{0xAB}, 1<<16),
	}

	for _, payload := range payloads {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, payload); err != nil {
			t.Fatalf("WriteFrame(%d bytes) failed: %v", len(payload), err)
		}

		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame(%d bytes) failed: %v", len(payload), err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("round-trip of %d bytes did not reproduce payload", len(payload))
		}
	}
}

func TestFrameRoundTripMaxPayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, MaxPayloadSize)

	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame at max size failed: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame at max size failed: %v", err)
	}
	if len(got) != MaxPayloadSize {
		t.Errorf("got %d bytes, want %d", len(got), MaxPayloadSize)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	payload := make([]byte, MaxPayloadSize+1)

	var buf bytes.Buffer
	err := WriteFrame(&buf, payload)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("WriteFrame(2^24 bytes) = %v, want ErrPayloadTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Errorf("oversized write left %d bytes on the stream", buf.Len())
	}
}

func TestReadFrameClosedAtBoundary(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if !IsClosed(err) {
		t.Fatalf("ReadFrame(empty stream) = %v, want ErrClosed", err)
	}
}

func TestReadFrameClosedMidPrefix(t *testing.T) {
	// One byte of a 3-byte prefix, then the stream ends.
	_, err := ReadFrame(bytes.NewReader([]byte{0x00}))
	if !IsClosed(err) {
		t.Fatalf("ReadFrame(truncated prefix) = %v, want ErrClosed", err)
	}
}

func TestReadFrameClosedMidPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("hello world")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	// Drop the last payload byte.
	truncated := buf.Bytes()[:buf.Len()-1]
	_, err := ReadFrame(bytes.NewReader(truncated))
	if !IsClosed(err) {
		t.Fatalf("ReadFrame(truncated payload) = %v, want ErrClosed", err)
	}
}

// slowReader yields one byte per Read call to exercise partial-read retry.
type slowReader struct {
	data []byte
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestReadFrameRetriesPartialReads(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("one byte at a time")
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	got, err := ReadFrame(&slowReader{data: buf.Bytes()})
	if err != nil {
		t.Fatalf("ReadFrame over slow reader failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	req := map[string]any{"name": "peltier", "operation": "is_on"}

	var buf bytes.Buffer
	if err := EncodeMessage(&buf, req); err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	var got map[string]any
	if err := DecodeMessage(&buf, &got); err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if got["name"] != "peltier" || got["operation"] != "is_on" {
		t.Errorf("decoded message = %v", got)
	}
}

func TestDecodeMessageClosedStream(t *testing.T) {
	var got any
	err := DecodeMessage(bytes.NewReader(nil), &got)
	if !IsClosed(err) {
		t.Fatalf("DecodeMessage(empty stream) = %v, want ErrClosed", err)
	}
}
