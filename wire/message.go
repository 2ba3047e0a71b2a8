package wire

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// json is the codec for every message on the wire. Messages are textual
// and self-describing; one JSON document per frame.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage defers decoding of a message fragment until its shape is
// known (request payloads, envelope results).
type RawMessage = jsoniter.RawMessage

// EncodeMessage marshals v to JSON and writes it as a single frame.
// Callers must serialize writes per stream.
func EncodeMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encode message: %w", err)
	}
	return WriteFrame(w, payload)
}

// DecodeMessage reads one frame and unmarshals its payload into v.
// Returns ErrClosed if the stream ends before a full frame arrives.
func DecodeMessage(r io.Reader, v any) error {
	payload, err := ReadFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: decode message: %w", err)
	}
	return nil
}

// Marshal exposes the wire JSON codec for payloads that travel outside a
// frame (the side-channel status stream uses the same encoding).
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal is the counterpart of Marshal.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
