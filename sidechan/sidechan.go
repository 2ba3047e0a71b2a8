// Package sidechan implements the out-of-band status stream between the
// control-loop child and its supervisor. The stream is carried on the
// child's stderr, separate from the RPC transport: each packet is a 5-digit
// decimal ASCII length header, exactly that many payload bytes, and a
// newline terminator. Payloads may themselves contain newlines.
package sidechan

import (
	"fmt"
	"strings"
)

// HeaderSize is the width of the decimal length header.
const HeaderSize = 5

// MaxPayloadSize is the largest payload the 5-digit header can describe.
const MaxPayloadSize = 99999

// Message kinds carried on the stream. Kinds with a body are encoded as
// "<kind>;<body>"; the bare kinds running and done have no body.
const (
	KindParams      = "params"
	KindRunning     = "running"
	KindPeltierFail = "peltier_fail"
	KindFanFail     = "fan_fail"
	KindState       = "state"
	KindDone        = "done"
)

// Message is one decoded side-channel packet. Body is empty for the bare
// kinds. Unknown kinds decode fine; interpretation is the consumer's.
type Message struct {
	Kind string
	Body string
}

// Encode renders the message as a packet payload.
func (m Message) Encode() string {
	if m.Body == "" {
		return m.Kind
	}
	return m.Kind + ";" + m.Body
}

// ParseMessage splits a packet payload into kind and body. The kind is
// everything before the first semicolon.
func ParseMessage(payload string) Message {
	kind, body, _ := strings.Cut(payload, ";")
	return Message{Kind: kind, Body: body}
}

// encodePacket frames one payload for the wire.
func encodePacket(payload string) (string, error) {
	if len(payload) > MaxPayloadSize {
		return "", fmt.Errorf("sidechan: payload of %d bytes exceeds %d", len(payload), MaxPayloadSize)
	}
	return fmt.Sprintf("%0*d%s\n", HeaderSize, len(payload), payload), nil
}
