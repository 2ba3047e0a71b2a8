// Package rpc implements the request/response layer used by every service
// in the suite: a framed-message server with one concurrent session per
// connection, and a single-flight client with a one-shot reconnect.
//
// Every response travels inside a structured envelope. A handler failure
// never kills a session; it is classified into an error kind and reported
// to the caller as data.
package rpc

import (
	"errors"
	"fmt"

	"github.com/reefward/chiller/wire"
)

// ErrorKind classifies a service-side failure inside a response envelope.
type ErrorKind string

// Error kinds carried in response envelopes.
const (
	// KindInternal is an uncaught handler failure.
	KindInternal ErrorKind = "internal"
	// KindMalformedRequest is a request with missing or invalid keys, or an
	// operation the addressed resource does not allow.
	KindMalformedRequest ErrorKind = "malformed_request"
	// KindNotFound is a request addressing an unknown resource.
	KindNotFound ErrorKind = "not_found"
	// KindValidation is a payload that fails an invariant check.
	KindValidation ErrorKind = "validation"
	// KindConflict is an operation disallowed in the current run/stop state.
	KindConflict ErrorKind = "conflict"
)

// Envelope is the wire shape of every response.
// Exactly one of Result (ok) or ErrorKind+Message (not ok) is meaningful.
type Envelope struct {
	OK        bool            `json:"ok"`
	Result    wire.RawMessage `json:"result,omitempty"`
	ErrorKind ErrorKind       `json:"error_kind,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// ServiceError is a classified failure produced by a handler, or decoded
// from a not-ok envelope on the client side. It is distinguishable from
// transport failures, which are plain errors (wire.ErrClosed,
// ErrUnreachable).
type ServiceError struct {
	Kind    ErrorKind
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a classified ServiceError.
func Errorf(kind ErrorKind, format string, args ...any) *ServiceError {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind of a ServiceError, or KindInternal for any
// other error.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == kind
}

// errorEnvelope converts a handler failure into a response envelope.
// Unclassified errors become KindInternal; their message keeps the
// "Internal error" prefix so diagnostics stay greppable against logs from
// earlier deployments.
func errorEnvelope(err error) Envelope {
	var se *ServiceError
	if errors.As(err, &se) {
		return Envelope{OK: false, ErrorKind: se.Kind, Message: se.Message}
	}
	return Envelope{
		OK:        false,
		ErrorKind: KindInternal,
		Message:   fmt.Sprintf("Internal error %v", err),
	}
}
