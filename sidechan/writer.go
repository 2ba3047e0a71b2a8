package sidechan

import (
	"io"
	"sync"

	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/wire"
)

// Emitter writes framed packets to a stream. Writes are serialized so
// packets from concurrent emitters never interleave; each packet goes out
// in a single Write call.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEmitter wraps w, typically the child process's stderr.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit frames and writes one payload.
func (e *Emitter) Emit(payload string) error {
	packet, err := encodePacket(payload)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = io.WriteString(e.w, packet)
	return err
}

// StatusWriter bridges the control loop's status emissions onto a
// side-channel stream. It implements control.StatusSink.
type StatusWriter struct {
	emitter *Emitter
}

// NewStatusWriter returns a sink emitting to w.
func NewStatusWriter(w io.Writer) *StatusWriter {
	return &StatusWriter{emitter: NewEmitter(w)}
}

func (s *StatusWriter) emitJSON(kind string, v any) error {
	body, err := wire.Marshal(v)
	if err != nil {
		return err
	}
	return s.emitter.Emit(Message{Kind: kind, Body: string(body)}.Encode())
}

// Params emits the loop's parameters, once at startup.
func (s *StatusWriter) Params(p control.Params) error {
	return s.emitJSON(KindParams, p)
}

// TickStart announces the start of a tick.
func (s *StatusWriter) TickStart() error {
	return s.emitter.Emit(KindRunning)
}

// PeltierFailure reports a failed peltier sub-tick.
func (s *StatusWriter) PeltierFailure(desc string) error {
	return s.emitter.Emit(Message{Kind: KindPeltierFail, Body: desc}.Encode())
}

// FanFailure reports a failed fan sub-tick.
func (s *StatusWriter) FanFailure(desc string) error {
	return s.emitter.Emit(Message{Kind: KindFanFail, Body: desc}.Encode())
}

// State emits the post-tick state.
func (s *StatusWriter) State(st control.State) error {
	return s.emitJSON(KindState, st)
}

// TickDone announces the end of a tick.
func (s *StatusWriter) TickDone() error {
	return s.emitter.Emit(KindDone)
}
