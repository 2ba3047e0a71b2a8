package sidechan

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/wire"
)

func TestEmitScanRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(&buf)

	payloads := []string{
		"running",
		`params;{"low":20,"high":24,"fan_retain":30,"tick_time":5}`,
		"peltier_fail;read tank_temp: connection refused",
		`state;{"phase":"idle","last_peltier_on":3}`,
		"done",
	}
	for _, p := range payloads {
		if err := emitter.Emit(p); err != nil {
			t.Fatalf("Emit(%q) failed: %v", p, err)
		}
	}

	sc := NewScanner(&buf)
	for i, p := range payloads {
		msg, err := sc.Next()
		if err != nil {
			t.Fatalf("Next() %d failed: %v", i, err)
		}
		if msg.Encode() != p {
			t.Errorf("packet %d = %q, want %q", i, msg.Encode(), p)
		}
	}
	if _, err := sc.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() after stream end = %v, want io.EOF", err)
	}
	if sc.Rejected() != "" {
		t.Errorf("Rejected() = %q, want empty", sc.Rejected())
	}
}

func TestEmitterFraming(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEmitter(&buf).Emit("done"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got := buf.String(); got != "00004done\n" {
		t.Errorf("frame = %q, want %q", got, "00004done\n")
	}
}

func TestEmitterRejectsOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	err := NewEmitter(&buf).Emit(strings.Repeat("x", MaxPayloadSize+1))
	if err == nil {
		t.Fatal("oversize payload accepted")
	}
	if buf.Len() != 0 {
		t.Errorf("oversize emit wrote %d bytes", buf.Len())
	}
}

func TestScannerPayloadWithNewlines(t *testing.T) {
	payload := "fan_fail;first line\nsecond line"
	var buf bytes.Buffer
	if err := NewEmitter(&buf).Emit(payload); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	sc := NewScanner(&buf)
	msg, err := sc.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if msg.Kind != KindFanFail || msg.Body != "first line\nsecond line" {
		t.Errorf("message = %+v", msg)
	}
}

func TestScannerAccumulatesMalformedLines(t *testing.T) {
	stream := "Traceback (most recent call last):\n" +
		"00004done\n" +
		"  something went wrong\n" +
		"00007running\n"

	sc := NewScanner(strings.NewReader(stream))

	msg, err := sc.Next()
	if err != nil || msg.Kind != KindDone {
		t.Fatalf("first packet = %+v, %v", msg, err)
	}
	msg, err = sc.Next()
	if err != nil || msg.Kind != KindRunning {
		t.Fatalf("second packet = %+v, %v", msg, err)
	}
	if _, err := sc.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}

	want := "Traceback (most recent call last):\n  something went wrong\n"
	if sc.Rejected() != want {
		t.Errorf("Rejected() = %q, want %q", sc.Rejected(), want)
	}
}

func TestScannerRejectsLyingHeader(t *testing.T) {
	// Header declares 1 byte but the line carries 3: misframed, rejected.
	sc := NewScanner(strings.NewReader("00001abc\n00004done\n"))

	msg, err := sc.Next()
	if err != nil || msg.Kind != KindDone {
		t.Fatalf("Next() = %+v, %v, want done packet", msg, err)
	}
	if got := sc.Rejected(); got != "00001abc\n" {
		t.Errorf("Rejected() = %q", got)
	}
}

func TestScannerTruncatedStream(t *testing.T) {
	// Declared 50 bytes, stream ends early: the fragment is diagnostic
	// material, not a packet.
	sc := NewScanner(strings.NewReader("00050state;{\"pha"))

	if _, err := sc.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
	if got := sc.Rejected(); !strings.Contains(got, "state;{\"pha") {
		t.Errorf("Rejected() = %q, want truncated fragment retained", got)
	}
}

func TestParseMessage(t *testing.T) {
	cases := []struct {
		payload string
		want    Message
	}{
		{"running", Message{Kind: "running"}},
		{"done", Message{Kind: "done"}},
		{"state;{}", Message{Kind: "state", Body: "{}"}},
		{"peltier_fail;a;b;c", Message{Kind: "peltier_fail", Body: "a;b;c"}},
	}
	for _, tc := range cases {
		if got := ParseMessage(tc.payload); got != tc.want {
			t.Errorf("ParseMessage(%q) = %+v, want %+v", tc.payload, got, tc.want)
		}
	}
}

func TestStatusWriterEmitsLoopLifecycle(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStatusWriter(&buf)

	params := control.Params{Low: 20, High: 24, FanRetain: 30, TickTime: 5}
	state := control.State{Phase: control.PhaseIdle, LastPeltierOn: 2}

	steps := []func() error{
		func() error { return sink.Params(params) },
		sink.TickStart,
		func() error { return sink.PeltierFailure("sensor unreachable") },
		func() error { return sink.FanFailure("relay stuck") },
		func() error { return sink.State(state) },
		sink.TickDone,
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("emission %d failed: %v", i, err)
		}
	}

	sc := NewScanner(&buf)
	wantKinds := []string{KindParams, KindRunning, KindPeltierFail, KindFanFail, KindState, KindDone}
	var got []Message
	for {
		msg, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		got = append(got, msg)
	}

	if len(got) != len(wantKinds) {
		t.Fatalf("decoded %d packets, want %d", len(got), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if got[i].Kind != kind {
			t.Errorf("packet %d kind = %s, want %s", i, got[i].Kind, kind)
		}
	}

	var gotParams control.Params
	if err := wire.Unmarshal([]byte(got[0].Body), &gotParams); err != nil {
		t.Fatalf("params body %q: %v", got[0].Body, err)
	}
	if gotParams != params {
		t.Errorf("params = %+v, want %+v", gotParams, params)
	}

	var gotState control.State
	if err := wire.Unmarshal([]byte(got[4].Body), &gotState); err != nil {
		t.Fatalf("state body %q: %v", got[4].Body, err)
	}
	if gotState != state {
		t.Errorf("state = %+v, want %+v", gotState, state)
	}
}
