package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/supervise"
)

// fakePoller returns scripted snapshots.
type fakePoller struct {
	snap Snapshot
	err  error
}

func (f *fakePoller) Poll() (Snapshot, error) {
	return f.snap, f.err
}

func runningSnapshot() Snapshot {
	since := int64(1767225600)
	return Snapshot{
		Status: supervise.StatusReply{Running: true, Since: &since, Reason: supervise.ReasonStarted},
		State:  &control.State{Phase: control.PhaseCool, LastPeltierOn: 0},
		Params: &control.Params{Low: 20, High: 24, FanRetain: 30, TickTime: 5},
	}
}

func poll(t *testing.T, m WatchModel) WatchModel {
	t.Helper()
	cmd := m.pollCmd()
	if cmd == nil {
		t.Fatal("pollCmd returned nil")
	}
	updated, next := m.Update(cmd())
	if next == nil {
		t.Fatal("snapshot handling did not schedule the next tick")
	}
	return updated.(WatchModel)
}

func TestWatchInitialView(t *testing.T) {
	m := NewWatchModel(&fakePoller{}, time.Second)
	if !strings.Contains(m.View(), "connecting") {
		t.Errorf("pre-poll view = %q", m.View())
	}
}

func TestWatchRunningView(t *testing.T) {
	m := NewWatchModel(&fakePoller{snap: runningSnapshot()}, time.Second)
	m = poll(t, m)

	view := m.View()
	for _, want := range []string{"true", "started", "cool", "low 20°C", "2026-01-01"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWatchStoppedView(t *testing.T) {
	snap := Snapshot{Status: supervise.StatusReply{Reason: supervise.ReasonNeverStarted}}
	m := NewWatchModel(&fakePoller{snap: snap}, time.Second)
	m = poll(t, m)

	view := m.View()
	for _, want := range []string{"never_started", "(never)", "loop not running", "(none)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWatchCrashDiagnostics(t *testing.T) {
	since := int64(1767225600)
	info := "process crashed with return code 2"
	snap := Snapshot{
		Status: supervise.StatusReply{Since: &since, Reason: supervise.ReasonCrashed, Info: &info},
	}
	m := NewWatchModel(&fakePoller{snap: snap}, time.Second)
	m = poll(t, m)

	view := m.View()
	if !strings.Contains(view, "crashed") || !strings.Contains(view, info) {
		t.Errorf("crash view missing diagnostics:\n%s", view)
	}
}

func TestWatchKeepsLastSnapshotOnPollError(t *testing.T) {
	poller := &fakePoller{snap: runningSnapshot()}
	m := NewWatchModel(poller, time.Second)
	m = poll(t, m)

	poller.err = errors.New("rpc: server unreachable")
	m = poll(t, m)

	view := m.View()
	if !strings.Contains(view, "poll failed") {
		t.Errorf("view missing poll error:\n%s", view)
	}
	// The last good data stays on screen.
	if !strings.Contains(view, "cool") {
		t.Errorf("stale snapshot dropped:\n%s", view)
	}
}

func TestWatchQuitKey(t *testing.T) {
	m := NewWatchModel(&fakePoller{snap: runningSnapshot()}, time.Second)
	m = poll(t, m)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(WatchModel)
	if !m.quitting {
		t.Error("q did not set quitting")
	}
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if m.View() != "" {
		t.Errorf("quitting view = %q", m.View())
	}
}

func TestWatchRefreshKey(t *testing.T) {
	m := NewWatchModel(&fakePoller{snap: runningSnapshot()}, time.Second)
	m = poll(t, m)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil {
		t.Fatal("r did not schedule a poll")
	}
	if _, ok := cmd().(snapshotMsg); !ok {
		t.Error("r command did not produce a snapshot")
	}
}

func TestWatchTickTriggersPoll(t *testing.T) {
	m := NewWatchModel(&fakePoller{snap: runningSnapshot()}, time.Second)
	m = poll(t, m)

	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick did not schedule a poll")
	}
	if _, ok := cmd().(snapshotMsg); !ok {
		t.Error("tick command did not produce a snapshot")
	}
}

func TestPhaseColor(t *testing.T) {
	if PhaseColor("cool") == PhaseColor("idle") {
		t.Error("cool and idle share a color")
	}
	if PhaseColor("unknown") != mutedColor {
		t.Error("unknown phase is not muted")
	}
}
