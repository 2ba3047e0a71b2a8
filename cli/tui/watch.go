package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/rpc"
	"github.com/reefward/chiller/supervise"
)

// Snapshot is one poll of the supervisor: run state, live loop state, and
// stored params. State is nil while the loop is not running; Params is nil
// while the supervisor is halted without valid stored params.
type Snapshot struct {
	Status supervise.StatusReply
	State  *control.State
	Params *control.Params
}

// Poller fetches a snapshot. Production polls over RPC; tests substitute
// fakes.
type Poller interface {
	Poll() (Snapshot, error)
}

// supervisorPoller polls a live supervisor.
type supervisorPoller struct {
	client *rpc.Client
}

type pollRequest struct {
	Request string `json:"request"`
}

func (p supervisorPoller) Poll() (Snapshot, error) {
	var snap Snapshot
	if err := p.client.Call(pollRequest{Request: "status"}, &snap.Status); err != nil {
		return snap, err
	}
	if err := p.client.Call(pollRequest{Request: "get_state"}, &snap.State); err != nil {
		return snap, err
	}

	var params control.Params
	err := p.client.Call(pollRequest{Request: "get_params"}, &params)
	switch {
	case err == nil:
		snap.Params = &params
	case rpc.IsKind(err, rpc.KindNotFound):
		// Halted supervisor: the view shows "(none)" instead of failing.
	default:
		return snap, err
	}
	return snap, nil
}

// Messages.
type tickMsg time.Time

type snapshotMsg struct {
	snap Snapshot
	err  error
}

// keyMap defines key bindings.
type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
}

// WatchModel is the Bubble Tea model for the watch view.
type WatchModel struct {
	poller   Poller
	interval time.Duration

	snap    Snapshot
	polled  bool
	pollErr string

	width    int
	height   int
	quitting bool
}

// NewWatchModel creates a watch model polling on the given interval.
func NewWatchModel(poller Poller, interval time.Duration) WatchModel {
	return WatchModel{poller: poller, interval: interval}
}

// Init implements tea.Model. The first poll happens immediately; the
// interval only paces the follow-ups.
func (m WatchModel) Init() tea.Cmd {
	return m.pollCmd()
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		m.polled = true
		if msg.err != nil {
			// Keep the last good snapshot on screen; the error line says
			// the data is stale.
			m.pollErr = msg.err.Error()
		} else {
			m.pollErr = ""
			m.snap = msg.snap
		}
		return m, m.tickCmd()

	case tickMsg:
		return m, m.pollCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, m.pollCmd()
		}
	}

	return m, nil
}

func (m WatchModel) pollCmd() tea.Cmd {
	poller := m.poller
	return func() tea.Msg {
		snap, err := poller.Poll()
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m WatchModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.polled {
		return TitleStyle.Render("chiller") + "\n" + HelpStyle.Render("connecting...")
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("chiller"))
	b.WriteString("\n\n")
	b.WriteString(m.renderRun())
	b.WriteString("\n")
	b.WriteString(m.renderLoop())

	if m.pollErr != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("poll failed (showing last data): %s", m.pollErr)))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("q quit · r refresh"))
	return b.String()
}

// renderRun renders the supervisor's run-state block.
func (m WatchModel) renderRun() string {
	status := m.snap.Status

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Running:"),
		ValueStyle.Render(strconv.FormatBool(status.Running))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Reason:"),
		ReasonStyle(string(status.Reason)).Render(string(status.Reason))))

	since := "(never)"
	if status.Since != nil {
		since = time.Unix(*status.Since, 0).UTC().Format("2006-01-02 15:04:05 UTC")
	}
	b.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Since:"),
		ValueStyle.Render(since)))

	if status.Info != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s",
			LabelStyle.Render("Diagnostics:"),
			ErrorStyle.Render(*status.Info)))
	}

	return BoxStyle.Render(b.String())
}

// renderLoop renders the live state and params block.
func (m WatchModel) renderLoop() string {
	var b strings.Builder

	if m.snap.State != nil {
		phase := string(m.snap.State.Phase)
		boxes := []string{
			m.renderStatBox("Phase", phase, PhaseColor(phase)),
			m.renderStatBox("Peltier off for", fmt.Sprintf("%d ticks", m.snap.State.LastPeltierOn), mutedColor),
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
		b.WriteString("\n")
	} else {
		b.WriteString(HelpStyle.Render("loop not running"))
		b.WriteString("\n")
	}

	params := "(none)"
	if m.snap.Params != nil {
		p := m.snap.Params
		params = fmt.Sprintf("low %g°C · high %g°C · fan retain %gs · tick %gs",
			p.Low, p.High, p.FanRetain, p.TickTime)
	}
	b.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Params:"),
		ValueStyle.Render(params)))

	return b.String()
}

func (m WatchModel) renderStatBox(label, value string, color lipgloss.Color) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		StatValueStyle.Foreground(color).Render(value),
		StatLabelStyle.Render(label))
	return StatBoxStyle.BorderForeground(color).Render(content)
}

// RunWatch polls the supervisor at addr and runs the watch view until the
// user quits.
func RunWatch(addr string, interval time.Duration) error {
	client := rpc.NewClient(addr)
	defer client.Close()

	model := NewWatchModel(supervisorPoller{client: client}, interval)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
