// Package tui provides the Bubble Tea live view for chillctl watch.
//
// The watch view is read-only: it polls the supervisor on a fixed interval
// and renders the same payloads the plain commands print. It never sends
// start, stop, or set_params.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#0EA5E9") // Sky blue
	coolColor    = lipgloss.Color("#3B82F6") // Blue
	idleColor    = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for the watch view.
var (
	// TitleStyle for the view header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// ErrorStyle for poll failures and crash diagnostics.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for the key hint line.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatBoxStyle for the phase and counter boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Align(lipgloss.Center)
)

// PhaseColor returns the accent color for a control-loop phase.
func PhaseColor(phase string) lipgloss.Color {
	switch phase {
	case "cool":
		return coolColor
	case "idle":
		return idleColor
	default:
		return mutedColor
	}
}

// ReasonStyle returns a style for a run-state reason.
func ReasonStyle(reason string) lipgloss.Style {
	switch reason {
	case "started":
		return lipgloss.NewStyle().Foreground(idleColor)
	case "stopped", "never_started":
		return lipgloss.NewStyle().Foreground(warningColor)
	case "crashed":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
