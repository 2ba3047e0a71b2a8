// Package adapter defines the run-state event boundary.
//
// Adapters publish supervisor run-state transitions to downstream systems
// (dashboards, alerting). The supervisor owns adapter lifecycle; users
// provide configuration only.
package adapter

import "context"

// RunStateEvent is the payload published when the supervised control loop
// changes run state.
type RunStateEvent struct {
	EventType string `json:"event_type"` // always "run_state_changed"
	Service   string `json:"service"`
	Reason    string `json:"reason"` // started, stopped, crashed
	Since     int64  `json:"since"`  // unix seconds
	Info      string `json:"info,omitempty"`
	Timestamp string `json:"timestamp"` // ISO 8601
}

// Adapter publishes run-state events to a downstream system.
type Adapter interface {
	// Publish sends a run-state event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunStateEvent) error

	// Close releases adapter resources.
	Close() error
}
