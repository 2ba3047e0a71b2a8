// Package supervise runs the control loop as a child process: spawning it
// with its parameters as arguments, mirroring its side-channel status,
// detecting crashes through the exit code, and exposing the control/query
// surface the gateway talks to.
package supervise

// Reason explains the current run state.
type Reason string

const (
	ReasonNeverStarted Reason = "never_started"
	ReasonStarted      Reason = "started"
	ReasonStopped      Reason = "stopped"
	ReasonCrashed      Reason = "crashed"
)

// RunInfo describes why the instance is running or stopped, and since when.
type RunInfo struct {
	// Since is the unix time of the last transition, nil before the first
	// start.
	Since *int64 `json:"since"`
	// Reason for the current state.
	Reason Reason `json:"reason"`
	// Info carries crash diagnostics, nil otherwise.
	Info *string `json:"info"`
}

// clone returns a deep copy.
func (r RunInfo) clone() RunInfo {
	out := RunInfo{Reason: r.Reason}
	if r.Since != nil {
		since := *r.Since
		out.Since = &since
	}
	if r.Info != nil {
		info := *r.Info
		out.Info = &info
	}
	return out
}
