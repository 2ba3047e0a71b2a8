// Package metrics provides in-process counters for the chiller services.
//
// The Collector accumulates counters for one service instance. It is a leaf
// package with no internal dependencies. All increment methods are
// nil-receiver safe so callers never need a guard before recording.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// RPC server
	RequestsServed int64
	HandlerErrors  int64
	SessionsOpened int64

	// RPC client
	CallsIssued int64
	Reconnects  int64
	CallsFailed int64

	// Control loop
	TicksRun        int64
	PeltierFailures int64
	FanFailures     int64
	PhaseChanges    int64

	// Supervisor
	ChildStarts  int64
	ChildCrashes int64

	// Dimension, set at construction.
	Service string
}

// Collector accumulates counters for a single service.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	requestsServed int64
	handlerErrors  int64
	sessionsOpened int64

	callsIssued int64
	reconnects  int64
	callsFailed int64

	ticksRun        int64
	peltierFailures int64
	fanFailures     int64
	phaseChanges    int64

	childStarts  int64
	childCrashes int64

	service string
}

// NewCollector creates a Collector labeled with the owning service name.
func NewCollector(service string) *Collector {
	return &Collector{service: service}
}

// --- RPC server ---

// IncRequestsServed records one request dispatched to a handler.
func (c *Collector) IncRequestsServed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requestsServed++
	c.mu.Unlock()
}

// IncHandlerErrors records a handler failure converted to an error response.
func (c *Collector) IncHandlerErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.handlerErrors++
	c.mu.Unlock()
}

// IncSessionsOpened records an accepted connection.
func (c *Collector) IncSessionsOpened() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsOpened++
	c.mu.Unlock()
}

// --- RPC client ---

// IncCallsIssued records one client request attempt.
func (c *Collector) IncCallsIssued() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.callsIssued++
	c.mu.Unlock()
}

// IncReconnects records a reconnect after a detected closure.
func (c *Collector) IncReconnects() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.reconnects++
	c.mu.Unlock()
}

// IncCallsFailed records a call that surfaced an unreachable-server error.
func (c *Collector) IncCallsFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.callsFailed++
	c.mu.Unlock()
}

// --- Control loop ---

// IncTicksRun records one completed tick (with or without sub-tick failures).
func (c *Collector) IncTicksRun() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ticksRun++
	c.mu.Unlock()
}

// IncPeltierFailures records a failed peltier sub-tick.
func (c *Collector) IncPeltierFailures() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.peltierFailures++
	c.mu.Unlock()
}

// IncFanFailures records a failed fan sub-tick.
func (c *Collector) IncFanFailures() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fanFailures++
	c.mu.Unlock()
}

// IncPhaseChanges records a cool/idle transition.
func (c *Collector) IncPhaseChanges() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.phaseChanges++
	c.mu.Unlock()
}

// --- Supervisor ---

// IncChildStarts records a spawned control-loop child.
func (c *Collector) IncChildStarts() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.childStarts++
	c.mu.Unlock()
}

// IncChildCrashes records a child that exited non-zero.
func (c *Collector) IncChildCrashes() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.childCrashes++
	c.mu.Unlock()
}

// Snapshot returns a copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		RequestsServed:  c.requestsServed,
		HandlerErrors:   c.handlerErrors,
		SessionsOpened:  c.sessionsOpened,
		CallsIssued:     c.callsIssued,
		Reconnects:      c.reconnects,
		CallsFailed:     c.callsFailed,
		TicksRun:        c.ticksRun,
		PeltierFailures: c.peltierFailures,
		FanFailures:     c.fanFailures,
		PhaseChanges:    c.phaseChanges,
		ChildStarts:     c.childStarts,
		ChildCrashes:    c.childCrashes,
		Service:         c.service,
	}
}
