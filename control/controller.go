package control

import (
	"errors"
	"sync"
	"time"

	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/metrics"
)

// ErrAlreadyRunning is returned by Run when the loop is already active.
// Only one run may be active per Controller at a time.
var ErrAlreadyRunning = errors.New("control: loop is running already")

// Controller drives the temperature-regulation loop.
//
// Each tick performs, in order: the peltier sub-tick (read temperature,
// transition phase, actuate the cooling element) and the fan sub-tick
// (read peltier state, update the retain counter, actuate the fan). The
// sub-ticks fail independently; the loop never aborts on a sub-tick
// failure.
type Controller struct {
	params    Params
	gpio      PeripheralAPI
	status    StatusSink
	logger    *log.Logger
	collector *metrics.Collector

	// mu guards state and is held for the whole body of a tick, so a
	// Snapshot never observes a half-updated state spanning sub-ticks.
	mu    sync.Mutex
	state *State

	// runMu guards the run lifecycle fields below.
	runMu    sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce *sync.Once
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Params are the regulation parameters. Callers validate before
	// construction; the controller trusts them.
	Params Params
	// Peripherals is the peripheral service surface. Required.
	Peripherals PeripheralAPI
	// Status receives status emissions. Optional.
	Status StatusSink
	// Logger is required.
	Logger *log.Logger
	// Collector records tick counters. Optional.
	Collector *metrics.Collector
}

// NewController creates a stopped controller.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		params:    cfg.Params,
		gpio:      cfg.Peripherals,
		status:    cfg.Status,
		logger:    cfg.Logger,
		collector: cfg.Collector,
	}
}

// Params returns a copy of the regulation parameters.
func (c *Controller) Params() Params {
	return c.params
}

// Run executes the loop until Stop is called. Blocking. A second Run while
// one is active fails with ErrAlreadyRunning and leaves the live state
// untouched.
//
// The period is drift-corrected: each iteration times its own duration and
// sleeps only the remainder of the tick period. An iteration that overruns
// the period starts the next tick immediately; there is no catch-up.
func (c *Controller) Run() error {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.stopOnce = &sync.Once{}
	stopCh, doneCh := c.stopCh, c.doneCh
	c.runMu.Unlock()

	c.mu.Lock()
	initial := initialState()
	c.state = &initial
	c.mu.Unlock()

	c.logger.Info("cooling service started", map[string]any{
		"low":        c.params.Low,
		"high":       c.params.High,
		"fan_retain": c.params.FanRetain,
		"tick_time":  c.params.TickTime,
	})
	c.emit(func(s StatusSink) error { return s.Params(c.params) })

	period := time.Duration(c.params.TickTime * float64(time.Second))

	for {
		start := time.Now()

		c.emit(StatusSink.TickStart)
		c.tick()
		if snap := c.Snapshot(); snap != nil {
			c.emit(func(s StatusSink) error { return s.State(*snap) })
		}
		c.emit(StatusSink.TickDone)
		c.collector.IncTicksRun()

		remain := period - time.Since(start)
		if remain > 0 {
			select {
			case <-stopCh:
				return c.finishRun(doneCh)
			case <-time.After(remain):
			}
		} else {
			// Overrun: run the next tick immediately, but still honor a
			// pending stop.
			select {
			case <-stopCh:
				return c.finishRun(doneCh)
			default:
			}
		}
	}
}

// finishRun clears the live state and releases Stop callers.
func (c *Controller) finishRun(doneCh chan struct{}) error {
	c.mu.Lock()
	c.state = nil
	c.mu.Unlock()

	c.runMu.Lock()
	c.running = false
	c.runMu.Unlock()

	c.logger.Info("tick loop ended", nil)
	close(doneCh)
	return nil
}

// Stop requests graceful termination after the current tick and blocks
// until the loop has exited. Safe to call from any goroutine. A Stop while
// the loop is not running is a no-op: two historical variants of this
// component disagreed on the guard's polarity, and no-op is the only
// externally sane contract (pinned by TestStopWhenNotRunningIsNoOp).
//
// Stop does not interrupt a tick in progress or a blocking peripheral
// call inside it; a hung peripheral service stalls Stop indefinitely.
func (c *Controller) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	stopCh, doneCh, once := c.stopCh, c.doneCh, c.stopOnce
	c.runMu.Unlock()

	once.Do(func() { close(stopCh) })
	<-doneCh
	c.logger.Info("cooling service ended", nil)
}

// IsRunning reports whether the loop is active.
func (c *Controller) IsRunning() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.running
}

// Snapshot returns a deep copy of the live state, or nil when the loop is
// not running. It takes the tick mutex, so the copy never spans a
// half-finished tick.
func (c *Controller) Snapshot() *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return nil
	}
	s := *c.state
	return &s
}

// tick runs one full regulation tick and reports both sub-tick outcomes.
func (c *Controller) tick() TickReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report TickReport

	if err := c.peltierTick(); err != nil {
		c.logger.Warn("peltier tick failed", map[string]any{"error": err.Error()})
		c.collector.IncPeltierFailures()
		c.emit(func(s StatusSink) error { return s.PeltierFailure(err.Error()) })
		report.Peltier = err
	}

	if err := c.fanTick(); err != nil {
		c.logger.Warn("fan tick failed", map[string]any{"error": err.Error()})
		c.collector.IncFanFailures()
		c.emit(func(s StatusSink) error { return s.FanFailure(err.Error()) })
		report.Fan = err
	}

	return report
}

// peltierTick reads the tank temperature, transitions the phase, and
// brings the peltier in line with the phase. Actuation only happens on
// disagreement between observed and desired state.
func (c *Controller) peltierTick() error {
	t, err := c.gpio.Read(SensorTankTemp)
	if err != nil {
		return err
	}

	switch {
	case c.state.Phase == PhaseCool && t < c.params.Low:
		c.state.Phase = PhaseIdle
		c.collector.IncPhaseChanges()
		c.logger.Info("changed to idle state", map[string]any{"temperature": t})
	case c.state.Phase == PhaseIdle && t >= c.params.High:
		c.state.Phase = PhaseCool
		c.collector.IncPhaseChanges()
		c.logger.Info("changed to cooling state", map[string]any{"temperature": t})
	}

	on, err := c.gpio.IsOn(DevicePeltier)
	if err != nil {
		return err
	}
	if on && c.state.Phase == PhaseIdle {
		if err := c.gpio.TurnOff(DevicePeltier); err != nil {
			return err
		}
		c.logger.Info("turning peltier off", nil)
	} else if !on && c.state.Phase == PhaseCool {
		if err := c.gpio.TurnOn(DevicePeltier); err != nil {
			return err
		}
		c.logger.Info("turning peltier on", nil)
	}
	return nil
}

// fanTick updates the retain counter from the observed peltier state and
// brings the fan in line with the retain window.
func (c *Controller) fanTick() error {
	peltierOn, err := c.gpio.IsOn(DevicePeltier)
	if err != nil {
		return err
	}
	if peltierOn {
		c.state.LastPeltierOn = 0
	} else {
		c.state.LastPeltierOn++
	}

	sincePeltier := float64(c.state.LastPeltierOn) * c.params.TickTime

	fanOn, err := c.gpio.IsOn(DeviceFan)
	if err != nil {
		return err
	}
	if sincePeltier < c.params.FanRetain && !fanOn {
		if err := c.gpio.TurnOn(DeviceFan); err != nil {
			return err
		}
		c.logger.Info("turning fan on", nil)
	} else if sincePeltier >= c.params.FanRetain && fanOn {
		if err := c.gpio.TurnOff(DeviceFan); err != nil {
			return err
		}
		c.logger.Info("turning fan off", nil)
	}
	return nil
}

// emit sends one status message, logging emission failures instead of
// letting them disturb the tick.
func (c *Controller) emit(send func(StatusSink) error) {
	if c.status == nil {
		return
	}
	if err := send(c.status); err != nil {
		c.logger.Warn("status emission failed", map[string]any{"error": err.Error()})
	}
}
