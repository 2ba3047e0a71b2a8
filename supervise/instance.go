package supervise

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/metrics"
	"github.com/reefward/chiller/rpc"
	"github.com/reefward/chiller/sidechan"
	"github.com/reefward/chiller/wire"
)

// Instance owns one supervised control-loop child: the process handle, the
// live mirror of its (Params, State), and the RunInfo trail. A start spawns
// three workers (the stdout relay, the side-channel scanner, and the exit
// watchdog) and a stop or crash tears them all down.
type Instance struct {
	factory      ChildFactory
	logger       *log.Logger
	collector    *metrics.Collector
	now          func() time.Time
	onTransition func(RunInfo)

	// mu guards everything below. Readers get deep copies; the lock is
	// never held while serializing a reply.
	mu       sync.Mutex
	running  bool
	stopping bool
	runInfo  RunInfo

	// Live mirror, nil while not running or before the child reports.
	params *control.Params
	state  *control.State

	child      ChildProcess
	scanner    *sidechan.Scanner
	stdoutDone chan struct{}
	stderrDone chan struct{}
	watchDone  chan struct{}
}

// InstanceConfig configures an Instance.
type InstanceConfig struct {
	// Factory spawns the child. Required.
	Factory ChildFactory
	// Logger is required.
	Logger *log.Logger
	// Collector records start/crash counters. Optional.
	Collector *metrics.Collector
	// OnTransition is called (off the lock) after every started, stopped
	// or crashed transition. Optional.
	OnTransition func(RunInfo)
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// NewInstance creates an instance that has never run.
func NewInstance(cfg InstanceConfig) *Instance {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Instance{
		factory:      cfg.Factory,
		logger:       cfg.Logger,
		collector:    cfg.Collector,
		now:          now,
		onTransition: cfg.OnTransition,
		runInfo:      RunInfo{Reason: ReasonNeverStarted},
	}
}

// Start spawns a child with the given params and starts the three workers.
// Fails with a conflict while a child is running.
func (i *Instance) Start(params control.Params) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return rpc.Errorf(rpc.KindConflict, "instance running already")
	}

	child, err := i.factory(params.Args())
	if err != nil {
		i.mu.Unlock()
		return fmt.Errorf("spawn child: %w", err)
	}

	i.running = true
	i.stopping = false
	i.child = child
	i.params = nil
	i.state = nil
	i.scanner = sidechan.NewScanner(child.Stderr())
	i.stdoutDone = make(chan struct{})
	i.stderrDone = make(chan struct{})
	i.watchDone = make(chan struct{})

	since := i.now().Unix()
	i.runInfo = RunInfo{Since: &since, Reason: ReasonStarted}
	info := i.runInfo.clone()

	stdout := child.Stdout()
	scanner := i.scanner
	stdoutDone, stderrDone, watchDone := i.stdoutDone, i.stderrDone, i.watchDone
	i.mu.Unlock()

	go i.relayStdout(stdout, stdoutDone)
	go i.scanSidechan(scanner, stderrDone)
	go i.watchdog(child, stdoutDone, stderrDone, watchDone)

	i.collector.IncChildStarts()
	i.logger.Info("child started", map[string]any{"args": params.Args()})
	i.notify(info)
	return nil
}

// Stop gracefully terminates the child: SIGINT, then an unbounded wait for
// exit and worker teardown. Fails with a conflict while not running.
func (i *Instance) Stop() error {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return rpc.Errorf(rpc.KindConflict, "instance not running")
	}
	i.stopping = true
	child := i.child
	watchDone := i.watchDone
	i.mu.Unlock()

	i.logger.Info("stopping child (wait a few seconds)", nil)
	if err := child.Signal(os.Interrupt); err != nil {
		i.logger.Warn("signal child failed", map[string]any{"error": err.Error()})
	}

	// The watchdog exits once the streams have drained and the exit code
	// is in; it skips crash handling while stopping is set.
	<-watchDone

	since := i.now().Unix()
	i.mu.Lock()
	i.running = false
	i.stopping = false
	i.params = nil
	i.state = nil
	i.runInfo = RunInfo{Since: &since, Reason: ReasonStopped}
	info := i.runInfo.clone()
	i.mu.Unlock()

	i.logger.Info("child stopped", nil)
	i.notify(info)
	return nil
}

// IsRunning reports whether a child is live.
func (i *Instance) IsRunning() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

// Status returns the run flag and a copy of the RunInfo trail.
func (i *Instance) Status() (bool, RunInfo) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running, i.runInfo.clone()
}

// Live returns deep copies of the mirrored params and state. Either is nil
// while not running or before the child has reported it.
func (i *Instance) Live() (*control.Params, *control.State) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var params *control.Params
	if i.params != nil {
		p := *i.params
		params = &p
	}
	var state *control.State
	if i.state != nil {
		s := *i.state
		state = &s
	}
	return params, state
}

// relayStdout forwards the child's log lines into the supervisor's log.
func (i *Instance) relayStdout(r io.Reader, done chan struct{}) {
	defer close(done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		i.logger.Info("fw", map[string]any{"line": sc.Text()})
	}
}

// scanSidechan consumes the child's status stream and keeps the mirror
// current. Malformed input stays in the scanner's reject buffer for crash
// diagnostics.
func (i *Instance) scanSidechan(sc *sidechan.Scanner, done chan struct{}) {
	defer close(done)
	for {
		msg, err := sc.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				i.logger.Warn("side-channel read failed", map[string]any{"error": err.Error()})
			}
			return
		}
		i.handlePacket(msg)
	}
}

func (i *Instance) handlePacket(msg sidechan.Message) {
	switch msg.Kind {
	case sidechan.KindParams:
		var p control.Params
		if err := wire.Unmarshal([]byte(msg.Body), &p); err != nil {
			i.logger.Warn("bad params packet", map[string]any{"error": err.Error()})
			return
		}
		i.mu.Lock()
		i.params = &p
		i.mu.Unlock()
	case sidechan.KindState:
		var s control.State
		if err := wire.Unmarshal([]byte(msg.Body), &s); err != nil {
			i.logger.Warn("bad state packet", map[string]any{"error": err.Error()})
			return
		}
		i.mu.Lock()
		i.state = &s
		i.mu.Unlock()
	case sidechan.KindPeltierFail:
		i.logger.Warn("child peltier tick failed", map[string]any{"detail": msg.Body})
	case sidechan.KindFanFail:
		i.logger.Warn("child fan tick failed", map[string]any{"detail": msg.Body})
	case sidechan.KindRunning, sidechan.KindDone:
		// Tick heartbeats carry no payload.
	default:
		i.logger.Debug("unknown side-channel kind", map[string]any{"kind": msg.Kind})
	}
}

// watchdog waits for the child to exit. Any non-zero exit outside a stop is
// a crash: the instance atomically goes not-running, the mirror is cleared,
// and the accumulated reject buffer becomes the diagnostic.
func (i *Instance) watchdog(child ChildProcess, stdoutDone, stderrDone, watchDone chan struct{}) {
	defer close(watchDone)

	// The streams hit EOF when the process exits; draining them before
	// Wait keeps the reject buffer complete.
	<-stdoutDone
	<-stderrDone
	code := child.Wait()

	i.mu.Lock()
	if i.stopping {
		// Graceful path: Stop owns the cleanup.
		i.mu.Unlock()
		return
	}
	if code == 0 {
		// A clean exit can only come from a stop or a ctrl-c to the whole
		// process group; nothing to clean up here.
		i.mu.Unlock()
		i.logger.Warn("child exited cleanly without a stop", nil)
		return
	}

	i.running = false
	i.params = nil
	i.state = nil
	diag := i.scanner.Rejected() + fmt.Sprintf("process crashed with return code %d", code)
	since := i.now().Unix()
	i.runInfo = RunInfo{Since: &since, Reason: ReasonCrashed, Info: &diag}
	info := i.runInfo.clone()
	i.mu.Unlock()

	i.collector.IncChildCrashes()
	i.logger.Error("child crashed", map[string]any{"code": code})
	i.notify(info)
}

func (i *Instance) notify(info RunInfo) {
	if i.onTransition != nil {
		i.onTransition(info)
	}
}
