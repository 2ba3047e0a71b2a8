package supervise

import (
	"context"
	"sync"
	"time"

	"github.com/reefward/chiller/adapter"
	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/rpc"
	"github.com/reefward/chiller/wire"
)

// Supervisor is the RPC surface over an Instance plus the persisted params.
// The stored params are guaranteed to match the running child: set_params
// is rejected while running, and every start uses the last accepted set.
type Supervisor struct {
	instance *Instance
	store    *ParamsStore
	logger   *log.Logger

	// mu serializes the lifecycle, not just the fields: the running check,
	// the store write, and the start all happen under it, so a set_params
	// can never interleave with a start. The instance's own conflict check
	// stays as backstop.
	mu         sync.Mutex
	params     control.Params
	haveParams bool
}

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Instance under supervision. Required.
	Instance *Instance
	// Store for params persistence. Required.
	Store *ParamsStore
	// Logger is required.
	Logger *log.Logger
}

// NewSupervisor creates a Supervisor and loads the persisted params. When
// the stored params are missing or invalid the supervisor starts halted:
// queries work, but start is refused until a set_params heals the file.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	s := &Supervisor{
		instance: cfg.Instance,
		store:    cfg.Store,
		logger:   cfg.Logger,
	}

	params, err := cfg.Store.Load()
	if err != nil {
		s.logger.Error("starting halted: params file unusable", map[string]any{"error": err.Error()})
		return s
	}
	s.params = params
	s.haveParams = true
	return s
}

// AutoStart starts the child with the persisted params, logging instead of
// failing when that is not possible. Called once at boot.
func (s *Supervisor) AutoStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haveParams {
		s.logger.Warn("autostart skipped: no valid stored params", nil)
		return
	}
	if err := s.instance.Start(s.params); err != nil {
		s.logger.Error("autostart failed", map[string]any{"error": err.Error()})
	}
}

// request is the supervisor wire schema.
type request struct {
	Request string          `json:"request"`
	Data    wire.RawMessage `json:"data"`
}

// StatusReply answers a status request.
type StatusReply struct {
	Running bool    `json:"running"`
	Since   *int64  `json:"since"`
	Reason  Reason  `json:"reason"`
	Info    *string `json:"info"`
}

// Handle serves one supervisor request. It has the rpc.Handler shape.
func (s *Supervisor) Handle(payload []byte, peer string) (any, error) {
	var req request
	if err := wire.Unmarshal(payload, &req); err != nil || req.Request == "" {
		return nil, rpc.Errorf(rpc.KindMalformedRequest, "request must be an object with a request key")
	}

	s.logger.Debug("supervisor request", map[string]any{"peer": peer, "request": req.Request})

	switch req.Request {
	case "start":
		return s.handleStart()
	case "stop":
		if err := s.instance.Stop(); err != nil {
			return nil, err
		}
		return "OK", nil
	case "status":
		running, info := s.instance.Status()
		return StatusReply{Running: running, Since: info.Since, Reason: info.Reason, Info: info.Info}, nil
	case "get_state":
		// Null while not running: callers poll this without racing the
		// run state.
		_, state := s.instance.Live()
		if state == nil {
			return nil, nil
		}
		return state, nil
	case "get_params":
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.haveParams {
			return nil, rpc.Errorf(rpc.KindNotFound, "no valid params stored")
		}
		return s.params, nil
	case "set_params":
		return s.handleSetParams(req.Data)
	}
	return nil, rpc.Errorf(rpc.KindMalformedRequest, "unknown request %q", req.Request)
}

// handleStart spawns the child with the stored params. The param read and
// the spawn stay under one lock so the child always runs on exactly the
// set the store reports.
func (s *Supervisor) handleStart() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haveParams {
		return nil, rpc.Errorf(rpc.KindValidation, "no valid params stored; set_params first")
	}
	if err := s.instance.Start(s.params); err != nil {
		return nil, err
	}
	return "OK", nil
}

// handleSetParams validates, persists, then accepts new params. Rejected
// while the child runs: the file must stay in sync with the live instance.
// The running check and the acceptance sit under the same lock as
// handleStart, so a start cannot slip in between them with the old set.
func (s *Supervisor) handleSetParams(data wire.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.instance.IsRunning() {
		return nil, rpc.Errorf(rpc.KindConflict, "not stopped")
	}
	if len(data) == 0 {
		return nil, rpc.Errorf(rpc.KindMalformedRequest, "set_params needs a data object")
	}

	params, err := control.ParamsFromJSON(data)
	if err != nil {
		return nil, rpc.Errorf(rpc.KindValidation, "%v", err)
	}
	if err := s.store.Save(params); err != nil {
		return nil, err
	}

	s.params = params
	s.haveParams = true

	s.logger.Info("params updated", map[string]any{
		"low":        params.Low,
		"high":       params.High,
		"fan_retain": params.FanRetain,
		"tick_time":  params.TickTime,
	})
	return "OK", nil
}

// PublishRunState returns an Instance transition hook that publishes each
// run-state change through the adapter, best effort. The publish runs on
// its own goroutine: the hook is called inside the supervisor lifecycle,
// and a slow adapter must not stall start or stop.
func PublishRunState(ad adapter.Adapter, logger *log.Logger, service string) func(RunInfo) {
	return func(info RunInfo) {
		event := &adapter.RunStateEvent{
			EventType: "run_state_changed",
			Service:   service,
			Reason:    string(info.Reason),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if info.Since != nil {
			event.Since = *info.Since
		}
		if info.Info != nil {
			event.Info = *info.Info
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := ad.Publish(ctx, event); err != nil {
				logger.Warn("run-state publish failed", map[string]any{"error": err.Error()})
			}
		}()
	}
}
