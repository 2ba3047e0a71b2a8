package peripheral

import (
	"fmt"
	"sync"
	"time"

	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/rpc"
	"github.com/reefward/chiller/wire"
)

// Request is the wire schema the service answers.
type Request struct {
	Name      string `json:"name"`
	Operation string `json:"operation"`
}

// cacheEntry is one remembered sensor reading.
type cacheEntry struct {
	at    time.Time
	value float64
}

// Service answers peripheral requests against a registry. One Service owns
// one hardware lock: GPIO manipulation is not thread-safe, so every
// hardware touch across all concurrent sessions goes through it.
//
// Sensor reads are cached: a reading younger than the cache lifetime is
// reused instead of re-sampled, so request bursts do not hammer the
// hardware.
type Service struct {
	registry *Registry
	lifetime time.Duration
	now      func() time.Time
	logger   *log.Logger

	hwMu  sync.Mutex
	cache map[string]cacheEntry
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Registry of exposed peripherals. Required.
	Registry *Registry
	// CacheLifetime is how long a sensor reading stays fresh.
	CacheLifetime time.Duration
	// Logger is required.
	Logger *log.Logger
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		registry: cfg.Registry,
		lifetime: cfg.CacheLifetime,
		now:      now,
		logger:   cfg.Logger,
		cache:    make(map[string]cacheEntry),
	}
}

// Handle serves one request. It has the rpc.Handler shape.
func (s *Service) Handle(payload []byte, peer string) (any, error) {
	var req Request
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, rpc.Errorf(rpc.KindMalformedRequest, "request must be an object with name and operation keys")
	}
	if req.Name == "" || req.Operation == "" {
		return nil, rpc.Errorf(rpc.KindMalformedRequest, "request must have name and operation keys")
	}

	s.logger.Debug("peripheral request", map[string]any{
		"peer":      peer,
		"name":      req.Name,
		"operation": req.Operation,
	})

	e, ok := s.registry.lookup(req.Name)
	if !ok {
		return nil, rpc.Errorf(rpc.KindNotFound, "peripheral %q is not found", req.Name)
	}
	if !e.kind.Allows(req.Operation) {
		return nil, rpc.Errorf(rpc.KindMalformedRequest, "operation %q for %s not allowed", req.Operation, e.kind)
	}

	s.hwMu.Lock()
	defer s.hwMu.Unlock()

	switch e.kind {
	case KindSensor:
		return s.readCached(req.Name, e.sensor)
	case KindDevice:
		switch req.Operation {
		case OpIsOn:
			return e.device.IsOn()
		case OpTurnOn:
			if err := e.device.TurnOn(); err != nil {
				return nil, err
			}
			return "OK", nil
		case OpTurnOff:
			if err := e.device.TurnOff(); err != nil {
				return nil, err
			}
			return "OK", nil
		}
	}
	// Unreachable: Allows already constrained (kind, operation).
	return nil, fmt.Errorf("unhandled operation %q for kind %s", req.Operation, e.kind)
}

// readCached serves a sensor read, re-sampling only when the cached
// reading has outlived the lifetime. Caller holds the hardware lock.
func (s *Service) readCached(name string, sensor Sensor) (float64, error) {
	if c, ok := s.cache[name]; ok && s.now().Sub(c.at) <= s.lifetime {
		return c.value, nil
	}
	value, err := sensor.Read()
	if err != nil {
		return 0, err
	}
	s.cache[name] = cacheEntry{at: s.now(), value: value}
	return value, nil
}
