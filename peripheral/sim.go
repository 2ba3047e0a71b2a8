package peripheral

import (
	"sync"
	"time"
)

// SimRelay is an in-memory Device for development and tests. It stands in
// for the active-low GPIO relay of the production deployment.
type SimRelay struct {
	mu sync.Mutex
	on bool
}

// NewSimRelay returns a relay in the off state.
func NewSimRelay() *SimRelay {
	return &SimRelay{}
}

func (r *SimRelay) IsOn() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on, nil
}

func (r *SimRelay) TurnOn() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on = true
	return nil
}

func (r *SimRelay) TurnOff() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on = false
	return nil
}

// SimTank is an in-memory temperature Sensor coupled to a cooling relay.
// While the relay is on the water cools at CoolRate; otherwise it drifts
// back toward Ambient at DriftRate. The model advances on every Read by
// the wall time elapsed since the previous one.
type SimTank struct {
	mu     sync.Mutex
	temp   float64
	lastAt time.Time

	ambient   float64
	coolRate  float64 // °C/s while cooling
	driftRate float64 // °C/s toward ambient
	peltier   *SimRelay
	now       func() time.Time
}

// SimTankConfig configures a SimTank.
type SimTankConfig struct {
	// Initial water temperature (°C).
	Initial float64
	// Ambient temperature the tank drifts toward (°C).
	Ambient float64
	// CoolRate is the cooling speed while the relay is on (°C/s).
	CoolRate float64
	// DriftRate is the warming speed while the relay is off (°C/s).
	DriftRate float64
	// Peltier is the relay the model reacts to. Required.
	Peltier *SimRelay
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// NewSimTank creates the model.
func NewSimTank(cfg SimTankConfig) *SimTank {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SimTank{
		temp:      cfg.Initial,
		lastAt:    now(),
		ambient:   cfg.Ambient,
		coolRate:  cfg.CoolRate,
		driftRate: cfg.DriftRate,
		peltier:   cfg.Peltier,
		now:       now,
	}
}

func (s *SimTank) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	elapsed := t.Sub(s.lastAt).Seconds()
	s.lastAt = t

	cooling, err := s.peltier.IsOn()
	if err != nil {
		return 0, err
	}
	if cooling {
		s.temp -= s.coolRate * elapsed
	} else if s.temp < s.ambient {
		s.temp += s.driftRate * elapsed
		if s.temp > s.ambient {
			s.temp = s.ambient
		}
	}
	return s.temp, nil
}
