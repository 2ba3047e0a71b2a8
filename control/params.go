// Package control implements the temperature-regulation loop: a two-phase
// hysteresis controller for the peltier element plus a time-retained fan
// controller, driven by a fixed-period tick against a remote peripheral
// service.
package control

import (
	"fmt"
	"strconv"

	"github.com/reefward/chiller/wire"
)

// Params are the regulation parameters. They are owned by the supervisor
// and handed to the loop at spawn time; they must never change while the
// loop is running.
type Params struct {
	// Low is the temperature below which cooling stops (°C).
	Low float64 `json:"low" yaml:"low"`
	// High is the temperature at or above which cooling starts (°C).
	High float64 `json:"high" yaml:"high"`
	// FanRetain is how long the fan keeps running after the peltier
	// switches off (seconds).
	FanRetain float64 `json:"fan_retain" yaml:"fan_retain"`
	// TickTime is the target period between tick starts (seconds).
	TickTime float64 `json:"tick_time" yaml:"tick_time"`
}

// paramKeys is the exact key set a params payload must carry.
var paramKeys = []string{"low", "high", "fan_retain", "tick_time"}

// Validate checks the Params invariants.
func (p Params) Validate() error {
	if p.High <= p.Low {
		return fmt.Errorf("high (%v) must be greater than low (%v)", p.High, p.Low)
	}
	if p.FanRetain < 0 {
		return fmt.Errorf("fan_retain (%v) must be >= 0", p.FanRetain)
	}
	// A long tick freezes the loop's responsiveness to stop requests.
	if p.TickTime < 1 || p.TickTime > 60 {
		return fmt.Errorf("tick_time (%v) must be within [1, 60]", p.TickTime)
	}
	return nil
}

// Args renders the params as the child process argument vector:
// [low, high, fan_retain, tick_time].
func (p Params) Args() []string {
	return []string{
		strconv.FormatFloat(p.Low, 'g', -1, 64),
		strconv.FormatFloat(p.High, 'g', -1, 64),
		strconv.FormatFloat(p.FanRetain, 'g', -1, 64),
		strconv.FormatFloat(p.TickTime, 'g', -1, 64),
	}
}

// ParamsFromArgs parses the argument vector form produced by Args and
// validates the result.
func ParamsFromArgs(args []string) (Params, error) {
	if len(args) != 4 {
		return Params{}, fmt.Errorf("expected 4 arguments [low high fan_retain tick_time], got %d", len(args))
	}

	values := make([]float64, 4)
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Params{}, fmt.Errorf("argument %d (%q) is not numeric", i+1, arg)
		}
		values[i] = v
	}

	p := Params{Low: values[0], High: values[1], FanRetain: values[2], TickTime: values[3]}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// ParamsFromJSON decodes a params payload, rejecting missing or extra keys
// before validating the invariants.
func ParamsFromJSON(data []byte) (Params, error) {
	var raw map[string]wire.RawMessage
	if err := wire.Unmarshal(data, &raw); err != nil {
		return Params{}, fmt.Errorf("params must be an object: %w", err)
	}

	for _, key := range paramKeys {
		if _, ok := raw[key]; !ok {
			return Params{}, fmt.Errorf("params needs key %q", key)
		}
	}
	if len(raw) != len(paramKeys) {
		for key := range raw {
			known := false
			for _, want := range paramKeys {
				if key == want {
					known = true
					break
				}
			}
			if !known {
				return Params{}, fmt.Errorf("params has extra key %q", key)
			}
		}
	}

	var p Params
	if err := wire.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("invalid params payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
