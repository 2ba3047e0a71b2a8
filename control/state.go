package control

// Phase is the control-loop mode.
type Phase string

// Phases of the hysteresis controller. In cool the peltier is engaged; in
// idle it is off. The band between low and high belongs to whichever phase
// is current, which is what prevents chattering.
const (
	PhaseCool Phase = "cool"
	PhaseIdle Phase = "idle"
)

// State is the whole live state of the control loop.
type State struct {
	Phase Phase `json:"phase"`
	// LastPeltierOn counts consecutive ticks since the peltier was last
	// observed on. It is reset to 0 whenever the peltier is observed on.
	LastPeltierOn int `json:"last_peltier_on"`
}

// initialState is the state every run starts from.
func initialState() State {
	return State{Phase: PhaseCool, LastPeltierOn: 0}
}

// Names of the peripherals the loop drives, as registered with the
// peripheral service.
const (
	SensorTankTemp = "tank_temp"
	DevicePeltier  = "peltier"
	DeviceFan      = "fan"
)

// PeripheralAPI is the capability surface the loop needs from the
// peripheral service. Implemented by peripheral.Client; tests substitute
// fakes.
type PeripheralAPI interface {
	// Read samples a sensor.
	Read(name string) (float64, error)
	// IsOn reports a switch-like peripheral's state.
	IsOn(name string) (bool, error)
	// TurnOn engages a switch-like peripheral. Idempotent.
	TurnOn(name string) error
	// TurnOff disengages a switch-like peripheral. Idempotent.
	TurnOff(name string) error
}

// StatusSink receives the loop's status emissions. The production sink is
// the side-channel writer on the child's stderr; a nil sink disables
// emission.
type StatusSink interface {
	// Params is emitted once when the loop starts.
	Params(p Params) error
	// TickStart is emitted at the start of every tick.
	TickStart() error
	// PeltierFailure is emitted when the peltier sub-tick fails.
	PeltierFailure(desc string) error
	// FanFailure is emitted when the fan sub-tick fails.
	FanFailure(desc string) error
	// State is emitted after every tick with a copy of the live state.
	State(s State) error
	// TickDone is emitted at the end of every tick.
	TickDone() error
}

// TickReport carries the independent outcomes of one tick's two sub-ticks.
// A nil field means that sub-tick succeeded. A failure in the peltier
// sub-tick never prevents the fan sub-tick from running.
type TickReport struct {
	Peltier error
	Fan     error
}
