// Package peripheral implements the peripheral service: a registry of named
// sensors and devices exposed over the RPC transport, with cached sensor
// reads and a single hardware lock, plus the client the control loop uses
// to reach it.
package peripheral

// Kind classifies a peripheral. The set is closed: every registered
// peripheral is exactly one of these, and its allowed operations are fixed
// by the kind at registration time.
type Kind string

const (
	// KindSensor peripherals produce readings.
	KindSensor Kind = "sensor"
	// KindDevice peripherals switch on and off.
	KindDevice Kind = "device"
)

// Operations, by kind.
const (
	OpRead    = "read"
	OpIsOn    = "is_on"
	OpTurnOn  = "turn_on"
	OpTurnOff = "turn_off"
)

// Operations returns the operation set the kind allows.
func (k Kind) Operations() []string {
	switch k {
	case KindSensor:
		return []string{OpRead}
	case KindDevice:
		return []string{OpIsOn, OpTurnOn, OpTurnOff}
	}
	return nil
}

// Allows reports whether the kind supports the operation.
func (k Kind) Allows(op string) bool {
	for _, allowed := range k.Operations() {
		if op == allowed {
			return true
		}
	}
	return false
}

// Sensor is the hardware binding for a reading-producing peripheral.
type Sensor interface {
	// Read samples the sensor.
	Read() (float64, error)
}

// Device is the hardware binding for a switch-like peripheral. TurnOn and
// TurnOff must be idempotent.
type Device interface {
	IsOn() (bool, error)
	TurnOn() error
	TurnOff() error
}
