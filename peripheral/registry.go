package peripheral

import (
	"fmt"
	"sort"
)

// entry binds a name to exactly one peripheral kind. Which of the two
// bindings is set is determined by the kind; dispatch never type-switches
// at request time.
type entry struct {
	kind   Kind
	sensor Sensor
	device Device
}

// Registry is the set of peripherals a service exposes. It is populated at
// startup and immutable afterwards; no registration happens while serving.
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

func (r *Registry) add(name string, e entry) error {
	if name == "" {
		return fmt.Errorf("peripheral name must not be empty")
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("peripheral %q is registered already", name)
	}
	r.entries[name] = e
	return nil
}

// AddSensor registers a sensor under name.
func (r *Registry) AddSensor(name string, s Sensor) error {
	if s == nil {
		return fmt.Errorf("sensor %q has no binding", name)
	}
	return r.add(name, entry{kind: KindSensor, sensor: s})
}

// AddDevice registers a device under name.
func (r *Registry) AddDevice(name string, d Device) error {
	if d == nil {
		return fmt.Errorf("device %q has no binding", name)
	}
	return r.add(name, entry{kind: KindDevice, device: d})
}

// lookup resolves a name.
func (r *Registry) lookup(name string) (entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
