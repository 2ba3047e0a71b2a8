package supervise

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reefward/chiller/control"
)

// paramsHeader explains the file to whoever finds it on disk.
const paramsHeader = `# Loaded on startup of chillerd.
# Change params through the API; accepted updates rewrite this file.
`

// ParamsStore persists the accepted regulation parameters so a restarted
// supervisor resumes with the previous run's configuration.
type ParamsStore struct {
	path string
}

// NewParamsStore returns a store backed by the YAML file at path.
func NewParamsStore(path string) *ParamsStore {
	return &ParamsStore{path: path}
}

// Load reads and validates the persisted params.
func (s *ParamsStore) Load() (control.Params, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return control.Params{}, fmt.Errorf("read params file: %w", err)
	}
	var p control.Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return control.Params{}, fmt.Errorf("parse params file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return control.Params{}, fmt.Errorf("stored params invalid: %w", err)
	}
	return p, nil
}

// Save writes the params. Callers validate before saving.
func (s *ParamsStore) Save(p control.Params) error {
	body, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := os.WriteFile(s.path, append([]byte(paramsHeader), body...), 0o644); err != nil {
		return fmt.Errorf("write params file: %w", err)
	}
	return nil
}
