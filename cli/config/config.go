package config

import (
	"fmt"
	"time"
)

// Config represents a chiller.yaml configuration file. One file describes
// the whole deployment; each binary reads the section it needs. CLI flags
// always override config values.
type Config struct {
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Peripheral PeripheralConfig `yaml:"peripheral"`
	Adapter    AdapterConfig    `yaml:"adapter"`
}

// SupervisorConfig configures chillerd.
type SupervisorConfig struct {
	// Host and Port the supervisor RPC server binds.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// CorePath is the control-loop binary chillerd spawns.
	CorePath string `yaml:"core_path"`
	// ParamsFile persists the accepted regulation parameters.
	ParamsFile string `yaml:"params_file"`
	// AutoStart spawns the child with the persisted params at boot.
	AutoStart bool `yaml:"auto_start"`
}

// PeripheralConfig configures periphd and everyone dialing it.
type PeripheralConfig struct {
	// Host and Port the peripheral RPC server binds; clients dial the
	// same pair.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// CacheLifetime is how long a sensor reading stays fresh.
	CacheLifetime Duration `yaml:"cache_lifetime"`
}

// AdapterConfig configures optional run-state event publication.
type AdapterConfig struct {
	// Type selects the adapter: "redis", "webhook", or empty for none.
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Supervisor: SupervisorConfig{
			Host:       "127.0.0.1",
			Port:       4520,
			CorePath:   "chiller-core",
			ParamsFile: "params.yaml",
			AutoStart:  true,
		},
		Peripheral: PeripheralConfig{
			Host:          "127.0.0.1",
			Port:          4510,
			CacheLifetime: Duration{2 * time.Second},
		},
	}
}

// Addr renders the supervisor dial/bind address.
func (c SupervisorConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr renders the peripheral dial/bind address.
func (c PeripheralConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
