package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/config"
	"github.com/reefward/chiller/rpc"
)

// Exit codes. Conflicts get their own code so shell scripts can tell
// "already running / not stopped" apart from a genuine failure.
const (
	exitSuccess  = 0
	exitFailure  = 1
	exitConflict = 2
)

// defaultConfigPath is used when neither --config nor CHILLER_CONFIG is
// set. A missing file falls back to the built-in defaults.
const defaultConfigPath = "chiller.yaml"

// supervisorAddr resolves the dial address: --addr wins, then the config
// file, then the built-in default.
func supervisorAddr(c *cli.Context) (string, error) {
	if addr := c.String("addr"); addr != "" {
		return addr, nil
	}
	path := c.String("config")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return "", err
	}
	return cfg.Supervisor.Addr(), nil
}

// dialSupervisor builds a client for the resolved supervisor address. No
// connection is made until the first call.
func dialSupervisor(c *cli.Context) (*rpc.Client, error) {
	addr, err := supervisorAddr(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitFailure)
	}
	return rpc.NewClient(addr), nil
}

// supervisorRequest is the wire shape of every supervisor call.
type supervisorRequest struct {
	Request string `json:"request"`
	Data    any    `json:"data,omitempty"`
}

// call performs one supervisor request and decodes the result into out
// (skipped when out is nil).
func call(client *rpc.Client, request string, data, out any) error {
	return client.Call(supervisorRequest{Request: request, Data: data}, out)
}

// asExit maps a call failure onto the exit-code contract: conflicts exit
// exitConflict, everything else exits exitFailure.
func asExit(err error) error {
	if err == nil {
		return nil
	}
	var se *rpc.ServiceError
	if errors.As(err, &se) && se.Kind == rpc.KindConflict {
		return cli.Exit(se.Error(), exitConflict)
	}
	return cli.Exit(err.Error(), exitFailure)
}
