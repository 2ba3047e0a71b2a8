// Package cmd provides CLI commands for the chillctl binary.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Shared flags across chillctl commands.
var (
	// ConfigFlag points at the chiller.yaml deployment file. chillctl only
	// reads the supervisor section out of it.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to chiller.yaml",
		EnvVars: []string{"CHILLER_CONFIG"},
	}

	// AddrFlag overrides the supervisor address from the config file.
	AddrFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "Supervisor address host:port (overrides config)",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// IntervalFlag sets the watch poll period.
	IntervalFlag = &cli.DurationFlag{
		Name:  "interval",
		Usage: "Poll period for watch mode",
		Value: time.Second,
	}
)

// SharedFlags returns the flags every supervisor-facing command accepts.
func SharedFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		AddrFlag,
		FormatFlag,
	}
}
