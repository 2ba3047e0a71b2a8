// Package main provides the chillctl CLI entrypoint.
//
// chillctl talks to the chillerd supervisor over its RPC port. status,
// state, params, and watch are read-only; start, stop, and set-params
// change the run state.
//
// Exit codes:
//   - 0: success
//   - 1: failure (unreachable supervisor, validation, not found)
//   - 2: conflict (already running, or not stopped for set-params)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/cmd"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "chillctl",
		Usage:          "Control and inspect the chiller supervisor",
		Version:        fmt.Sprintf("%s (commit: %s)", cmd.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.StatusCommand(),
			cmd.StateCommand(),
			cmd.ParamsCommand(),
			cmd.SetParamsCommand(),
			cmd.StartCommand(),
			cmd.StopCommand(),
			cmd.WatchCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled cli.ExitCoder errors. This branch
		// handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit(), so conflicts keep
// their distinct code through the urfave error path.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
