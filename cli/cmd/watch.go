package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/tui"
)

// WatchCommand returns the watch command: a full-screen live view of the
// supervisor, refreshed on a fixed interval.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the control loop live (interactive)",
		Flags: []cli.Flag{
			ConfigFlag,
			AddrFlag,
			IntervalFlag,
		},
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	addr, err := supervisorAddr(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	return tui.RunWatch(addr, c.Duration("interval"))
}
