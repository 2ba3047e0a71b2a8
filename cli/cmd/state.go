package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/render"
	"github.com/reefward/chiller/control"
)

// StateCommand returns the state command.
func StateCommand() *cli.Command {
	return &cli.Command{
		Name:   "state",
		Usage:  "Show the live control-loop state (null while not running)",
		Flags:  SharedFlags(),
		Action: stateAction,
	}
}

func stateAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	client, err := dialSupervisor(c)
	if err != nil {
		return err
	}
	defer client.Close()

	// Null while not running; the renderer passes that through instead of
	// inventing a zero state.
	var state *control.State
	if err := call(client, "get_state", nil, &state); err != nil {
		return asExit(err)
	}
	return r.Render(state)
}
