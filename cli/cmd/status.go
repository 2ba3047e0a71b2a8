package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/render"
	"github.com/reefward/chiller/supervise"
)

// StatusCommand returns the status command. Status answers from the
// supervisor's own records; it never touches the child.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show whether the control loop runs, and why it last stopped",
		Flags:  SharedFlags(),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	client, err := dialSupervisor(c)
	if err != nil {
		return err
	}
	defer client.Close()

	var reply supervise.StatusReply
	if err := call(client, "status", nil, &reply); err != nil {
		return asExit(err)
	}
	return r.Render(reply)
}
