package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// StartCommand returns the start command. The supervisor spawns the loop
// with the stored params; there is nothing to pass here.
func StartCommand() *cli.Command {
	return &cli.Command{
		Name:   "start",
		Usage:  "Start the control loop with the stored parameters",
		Flags:  SharedFlags(),
		Action: lifecycleAction("start"),
	}
}

// StopCommand returns the stop command.
func StopCommand() *cli.Command {
	return &cli.Command{
		Name:   "stop",
		Usage:  "Stop the control loop gracefully",
		Flags:  SharedFlags(),
		Action: lifecycleAction("stop"),
	}
}

func lifecycleAction(request string) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, err := dialSupervisor(c)
		if err != nil {
			return err
		}
		defer client.Close()

		var reply string
		if err := call(client, request, nil, &reply); err != nil {
			return asExit(err)
		}
		return ackAction(c, reply)
	}
}

// ackAction prints a bare acknowledgement ("OK"). Acks skip the renderer:
// there is no object to format.
func ackAction(_ *cli.Context, reply string) error {
	fmt.Println(reply)
	return nil
}
