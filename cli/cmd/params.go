package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/render"
	"github.com/reefward/chiller/control"
)

// ParamsCommand returns the params command.
func ParamsCommand() *cli.Command {
	return &cli.Command{
		Name:   "params",
		Usage:  "Show the stored regulation parameters",
		Flags:  SharedFlags(),
		Action: paramsAction,
	}
}

func paramsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	client, err := dialSupervisor(c)
	if err != nil {
		return err
	}
	defer client.Close()

	var params control.Params
	if err := call(client, "get_params", nil, &params); err != nil {
		return asExit(err)
	}
	return r.Render(params)
}

// SetParamsCommand returns the set-params command. The supervisor rejects
// it while the loop runs; stop first.
func SetParamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "set-params",
		Usage: "Store new regulation parameters (loop must be stopped)",
		Flags: append(SharedFlags(),
			&cli.Float64Flag{
				Name:     "low",
				Usage:    "Temperature below which cooling stops (°C)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "high",
				Usage:    "Temperature at or above which cooling starts (°C)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "fan-retain",
				Usage:    "Fan run-on time after the peltier stops (seconds)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "tick-time",
				Usage:    "Loop period (seconds, 1 to 60)",
				Required: true,
			},
		),
		Action: setParamsAction,
	}
}

func setParamsAction(c *cli.Context) error {
	params := control.Params{
		Low:       c.Float64("low"),
		High:      c.Float64("high"),
		FanRetain: c.Float64("fan-retain"),
		TickTime:  c.Float64("tick-time"),
	}
	// Validate locally first; the supervisor checks too, but a local reject
	// names the flag instead of a wire payload key.
	if err := params.Validate(); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	client, err := dialSupervisor(c)
	if err != nil {
		return err
	}
	defer client.Close()

	var reply string
	if err := call(client, "set_params", params, &reply); err != nil {
		return asExit(err)
	}
	return ackAction(c, reply)
}
