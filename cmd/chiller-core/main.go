// Package main provides the chiller-core control-loop binary.
//
// chiller-core is spawned by chillerd with the regulation parameters as
// positional arguments:
//
//	chiller-core --peripheral-addr host:port <low> <high> <fan_retain> <tick_time>
//
// Stream contract: stderr carries the framed status side-channel the
// supervisor mirrors; logs therefore go to stdout, where the supervisor
// relays them line by line.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/cmd"
	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/metrics"
	"github.com/reefward/chiller/peripheral"
	"github.com/reefward/chiller/sidechan"
)

func main() {
	app := &cli.App{
		Name:      "chiller-core",
		Usage:     "Run the temperature regulation loop",
		ArgsUsage: "<low> <high> <fan_retain> <tick_time>",
		Version:   cmd.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "peripheral-addr",
				Usage: "Peripheral service address host:port",
				Value: "127.0.0.1:4510",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	params, err := control.ParamsFromArgs(c.Args().Slice())
	if err != nil {
		return err
	}

	// Stderr is the side-channel; keep zap off it.
	logger := log.NewLogger("chiller-core").WithOutput(os.Stdout)

	gpio := peripheral.NewClient(c.String("peripheral-addr"))
	defer gpio.Close()

	controller := control.NewController(control.ControllerConfig{
		Params:      params,
		Peripherals: gpio,
		Status:      sidechan.NewStatusWriter(os.Stderr),
		Logger:      logger,
		Collector:   metrics.NewCollector("chiller-core"),
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("stop requested", map[string]any{"signal": sig.String()})
		controller.Stop()
	}()

	return controller.Run()
}
