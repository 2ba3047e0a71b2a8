// Package main provides the periphd peripheral service daemon.
//
// periphd owns the hardware: it serializes all peripheral access behind
// one mutex and serves the read/is_on/turn_on/turn_off protocol on its
// RPC port. This build wires the simulated tank; a hardware build swaps
// the registry entries for GPIO-backed ones.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/cli/cmd"
	"github.com/reefward/chiller/cli/config"
	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/metrics"
	"github.com/reefward/chiller/peripheral"
	"github.com/reefward/chiller/rpc"
)

func main() {
	app := &cli.App{
		Name:    "periphd",
		Usage:   "Serve the tank peripherals over RPC",
		Version: cmd.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to chiller.yaml",
				EnvVars: []string{"CHILLER_CONFIG"},
				Value:   "chiller.yaml",
			},
			&cli.Float64Flag{
				Name:  "initial-temp",
				Usage: "Simulated initial water temperature (°C)",
				Value: 25,
			},
			&cli.Float64Flag{
				Name:  "ambient-temp",
				Usage: "Simulated ambient temperature (°C)",
				Value: 27,
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
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return err
	}

	logger := log.NewLogger("periphd")
	collector := metrics.NewCollector("periphd")

	registry, err := buildRegistry(c.Float64("initial-temp"), c.Float64("ambient-temp"))
	if err != nil {
		return err
	}

	service := peripheral.NewService(peripheral.ServiceConfig{
		Registry:      registry,
		CacheLifetime: cfg.Peripheral.CacheLifetime.Duration,
		Logger:        logger,
	})

	srv, err := rpc.Listen(rpc.ServerConfig{
		Host:      cfg.Peripheral.Host,
		Port:      cfg.Peripheral.Port,
		Handler:   service.Handle,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", map[string]any{"signal": sig.String()})
		_ = srv.Close()
	}()

	logger.Info("peripheral service listening", map[string]any{
		"addr":        srv.Addr().String(),
		"peripherals": registry.Names(),
	})
	return srv.Serve()
}

// buildRegistry wires the simulated peripherals: two relays and a tank
// model whose temperature reacts to the peltier relay.
func buildRegistry(initial, ambient float64) (*peripheral.Registry, error) {
	peltier := peripheral.NewSimRelay()
	fan := peripheral.NewSimRelay()
	tank := peripheral.NewSimTank(peripheral.SimTankConfig{
		Initial:   initial,
		Ambient:   ambient,
		CoolRate:  0.02,
		DriftRate: 0.005,
		Peltier:   peltier,
	})

	registry := peripheral.NewRegistry()
	if err := registry.AddSensor(control.SensorTankTemp, tank); err != nil {
		return nil, err
	}
	if err := registry.AddDevice(control.DevicePeltier, peltier); err != nil {
		return nil, err
	}
	if err := registry.AddDevice(control.DeviceFan, fan); err != nil {
		return nil, err
	}
	return registry, nil
}
