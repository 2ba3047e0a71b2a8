// Package main provides the chillerd supervisor daemon.
//
// chillerd owns the control-loop child process: it spawns chiller-core
// with the stored params as arguments, mirrors the child's side-channel
// status, detects crashes through the exit code, and serves the
// supervisor protocol on its RPC port.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/adapter"
	"github.com/reefward/chiller/adapter/redis"
	"github.com/reefward/chiller/adapter/webhook"
	"github.com/reefward/chiller/cli/cmd"
	"github.com/reefward/chiller/cli/config"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/metrics"
	"github.com/reefward/chiller/rpc"
	"github.com/reefward/chiller/supervise"
)

func main() {
	app := &cli.App{
		Name:    "chillerd",
		Usage:   "Supervise the tank temperature control loop",
		Version: cmd.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to chiller.yaml",
				EnvVars: []string{"CHILLER_CONFIG"},
				Value:   "chiller.yaml",
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

	logger := log.NewLogger("chillerd")
	collector := metrics.NewCollector("chillerd")

	ad, err := buildAdapter(cfg.Adapter)
	if err != nil {
		return err
	}
	var onTransition func(supervise.RunInfo)
	if ad != nil {
		defer ad.Close()
		onTransition = supervise.PublishRunState(ad, logger, "chillerd")
		logger.Info("adapter enabled", map[string]any{"type": cfg.Adapter.Type})
	}

	command := supervise.ChildCommand{
		Path:     cfg.Supervisor.CorePath,
		BaseArgs: []string{"--peripheral-addr", cfg.Peripheral.Addr()},
	}
	instance := supervise.NewInstance(supervise.InstanceConfig{
		Factory:      command.Factory(),
		Logger:       logger,
		Collector:    collector,
		OnTransition: onTransition,
	})
	sup := supervise.NewSupervisor(supervise.SupervisorConfig{
		Instance: instance,
		Store:    supervise.NewParamsStore(cfg.Supervisor.ParamsFile),
		Logger:   logger,
	})

	srv, err := rpc.Listen(rpc.ServerConfig{
		Host:      cfg.Supervisor.Host,
		Port:      cfg.Supervisor.Port,
		Handler:   sup.Handle,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		return err
	}

	if cfg.Supervisor.AutoStart {
		sup.AutoStart()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", map[string]any{"signal": sig.String()})
		if instance.IsRunning() {
			if err := instance.Stop(); err != nil {
				logger.Warn("child stop failed", map[string]any{"error": err.Error()})
			}
		}
		_ = srv.Close()
	}()

	logger.Info("supervisor listening", map[string]any{"addr": srv.Addr().String()})
	return srv.Serve()
}

// buildAdapter constructs the configured run-state adapter, or nil when
// the adapter section is absent.
func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "redis":
		rcfg := redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
		}
		if cfg.Retries != nil {
			rcfg.Retries = *cfg.Retries
		}
		return redis.New(rcfg)
	case "webhook":
		wcfg := webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
		}
		if cfg.Retries != nil {
			wcfg.Retries = *cfg.Retries
		}
		return webhook.New(wcfg)
	}
	return nil, fmt.Errorf("unknown adapter type %q (must be redis or webhook)", cfg.Type)
}
