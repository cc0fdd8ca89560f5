// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command relay-extension registers with the extension API, keeps the
// telemetry relay running and sequences its shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/relay-extension/internal/config"
	"github.com/ManuGH/relay-extension/internal/controller"
	"github.com/ManuGH/relay-extension/internal/daemon"
	"github.com/ManuGH/relay-extension/internal/extension"
	"github.com/ManuGH/relay-extension/internal/log"
	"github.com/ManuGH/relay-extension/internal/platform/httpx"
	pnet "github.com/ManuGH/relay-extension/internal/platform/net"
	"github.com/ManuGH/relay-extension/internal/relay"
	"github.com/ManuGH/relay-extension/internal/resilience"
	"github.com/ManuGH/relay-extension/internal/result"
	"github.com/ManuGH/relay-extension/internal/supervisor"
	"github.com/ManuGH/relay-extension/internal/telemetry"
	"github.com/ManuGH/relay-extension/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	log.Configure(logConfig("info", version.Version))
	logger := log.WithComponent("main")

	if err := run(context.Background(), *configPath); err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "extension.exit").
			Msg("relay extension terminated with error")
	}
	logger.Info().Str(log.FieldEvent, "extension.exit").Msg("relay extension exited cleanly")
}

// logConfig sends every log line, fatal exits included, to stderr.
func logConfig(level, ver string) log.Config {
	return log.Config{
		Level:   level,
		Output:  os.Stderr,
		Service: "relay-extension",
		Version: ver,
	}
}

// run wires the components and blocks until the lifecycle loop ends.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log.Reconfigure(logConfig(cfg.LogLevel, cfg.Version))
	logger := log.WithComponent("main")
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str(log.FieldExtensionName, cfg.ExtensionName).
		Str(log.FieldBaseURL, cfg.ExtensionBaseURL()).
		Str("relay_listen", cfg.Relay.ListenAddr).
		Str("dsn", pnet.SanitizeURL(cfg.SentryDSN)).
		Dur("poll_interval", cfg.PollInterval).
		Msg("starting relay extension")

	relayCfg, err := relay.Build(cfg.SentryDSN, cfg.Relay.ListenAddr, cfg.Relay.LogLevel, cfg.Version)
	if err != nil {
		return fmt.Errorf("relay configuration: %w", err)
	}
	logger.Debug().Str(log.FieldUpstream, relayCfg.Upstream).Msg("relay upstream resolved")

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "relay-extension",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	coord, err := daemon.NewCoordinator(daemon.Deps{
		Logger: log.WithComponent("daemon"),
		Grace:  cfg.ShutdownGrace,
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return fmt.Errorf("shutdown coordinator: %w", err)
	}
	coord.RegisterShutdownHook("tracer", provider.Shutdown)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := coord.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	if cfg.MetricsAddr != "" {
		if _, err := coord.StartMetricsServer(ctx, cfg.MetricsAddr, promhttp.Handler()); err != nil {
			return err
		}
	}

	client, err := extension.NewClient(extension.Options{
		BaseURL:    cfg.ExtensionBaseURL(),
		Name:       cfg.ExtensionName,
		HTTPClient: httpx.NewLongPollClient(),
	})
	if err != nil {
		return fmt.Errorf("extension client: %w", err)
	}

	sup, err := supervisor.New(supervisor.Options{
		HealthURL: relayCfg.HealthURL(),
		Factory: func() (supervisor.Forwarder, error) {
			s, err := relay.New(relayCfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Breaker: resilience.NewCircuitBreaker("relay", 5, 30*time.Second),
	})
	if err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	running := controller.NewFlag()
	stopSignals := controller.WatchSignals(ctx, running, cancel)
	defer stopSignals()

	loop, err := controller.New(controller.Deps{
		Registrar:    client,
		Poller:       client,
		Supervisor:   sup,
		Reporter:     result.NewReporter(cfg.ResultDir),
		Shutdowner:   coord,
		ExitReporter: client,
		Flag:         running,
		PollInterval: cfg.PollInterval,
		Tracer:       telemetry.Tracer("relay-extension"),
	})
	if err != nil {
		return err
	}
	return loop.Run(ctx)
}
