package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/dispatch"
	"github.com/davidleathers/deterministic-dispatch/internal/infrastructure/config"
	"github.com/davidleathers/deterministic-dispatch/internal/infrastructure/telemetry"
	"github.com/davidleathers/deterministic-dispatch/internal/metrics"
	"github.com/davidleathers/deterministic-dispatch/internal/service/looper"
	"github.com/davidleathers/deterministic-dispatch/internal/service/scenario"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	scenarioPath := flag.String("scenario", "", "path to scenario file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, *scenarioPath); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, scenarioPath string) error {
	slog.Info("starting dispatch simulator",
		"version", cfg.Version,
		"environment", cfg.Environment)

	if scenarioPath == "" {
		scenarioPath = cfg.Sim.ScenarioPath
	}
	if scenarioPath == "" {
		return fmt.Errorf("no scenario given; use -scenario or sim.scenario_path")
	}

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		provider := sdkmetric.NewMeterProvider()
		defer func() {
			_ = provider.Shutdown(context.Background())
		}()
		otel.SetMeterProvider(provider)

		var err error
		registry, err = metrics.NewRegistry(cfg.Metrics.Meter)
		if err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
	}

	zlog, err := buildServiceLogger(cfg)
	if err != nil {
		return fmt.Errorf("building service logger: %w", err)
	}
	defer func() {
		_ = zlog.Sync()
	}()

	handler := looper.HandlerFunc(func(msg dispatch.Message) {
		zlog.Info("message handled",
			zap.Int("tag", msg.Tag),
			zap.Duration("due_at", msg.DueAt))
	})

	lp := looper.New(handler,
		looper.WithLogger(zlog),
		looper.WithMetrics(registry),
		looper.WithPollInterval(cfg.Looper.PollInterval),
		looper.WithStopTimeout(cfg.Looper.StopTimeout))

	sc, err := scenario.LoadFile(scenarioPath)
	if err != nil {
		return err
	}

	report, err := scenario.NewRunner(lp, zlog).Run(sc)
	if err != nil {
		return err
	}

	slog.Info("scenario complete",
		"scenario", report.Scenario,
		"steps", report.StepsRun,
		"dispatched", report.Dispatched,
		"auto_dispatched", report.AutoDispatched,
		"remaining", report.Remaining)
	return nil
}

func buildServiceLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
