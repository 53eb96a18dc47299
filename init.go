package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tournevent/pakettikauppa/internal/config"
	"github.com/tournevent/pakettikauppa/internal/telemetry"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// globalFlags override the environment configuration.
type globalFlags struct {
	profile  string
	testMode bool
	mock     bool
	port     int
}

var flags globalFlags

// environment is everything a command needs to build clients.
type environment struct {
	cfg      *config.Config
	logger   *otelzap.Logger
	tracer   trace.Tracer
	metrics  *telemetry.Metrics
	registry *prometheus.Registry
	shutdown func(context.Context) error
}

func setup(ctx context.Context) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return nil, err
	}

	shutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &environment{
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer(cfg.ServiceName),
		metrics:  telemetry.NewMetrics(registry),
		registry: registry,
		shutdown: shutdown,
	}, nil
}

func (e *environment) close(ctx context.Context) {
	_ = e.shutdown(ctx)
	_ = e.logger.Sync()
}

// newClient builds a fresh client; each goroutine or request gets its own.
func (e *environment) newClient(ctx context.Context) (*pakettikauppa.Client, error) {
	return pakettikauppa.New(e.cfg.ClientConfig(), e.logger, e.tracer, pakettikauppa.WithMetrics(e.metrics))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags.profile != "" {
		cfg.Profile = flags.profile
	}
	if flags.testMode {
		cfg.TestMode = true
	}
	if flags.mock {
		cfg.UseMock = true
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	// stdout carries command output.
	return telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat, "stderr")
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Attributes()...)
	return shutdown, err
}
