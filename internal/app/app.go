package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/metrics"
	"github.com/specialistvlad/posgridgo/internal/suite"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	suite      *suite.Suite
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It builds the app's
// own logger and metrics registry and loads the programs to run. A suite that
// cannot be loaded is a fatal startup error and panics.
func NewApp(outW io.Writer, cfg *Config, loader suite.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	s, err := loadSuite(ctx, cfg, loader)
	if err != nil {
		panic(fmt.Errorf("failed to load suites: %w", err))
	}
	logger.Debug("Suite loaded.", "programs", len(s.Programs), "pre_materialize", s.Options().PreMaterialize)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		suite:    s,
		registry: reg,
		metrics:  metrics.New(reg),
	}
}

// Suite returns the loaded suite. This is primarily for testing.
func (a *App) Suite() *suite.Suite {
	return a.suite
}

// Metrics returns the application's collectors.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}
