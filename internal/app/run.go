package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/probe"
	"github.com/specialistvlad/posgridgo/internal/probe/remote"
	"github.com/specialistvlad/posgridgo/internal/runner"
)

// Run executes the loaded suite, writes the report to the app's output and
// returns an error if any program failed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.startServer()
	defer a.closeServer()

	probes := []probe.Factory{
		probe.NewMetrics(a.metrics).For,
		probe.NewLogger(a.logger, slog.LevelDebug).For,
	}
	if a.config.ProbeURL != "" {
		sink, err := remote.Dial(ctx, remote.Config{URL: a.config.ProbeURL, Namespace: a.config.ProbeNamespace})
		if err != nil {
			return fmt.Errorf("remote probe: %w", err)
		}
		defer func() {
			sink.Close()
			if n := sink.Dropped(); n > 0 {
				a.logger.Warn("Remote probe dropped events.", "count", n)
			}
		}()
		probes = append(probes, sink.For)
	}

	var treeOut io.Writer
	if a.config.DumpTree {
		treeOut = a.outW
	}
	r := runner.New(runner.Config{
		Workers: a.config.WorkerCount,
		Metrics: a.metrics,
		Probes:  probes,
		TreeOut: treeOut,
	})

	a.logger.Info("🚀 Running programs...", "programs", len(a.suite.Programs), "workers", a.config.WorkerCount)
	report, err := r.Run(ctx, a.suite)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	report.Write(a.outW)
	a.logger.Info("🏁 Execution finished.", "duration", report.Duration)

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d programs failed: %s", len(failed), len(report.Programs), strings.Join(failed, ", "))
	}
	return nil
}
