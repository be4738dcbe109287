package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/posgridgo/internal/app"
	"github.com/specialistvlad/posgridgo/internal/tags"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("posgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
posgrid - Runs and instruments programs of the positions bracket language.

Usage:
  posgrid [options] [SUITE_PATH...]
  posgrid [options] -source '{F{B{S}}}'

Arguments:
  SUITE_PATH
    Path to a .hcl, .yaml or .yml suite file, or a directory containing them.

Options (POSGRID_WORKERS, POSGRID_METRICS_PORT, POSGRID_LOG_FORMAT,
POSGRID_LOG_LEVEL and POSGRID_PROBE_URL set the defaults of their flags):
`)
		flagSet.PrintDefaults()
	}

	workersDefault, err := envInt("WORKERS", 10)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}
	metricsPortDefault, err := envInt("METRICS_PORT", 0)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	suiteFlag := flagSet.String("suite", "", "Path to the suite file or directory.")
	sFlag := flagSet.String("s", "", "Path to the suite file or directory (shorthand).")
	sourceFlag := flagSet.String("source", "", "Run a single program given as source text instead of suites.")
	preMaterializeFlag := flagSet.Int("pre-materialize", -1, "Pre-materialization mode: 0 (off), 1 (head) or 2 (tail). Overrides suite and per-program settings; -1 keeps them.")
	runsFlag := flagSet.Int("runs", 1, "Number of invocations of the -source program.")
	instrumentFlag := flagSet.String("instrument", "", "Comma-separated capabilities to observe in the -source program (e.g. 'statement,E'). Empty observes every instrumentable position.")
	dumpTreeFlag := flagSet.Bool("dump-tree", false, "Print the materialized tree of every program.")
	workersFlag := flagSet.Int("workers", workersDefault, "Number of concurrent invocations.")
	metricsPortFlag := flagSet.Int("metrics-port", metricsPortDefault, "Port for the /health and /metrics HTTP server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", envString("LOG_FORMAT", "text"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", envString("LOG_LEVEL", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	probeURLFlag := flagSet.String("probe-url", envString("PROBE_URL", ""), "socket.io server receiving probe events (e.g. 'http://localhost:3000'). Empty disables streaming.")
	probeNamespaceFlag := flagSet.String("probe-namespace", "/", "socket.io namespace for probe events.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	if *suiteFlag != "" {
		paths = append(paths, *suiteFlag)
	} else if *sFlag != "" {
		paths = append(paths, *sFlag)
	}
	paths = append(paths, flagSet.Args()...)
	slog.Debug("Suite paths determined.", "paths", paths)

	if len(paths) == 0 && *sourceFlag == "" {
		slog.Debug("Nothing to run, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	var preMaterialize *int
	if *preMaterializeFlag != -1 {
		preMaterialize = preMaterializeFlag
	}

	instrument, err := tags.ParseCapabilities(*instrumentFlag)
	if err != nil {
		return nil, false, usageError("invalid instrument: %v", err)
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		SuitePaths:     paths,
		Source:         *sourceFlag,
		PreMaterialize: preMaterialize,
		Runs:           *runsFlag,
		Instrument:     instrument,
		DumpTree:       *dumpTreeFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		MetricsPort:    *metricsPortFlag,
		WorkerCount:    *workersFlag,
		ProbeURL:       *probeURLFlag,
		ProbeNamespace: *probeNamespaceFlag,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
