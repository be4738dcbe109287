package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/tags"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SuitePaths []string // .hcl, .yaml and .yml files or directories
	Source     string   // ad-hoc program, run instead of suites

	// PreMaterialize overrides the suites' language options when set.
	PreMaterialize *int
	// Runs and Instrument apply to the ad-hoc program.
	Runs       int
	Instrument []tags.Capability
	DumpTree   bool

	LogFormat   string
	LogLevel    string
	MetricsPort int
	WorkerCount int

	ProbeURL       string
	ProbeNamespace string
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.SuitePaths) == 0 && cfg.Source == "" {
		return nil, errors.New("either a suite path or a source program is required")
	}
	if len(cfg.SuitePaths) > 0 && cfg.Source != "" {
		return nil, errors.New("suite paths and a source program are mutually exclusive")
	}
	if cfg.PreMaterialize != nil {
		if _, err := node.ParseMode(*cfg.PreMaterialize); err != nil {
			return nil, err
		}
	}
	if cfg.Runs < 0 {
		return nil, fmt.Errorf("runs must not be negative, got %d", cfg.Runs)
	}
	if cfg.Runs == 0 {
		cfg.Runs = 1
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return nil, fmt.Errorf("metrics port %d out of range", cfg.MetricsPort)
	}
	return &cfg, nil
}
