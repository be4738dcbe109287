package app

import (
	"context"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/language"
	"github.com/specialistvlad/posgridgo/internal/suite"
)

// sourceProgram names the program built from Config.Source.
const sourceProgram = "source"

// loadSuite reads the configured suite files, or wraps the ad-hoc source in
// a single-program suite, and applies the mode override to the suite and to
// every program in it.
func loadSuite(ctx context.Context, cfg *Config, loader suite.Loader) (*suite.Suite, error) {
	logger := ctxlog.FromContext(ctx)

	var s *suite.Suite
	if cfg.Source != "" {
		logger.Debug("Running ad-hoc source program.", "source", cfg.Source)
		s = &suite.Suite{Programs: []*suite.Program{{
			Name:       sourceProgram,
			Source:     cfg.Source,
			Origin:     "-source",
			Runs:       cfg.Runs,
			Instrument: cfg.Instrument,
		}}}
		if err := suite.Validate(s); err != nil {
			return nil, err
		}
	} else {
		var err error
		s, err = loader.Load(ctx, cfg.SuitePaths...)
		if err != nil {
			return nil, err
		}
	}

	if cfg.PreMaterialize != nil {
		logger.Debug("Overriding pre-materialization mode.", "pre_materialize", *cfg.PreMaterialize)
		s.Language = &language.Options{PreMaterialize: *cfg.PreMaterialize}
		for _, p := range s.Programs {
			p.PreMaterialize = nil
		}
	}
	return s, nil
}
