// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package runner executes a validated suite: it parses every program with the
// language instance of its mode, instruments it, invokes it on a pool of
// workers and checks the outcomes against the program's expectations.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/instrument"
	"github.com/specialistvlad/posgridgo/internal/language"
	"github.com/specialistvlad/posgridgo/internal/metrics"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/parser"
	"github.com/specialistvlad/posgridgo/internal/probe"
	"github.com/specialistvlad/posgridgo/internal/resultstore"
	"github.com/specialistvlad/posgridgo/internal/suite"
)

// Config configures a Runner.
type Config struct {
	// Workers is the number of concurrent invocations; values below 1 mean 1.
	Workers int
	// Metrics may be nil.
	Metrics *metrics.Collector
	// Store receives every outcome. A fresh in-memory store is used when nil.
	Store resultstore.Store
	// Probes are attached next to the recording probe of every program.
	Probes []probe.Factory
	// TreeOut, when set, receives the materialized tree of every program
	// after its runs.
	TreeOut io.Writer
}

// Runner runs suites. One Runner may run several suites, one at a time.
type Runner struct {
	cfg   Config
	store resultstore.Store

	mu    sync.Mutex
	langs map[node.Mode]*language.Language
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	store := cfg.Store
	if store == nil {
		store = resultstore.New()
	}
	return &Runner{
		cfg:   cfg,
		store: store,
		langs: make(map[node.Mode]*language.Language),
	}
}

// Store returns the store holding the outcomes of every run.
func (r *Runner) Store() resultstore.Store {
	return r.store
}

// language returns the shared instance configured for mode, creating it on
// first use.
func (r *Runner) language(ctx context.Context, mode int) (*language.Language, error) {
	m, err := node.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.langs[m]; ok {
		return l, nil
	}
	l, err := language.New(ctx, language.Options{PreMaterialize: mode}, r.cfg.Metrics)
	if err != nil {
		return nil, err
	}
	r.langs[m] = l
	return l, nil
}

// prepared is a program ready to be invoked.
type prepared struct {
	program  *suite.Program
	mode     node.Mode
	target   *node.CallTarget
	recorder *probe.Recorder
	binding  *instrument.Binding
	report   *ProgramReport
}

// Run executes every program of s and returns the report. The error is
// non-nil only when the run itself could not proceed, e.g. when ctx was
// canceled; failed expectations are recorded in the report.
func (r *Runner) Run(ctx context.Context, s *suite.Suite) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	defaults := s.Options()

	report := &Report{}
	var jobs []*prepared
	for _, p := range s.Programs {
		pr := &ProgramReport{Name: p.Name, Origin: p.Origin, Runs: p.Runs}
		report.Programs = append(report.Programs, pr)

		prep, err := r.prepare(ctx, p, defaults, pr)
		if err != nil {
			return nil, err
		}
		if prep != nil {
			jobs = append(jobs, prep)
		}
	}
	logger.Info("Programs prepared.", "programs", len(s.Programs), "invocable", len(jobs))

	if err := r.execute(ctx, jobs); err != nil {
		return nil, err
	}

	for _, prep := range jobs {
		if err := r.verify(ctx, prep); err != nil {
			return nil, err
		}
		if prep.program.CrossCheck {
			if err := r.crossCheck(ctx, prep); err != nil {
				return nil, err
			}
		}
		prep.binding.Detach()
		if r.cfg.TreeOut != nil {
			fmt.Fprintf(r.cfg.TreeOut, "%s: %s\n", prep.program.Name, node.Shape(prep.target.Root()))
		}
	}

	report.Duration = time.Since(start)
	logger.Info("Suite finished.", "programs", len(report.Programs), "failed", len(report.Failed()), "duration", report.Duration)
	return report, nil
}

// prepare parses and instruments p. It returns nil when the program is not
// to be invoked, i.e. when a syntax error was expected or parsing failed.
func (r *Runner) prepare(ctx context.Context, p *suite.Program, defaults language.Options, pr *ProgramReport) (*prepared, error) {
	logger := ctxlog.FromContext(ctx).With("program", p.Name)

	lang, err := r.language(ctx, p.Mode(defaults))
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", p.Name, err)
	}
	mode, _ := node.ParseMode(lang.Options().PreMaterialize)
	pr.Mode = mode

	target, err := lang.ParseString(ctx, p.Name, p.Source)
	if p.Expect.SyntaxErrorAt != nil {
		checkSyntaxError(pr, *p.Expect.SyntaxErrorAt, err)
		logger.Debug("Syntax error expectation checked.", "passed", pr.Passed())
		return nil, nil
	}
	if err != nil {
		pr.failf("unexpected parse failure: %v", err)
		return nil, nil
	}

	rec := probe.NewRecorder()
	factories := append([]probe.Factory{rec.For}, r.cfg.Probes...)
	binding, err := instrument.Attach(ctx, target, p.Instrument, probe.Multi(factories...))
	if err != nil {
		return nil, fmt.Errorf("program %q: attaching probes: %w", p.Name, err)
	}
	pr.Instrumented = binding.Len()
	for _, w := range binding.Wrappers() {
		logger.Debug("Probe attached.", "section", w.SourceSection().String(), "tags", w.Delegate().Tags().String())
	}
	logger.Debug("Program prepared.", "mode", mode.String(), "instrumented", pr.Instrumented)

	return &prepared{
		program:  p,
		mode:     mode,
		target:   target,
		recorder: rec,
		binding:  binding,
		report:   pr,
	}, nil
}

func checkSyntaxError(pr *ProgramReport, offset int, err error) {
	if err == nil {
		pr.failf("expected a syntax error at %d, parsing succeeded", offset)
		return
	}
	var syntaxErr *parser.SyntaxError
	if !errors.As(err, &syntaxErr) {
		pr.failf("expected a syntax error at %d, got: %v", offset, err)
		return
	}
	if syntaxErr.Offset != offset {
		pr.failf("expected a syntax error at %d, got one at %d: %v", offset, syntaxErr.Offset, syntaxErr)
	}
}
