// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package language is the host-facing entry point: it turns source text into
// an invocable CallTarget using one fixed configuration.
package language

import (
	"context"
	"fmt"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/metrics"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/parser"
	"github.com/specialistvlad/posgridgo/internal/source"
)

// Options configures a language instance.
type Options struct {
	// PreMaterialize selects eager materialization: 0 off, 1 head, 2 tail.
	PreMaterialize int `hcl:"pre_materialize,optional" yaml:"pre_materialize"`
}

// Language is one configured instance. It is safe for concurrent use.
type Language struct {
	opts   Options
	engine *node.Engine
}

// New validates opts and creates an instance. The logger is taken from ctx;
// m may be nil.
func New(ctx context.Context, opts Options, m *metrics.Collector) (*Language, error) {
	mode, err := node.ParseMode(opts.PreMaterialize)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("pre_materialize", mode.String())
	return &Language{
		opts:   opts,
		engine: node.NewEngine(node.NewContext(mode), logger, m),
	}, nil
}

// Options returns the options the instance was created with.
func (l *Language) Options() Options {
	return l.opts
}

// Engine returns the instance's materialization engine.
func (l *Language) Engine() *node.Engine {
	return l.engine
}

// Parse builds the descriptor tree of src, runs the pre-materialization pass
// if one is configured and returns the invocable root. A malformed source
// yields a *parser.SyntaxError and materializes nothing.
func (l *Language) Parse(ctx context.Context, src *source.Source) (*node.CallTarget, error) {
	logger := ctxlog.FromContext(ctx)

	root, err := parser.Parse(src)
	if err != nil {
		logger.Debug("Source rejected.", "source", src.Name, "error", err)
		return nil, fmt.Errorf("parsing %s: %w", sourceName(src), err)
	}
	l.engine.PreMaterialize(root)

	call, ok := l.engine.Resolve(root).(*node.Call)
	if !ok {
		// The parser always tags the implicit root with F.
		panic(fmt.Sprintf("language: root of %s did not materialize into a call proxy", sourceName(src)))
	}
	logger.Debug("Source parsed.", "source", src.Name, "top_level", len(root.Children()))
	return call.Target(), nil
}

// ParseString is a shorthand for Parse(ctx, source.New(name, text)).
func (l *Language) ParseString(ctx context.Context, name, text string) (*node.CallTarget, error) {
	return l.Parse(ctx, source.New(name, text))
}

func sourceName(src *source.Source) string {
	if src.Name == "" {
		return "<unknown>"
	}
	return src.Name
}
