// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package suite defines the format-agnostic model of a program suite: a set of
// named bracket programs together with how to run them and what to expect.
//
// Suites are written in HCL or YAML; each format has its own Decoder and
// MultiLoader dispatches files to them by extension.
package suite

import (
	"fmt"

	"github.com/specialistvlad/posgridgo/internal/language"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/runid"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
)

// Suite is a validated collection of programs.
type Suite struct {
	// Language holds the default options of every program. It is nil when no
	// file configured it.
	Language *language.Options
	Programs []*Program
}

// Program is one bracket program and its expectations.
type Program struct {
	Name   string
	Source string
	// Origin names the file the program came from.
	Origin string
	// PreMaterialize overrides the suite's mode when set.
	PreMaterialize *int
	// Runs is the number of invocations; it defaults to 1.
	Runs int
	// Args are passed to every invocation.
	Args []cty.Value
	// Instrument selects the positions observed by the recording probe. An
	// empty list observes every instrumentable position.
	Instrument []tags.Capability
	// CrossCheck also runs the program under every pre-materialization mode
	// and requires identical trees and results.
	CrossCheck bool
	Expect     Expect
}

// Expect describes the outcome a program must produce.
type Expect struct {
	// Empty requires every invocation to return the sentinel.
	Empty bool
	// Result, when not cty.NilVal, must be raw-equal to every invocation's result.
	Result cty.Value
	// SyntaxErrorAt requires parsing to fail at this byte offset.
	SyntaxErrorAt *int
	// ProbeEntries is the expected number of entries per invocation for each
	// capability.
	ProbeEntries map[tags.Capability]int
}

// Mode returns the pre-materialization mode the program runs with.
func (p *Program) Mode(defaults language.Options) int {
	if p.PreMaterialize != nil {
		return *p.PreMaterialize
	}
	return defaults.PreMaterialize
}

// Options returns the language options of the suite, falling back to the zero
// options.
func (s *Suite) Options() language.Options {
	if s.Language == nil {
		return language.Options{}
	}
	return *s.Language
}

// Merge appends other's programs to s. Both suites may configure the
// language only if they agree.
func (s *Suite) Merge(other *Suite) error {
	if other.Language != nil {
		if s.Language != nil && *s.Language != *other.Language {
			return fmt.Errorf("conflicting language options: %+v and %+v", *s.Language, *other.Language)
		}
		opts := *other.Language
		s.Language = &opts
	}
	s.Programs = append(s.Programs, other.Programs...)
	return nil
}

// Validate checks the suite for errors a runner cannot recover from, and
// fills in defaults.
func Validate(s *Suite) error {
	if _, err := node.ParseMode(s.Options().PreMaterialize); err != nil {
		return fmt.Errorf("language: %w", err)
	}

	seen := make(map[string]string)
	for _, p := range s.Programs {
		if p.Name == "" {
			return fmt.Errorf("%s: program without a name", p.Origin)
		}
		if !runid.ValidProgramName(p.Name) {
			return fmt.Errorf("%s: invalid program name %q: use letters, digits, '_' and '-'", p.Origin, p.Name)
		}
		if origin, dup := seen[p.Name]; dup {
			return fmt.Errorf("%s: program %q is already defined in %s", p.Origin, p.Name, origin)
		}
		seen[p.Name] = p.Origin

		if p.Source == "" {
			return fmt.Errorf("program %q: source must not be empty", p.Name)
		}
		if p.PreMaterialize != nil {
			if _, err := node.ParseMode(*p.PreMaterialize); err != nil {
				return fmt.Errorf("program %q: %w", p.Name, err)
			}
		}
		if p.Runs < 0 {
			return fmt.Errorf("program %q: runs must not be negative, got %d", p.Name, p.Runs)
		}
		if p.Runs == 0 {
			p.Runs = 1
		}
		for c, n := range p.Expect.ProbeEntries {
			if n < 0 {
				return fmt.Errorf("program %q: probe entries for %s must not be negative", p.Name, c)
			}
		}
		if p.Expect.SyntaxErrorAt != nil && (p.Expect.Empty || p.Expect.Result != cty.NilVal) {
			return fmt.Errorf("program %q: a syntax error expectation excludes result expectations", p.Name)
		}
	}
	return nil
}

// ParseProbeEntries converts capability-keyed counts as written in suite
// files into a typed map.
func ParseProbeEntries(raw map[string]int) (map[tags.Capability]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[tags.Capability]int, len(raw))
	for k, v := range raw {
		c, err := tags.ParseCapability(k)
		if err != nil {
			return nil, err
		}
		out[c] += v
	}
	return out, nil
}

// ParseInstrument converts capability names as written in suite files.
func ParseInstrument(raw []string) ([]tags.Capability, error) {
	var out []tags.Capability
	seen := make(map[tags.Capability]struct{})
	for _, s := range raw {
		c, err := tags.ParseCapability(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
