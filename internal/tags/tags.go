// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package tags maps the single-letter keywords of the language to the
// instrumentation capabilities a node can expose.
//
// Tags are an open alphabet: any letter is a legal tag, but only four of them
// resolve to a Capability. The function tag F marks a root unit and is not a
// capability.
package tags

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Function marks a descriptor that materializes into a root unit.
const Function rune = 'F'

// Capability is one of the fixed instrumentation roles a node can play.
type Capability int

const (
	// Call is exposed by nodes tagged with C.
	Call Capability = iota + 1
	// Expression is exposed by nodes tagged with E.
	Expression
	// BlockRoot is exposed by nodes tagged with B (a function body).
	BlockRoot
	// Statement is exposed by nodes tagged with S.
	Statement
)

// All lists every capability in table order.
var All = []Capability{Call, Expression, BlockRoot, Statement}

// byRune is the tag letter -> capability table. Letters absent from the table
// are valid tags without a capability.
var byRune = map[rune]Capability{
	'C': Call,
	'E': Expression,
	'B': BlockRoot,
	'S': Statement,
}

var names = map[Capability]string{
	Call:       "call",
	Expression: "expression",
	BlockRoot:  "root",
	Statement:  "statement",
}

// Lookup returns the capability a tag letter resolves to.
func Lookup(r rune) (Capability, bool) {
	c, ok := byRune[r]
	return c, ok
}

func (c Capability) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// ParseCapability accepts a capability name (case-insensitive, "block" is an
// alias of "root") or a single tag letter.
func ParseCapability(s string) (Capability, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		if c, ok := Lookup(r); ok {
			return c, nil
		}
		return 0, fmt.Errorf("tag %q does not map to a capability", s)
	}
	lower := strings.ToLower(s)
	if lower == "block" || lower == "block_root" {
		return BlockRoot, nil
	}
	for c, n := range names {
		if n == lower {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", s)
}

// ParseCapabilities parses a comma-separated list of capabilities. Empty
// entries are ignored and duplicates are dropped, keeping first-seen order.
func ParseCapabilities(list string) ([]Capability, error) {
	var out []Capability
	seen := make(map[Capability]struct{})
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCapability(part)
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

// Set is the ordered sequence of tag letters attached to a descriptor.
// Duplicates are kept.
type Set []rune

// NewSet builds a set from the letters of s.
func NewSet(s string) Set {
	return Set([]rune(s))
}

// Has reports whether the letter r is in the set.
func (s Set) Has(r rune) bool {
	for _, t := range s {
		if t == r {
			return true
		}
	}
	return false
}

// HasCapability reports whether any letter of the set maps to c.
func (s Set) HasCapability(c Capability) bool {
	for _, t := range s {
		if tc, ok := Lookup(t); ok && tc == c {
			return true
		}
	}
	return false
}

// Capabilities returns the distinct capabilities of the set in table order.
func (s Set) Capabilities() []Capability {
	var out []Capability
	for _, c := range All {
		if s.HasCapability(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsInstrumentable reports whether the set carries at least one tag.
func (s Set) IsInstrumentable() bool {
	return len(s) > 0
}

func (s Set) String() string {
	return string(s)
}
