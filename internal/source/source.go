// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package source holds program text and the inclusive byte ranges (sections)
// that descriptors and nodes report back to instrumentation hosts.
package source

import (
	"fmt"
	"unicode/utf8"
)

// Source is a named, immutable blob of program text.
type Source struct {
	Name string
	Text string
}

// New creates a source with the given name and text.
func New(name, text string) *Source {
	return &Source{Name: name, Text: text}
}

// Len returns the length of the text in bytes.
func (s *Source) Len() int {
	return len(s.Text)
}

// Section returns the inclusive range [start, end] of the source.
func (s *Source) Section(start, end int) Section {
	return Section{Source: s, Start: start, End: end}
}

// Section is an inclusive byte range of a Source. A section whose End is
// before its Start is empty; that only happens for the implicit root of an
// empty program.
type Section struct {
	Source *Source
	Start  int
	End    int
}

// Length returns the number of bytes covered by the section.
func (s Section) Length() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// IsEmpty reports whether the section covers no bytes.
func (s Section) IsEmpty() bool {
	return s.Length() == 0
}

// Text returns the characters covered by the section.
func (s Section) Text() string {
	if s.Source == nil || s.IsEmpty() {
		return ""
	}
	end := min(s.End+1, len(s.Source.Text))
	start := max(s.Start, 0)
	if start >= end {
		return ""
	}
	return s.Source.Text[start:end]
}

// Equal reports whether both sections cover the same range of the same source.
func (s Section) Equal(other Section) bool {
	return s.Source == other.Source && s.Start == other.Start && s.End == other.End
}

// String renders the section as `name:<start-end>`.
func (s Section) String() string {
	name := "<unknown>"
	if s.Source != nil && s.Source.Name != "" {
		name = s.Source.Name
	}
	return fmt.Sprintf("%s:<%d-%d>", name, s.Start, s.End)
}

// RuneAt decodes the rune starting at byte offset off. It returns
// utf8.RuneError and a zero width when off is outside the text.
func (s *Source) RuneAt(off int) (rune, int) {
	if off < 0 || off >= len(s.Text) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.Text[off:])
}
