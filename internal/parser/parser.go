// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package parser turns bracket notation into a descriptor tree.
//
// The grammar is fixed:
//
//	{TAGS children...}   one descriptor carrying every letter of TAGS
//	[TAGS children...]   one descriptor per letter, chained parent -> child;
//	                     children attach to the last link, the first is returned
//
// Whitespace between constructs is ignored. The whole text is wrapped in an
// implicit root descriptor tagged F, so a program never needs its own
// function construct.
//
// An example program:
//
//	{F
//	  {B
//	    {S}
//	    {SE  }
//	    {S{E}{E}}
//	    [SFB{E}]
//	    { }
//	  }
//	}
package parser

import (
	"fmt"
	"unicode"

	"github.com/specialistvlad/posgridgo/internal/descriptor"
	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
)

// EOF is reported as the offending character when the text ends early.
const EOF rune = -1

// MaxDepth bounds construct nesting so malformed input cannot exhaust the
// goroutine stack.
const MaxDepth = 10000

// SyntaxError reports malformed input. Offset is a byte offset into the
// source text.
type SyntaxError struct {
	Offset   int
	Char     rune
	Expected string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expecting %s at position %d character: %s", e.Expected, e.Offset, charString(e.Char))
}

func charString(r rune) string {
	if r == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%q", r)
}

// cursor is the parse position over a source. It is owned by one Parse call.
type cursor struct {
	src   *source.Source
	pos   int
	depth int
}

// Parse builds the descriptor tree of src. The returned root is tagged F and
// spans the whole text; its children are the top-level constructs.
func Parse(src *source.Source) (*descriptor.Descriptor, error) {
	root := descriptor.New(tags.Set{tags.Function}, src, 0)
	root.Close(src.Len() - 1)

	c := &cursor{src: src}
	for {
		nd, err := c.nextNode()
		if err != nil {
			return nil, err
		}
		if nd == nil {
			break
		}
		root.AddChild(nd)
	}
	return root, nil
}

// ParseString is a shorthand for Parse(source.New(name, text)).
func ParseString(name, text string) (*descriptor.Descriptor, error) {
	return Parse(source.New(name, text))
}

// nextNode parses one construct. It returns nil without an error when the
// text is exhausted.
func (c *cursor) nextNode() (*descriptor.Descriptor, error) {
	c.skipWhiteSpace()
	start := c.pos

	ch := c.current()
	if ch == EOF {
		return nil, nil
	}
	if ch != '{' && ch != '[' {
		return nil, c.errorf("'{' or '['")
	}
	list := ch == '['
	c.next()

	var first, last *descriptor.Descriptor
	var chain []*descriptor.Descriptor
	if !list {
		var set tags.Set
		for isTag(c.current()) {
			set = append(set, c.current())
			c.next()
		}
		first = descriptor.New(set, c.src, start)
		last = first
		chain = []*descriptor.Descriptor{first}
	} else {
		for isTag(c.current()) {
			d := descriptor.New(tags.Set{c.current()}, c.src, start)
			if first == nil {
				first = d
			} else {
				last.AddChild(d)
			}
			last = d
			chain = append(chain, d)
			c.next()
		}
		if first == nil {
			return nil, c.errorf("a tag letter")
		}
	}

	c.depth++
	if c.depth > MaxDepth {
		return nil, c.errorf(fmt.Sprintf("at most %d nested constructs", MaxDepth))
	}
	c.skipWhiteSpace()
	for ch := c.current(); ch == '{' || ch == '['; ch = c.current() {
		child, err := c.nextNode()
		if err != nil {
			return nil, err
		}
		last.AddChild(child)
		c.skipWhiteSpace()
	}
	c.depth--

	closing := '}'
	if list {
		closing = ']'
	}
	if c.current() != closing {
		return nil, c.errorf(fmt.Sprintf("'%c'", closing))
	}
	for _, d := range chain {
		d.Close(c.pos)
	}
	c.next()
	return first, nil
}

func (c *cursor) skipWhiteSpace() {
	for unicode.IsSpace(c.current()) {
		c.next()
	}
}

func (c *cursor) current() rune {
	r, width := c.src.RuneAt(c.pos)
	if width == 0 {
		return EOF
	}
	return r
}

func (c *cursor) next() {
	_, width := c.src.RuneAt(c.pos)
	if width == 0 {
		width = 1
	}
	c.pos += width
}

func (c *cursor) errorf(expected string) *SyntaxError {
	return &SyntaxError{Offset: c.pos, Char: c.current(), Expected: expected}
}

func isTag(r rune) bool {
	return r != EOF && unicode.IsLetter(r)
}
