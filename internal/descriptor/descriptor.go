// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package descriptor defines the parse-time record of one syntactic construct:
// its tags, its source range and its children.
//
// A descriptor also owns the create-once cell that caches the executable node
// built from it. The cell is the only mutable state left once parsing is done,
// and it is contended only by callers resolving that same descriptor; there is
// no lock spanning more than one descriptor.
package descriptor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
)

// Descriptor is one node of the parse tree.
type Descriptor struct {
	Tags   tags.Set
	Source *source.Source
	// Start and End are inclusive byte offsets. End is -1 until the closing
	// delimiter has been consumed.
	Start int
	End   int

	children []*Descriptor

	mu   sync.Mutex
	memo atomic.Pointer[cell]
}

// cell boxes the materialized value so it can be published atomically.
type cell struct {
	value any
}

// New creates an open descriptor starting at start.
func New(tagSet tags.Set, src *source.Source, start int) *Descriptor {
	return &Descriptor{Tags: tagSet, Source: src, Start: start, End: -1}
}

// AddChild appends a child in document order.
func (d *Descriptor) AddChild(child *Descriptor) {
	d.children = append(d.children, child)
}

// Close fixes the end offset once the closing delimiter is consumed.
func (d *Descriptor) Close(end int) {
	d.End = end
}

// Children returns the child descriptors in document order. The slice must
// not be modified.
func (d *Descriptor) Children() []*Descriptor {
	return d.children
}

// HasTag reports whether the letter r is one of the descriptor's tags.
func (d *Descriptor) HasTag(r rune) bool {
	return d.Tags.Has(r)
}

// IsInstrumentable reports whether the descriptor carries at least one tag.
func (d *Descriptor) IsInstrumentable() bool {
	return d.Tags.IsInstrumentable()
}

// Section returns the source range covered by the descriptor.
func (d *Descriptor) Section() source.Section {
	return d.Source.Section(d.Start, d.End)
}

// Materialize returns the value cached in the descriptor's cell, calling
// create to build it on first use. Concurrent first calls are serialized on
// the descriptor's own mutex so create runs at most once and every caller
// observes the same published value.
//
// create may materialize other descriptors (the children of this one), but it
// must never call back into this descriptor.
func (d *Descriptor) Materialize(create func(*Descriptor) any) any {
	if c := d.memo.Load(); c != nil {
		return c.value
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if c := d.memo.Load(); c != nil {
		return c.value
	}
	v := create(d)
	d.memo.Store(&cell{value: v})
	return v
}

// Materialized returns the cached value without creating it.
func (d *Descriptor) Materialized() (any, bool) {
	c := d.memo.Load()
	if c == nil {
		return nil, false
	}
	return c.value, true
}

// Walk visits d and its descendants. pre is called before a descriptor's
// children and post after them; either may be nil.
func (d *Descriptor) Walk(pre, post func(*Descriptor)) {
	if pre != nil {
		pre(d)
	}
	for _, ch := range d.children {
		ch.Walk(pre, post)
	}
	if post != nil {
		post(d)
	}
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("Descriptor(%s <%d - %d>)", d.Tags, d.Start, d.End)
}
