// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package node holds the executable side of a program: the nodes materialized
// from descriptors, the engine that materializes them and the wrapper that lets
// a probe observe a node without changing what it returns.
//
// Variants:
//
//	*Root     top-level unit; always instrumentable, children resolved up front
//	*Call     invocation proxy for a *CallTarget (one per F-tagged descriptor)
//	*Base     everything else; children resolved on first execution
//	*Wrapper  probe decoration around an instrumentable *Base
package node

import (
	"errors"

	"github.com/google/uuid"
	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
)

// ErrNotInstrumentable is returned when a wrapper is requested for a node
// without tags.
var ErrNotInstrumentable = errors.New("node is not instrumentable")

// Node is anything that can sit in a child slot.
type Node interface {
	// Execute runs the node against the frame of the current call. A result of
	// cty.NilVal means "no result" and is skipped by the parent.
	Execute(f *Frame) (cty.Value, error)
	SourceSection() source.Section
	IsInstrumentable() bool
	HasTag(c tags.Capability) bool
}

// Parent is a node that owns an ordered list of child slots.
type Parent interface {
	Node
	// Children returns the nodes currently sitting in the slots, or nil if the
	// list has not been resolved yet.
	Children() []Node
	// ReplaceChild swaps old for replacement in the slot that holds old. It
	// reports false if no slot holds old any more.
	ReplaceChild(old, replacement Node) bool
}

// Frame is the per-call execution context.
type Frame struct {
	ID   uuid.UUID
	Args []cty.Value
}

// NewFrame creates a frame with a fresh invocation ID.
func NewFrame(args ...cty.Value) *Frame {
	return &Frame{ID: uuid.New(), Args: args}
}

// Probe receives execution events of one wrapped node.
type Probe interface {
	OnEnter(f *Frame)
	OnReturn(f *Frame, result cty.Value)
	OnError(f *Frame, err error)
}
