// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package probe provides the observers attached to wrapped nodes: an in-memory
// recorder, a structured logger, a metrics counter and a fan-out combinator.
//
// Every observer exposes For, a function with the shape of instrument.Factory,
// which builds the per-node probe when the instrumenter wraps a position.
package probe

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Kind is the type of an execution event.
type Kind int

const (
	Enter Kind = iota
	Return
	Error
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Return:
		return "return"
	case Error:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Factory builds the probe of one wrapped node.
type Factory = func(n *node.Base) node.Probe

// Event is one notification as seen by a probe.
type Event struct {
	Kind         Kind
	Frame        uuid.UUID
	Section      source.Section
	Tags         tags.Set
	Capabilities []tags.Capability
	// Result is set for Return events.
	Result cty.Value
	// Err is set for Error events.
	Err error
}

// site is the static part of an event, captured once per wrapped node.
type site struct {
	section source.Section
	tags    tags.Set
	caps    []tags.Capability
}

func siteOf(n *node.Base) site {
	return site{section: n.SourceSection(), tags: n.Tags(), caps: n.Tags().Capabilities()}
}

func (s site) event(kind Kind, f *node.Frame) Event {
	return Event{Kind: kind, Frame: f.ID, Section: s.section, Tags: s.tags, Capabilities: s.caps}
}

// FormatValue renders a result as JSON. The absent value renders as
// "<absent>".
func FormatValue(v cty.Value) string {
	if v == cty.NilVal {
		return "<absent>"
	}
	buf, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
	if err != nil {
		return v.GoString()
	}
	return string(buf)
}

// funcProbe adapts three callbacks to node.Probe.
type funcProbe struct {
	onEnter  func(*node.Frame)
	onReturn func(*node.Frame, cty.Value)
	onError  func(*node.Frame, error)
}

func (p funcProbe) OnEnter(f *node.Frame) { p.onEnter(f) }
func (p funcProbe) OnReturn(f *node.Frame, v cty.Value) { p.onReturn(f, v) }
func (p funcProbe) OnError(f *node.Frame, err error) { p.onError(f, err) }

// Multi fans every notification out to the probes built by factories, in
// order.
func Multi(factories ...Factory) Factory {
	return func(n *node.Base) node.Probe {
		probes := make([]node.Probe, 0, len(factories))
		for _, f := range factories {
			if f != nil {
				probes = append(probes, f(n))
			}
		}
		return funcProbe{
			onEnter: func(f *node.Frame) {
				for _, p := range probes {
					p.OnEnter(f)
				}
			},
			onReturn: func(f *node.Frame, v cty.Value) {
				for _, p := range probes {
					p.OnReturn(f, v)
				}
			},
			onError: func(f *node.Frame, err error) {
				for _, p := range probes {
					p.OnError(f, err)
				}
			},
		}
	}
}
