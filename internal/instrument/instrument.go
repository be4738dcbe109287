// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package instrument plays the host side of the wrapper protocol: it forces a
// tree to materialize, wraps the positions matching a capability filter and
// can later restore the original nodes.
package instrument

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/tags"
)

// Factory creates the probe for one wrapped node.
type Factory func(n *node.Base) node.Probe

// Binding is the set of wrappers inserted by one Attach call.
type Binding struct {
	mu         sync.Mutex
	insertions []insertion
}

type insertion struct {
	parent   node.Parent
	original *node.Base
	wrapper  *node.Wrapper
}

// Attach wraps every instrumentable base node under target whose capabilities
// intersect filter; an empty filter selects every instrumentable base node.
// Nested units reached through call proxies are included. Positions already
// holding a wrapper are left alone.
//
// On error nothing stays attached.
func Attach(ctx context.Context, target *node.CallTarget, filter []tags.Capability, factory Factory) (*Binding, error) {
	logger := ctxlog.FromContext(ctx)

	w := &walker{ctx: ctx, filter: filter}
	if err := w.visitParent(target.Root()); err != nil {
		return nil, err
	}

	b := &Binding{}
	for _, ins := range w.found {
		wrapper, err := ins.original.CreateWrapper(factory(ins.original))
		if err != nil {
			b.Detach()
			return nil, fmt.Errorf("wrapping %s: %w", ins.original.SourceSection(), err)
		}
		if !ins.parent.ReplaceChild(ins.original, wrapper) {
			logger.Warn("Position changed while attaching, skipped.", "section", ins.original.SourceSection().String())
			continue
		}
		ins.wrapper = wrapper
		b.insertions = append(b.insertions, ins)
	}

	logger.Debug("Probes attached.", "section", target.Root().SourceSection().String(), "count", len(b.insertions), "filter", fmt.Sprint(filter))
	return b, nil
}

// Len reports how many wrappers are currently inserted by the binding.
func (b *Binding) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.insertions)
}

// Wrappers returns the wrappers inserted by the binding in tree order.
func (b *Binding) Wrappers() []*node.Wrapper {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*node.Wrapper, len(b.insertions))
	for i, ins := range b.insertions {
		out[i] = ins.wrapper
	}
	return out
}

// Detach puts the original nodes back and returns how many were restored.
// Calling it again is a no-op.
func (b *Binding) Detach() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	restored := 0
	for i := len(b.insertions) - 1; i >= 0; i-- {
		ins := b.insertions[i]
		if ins.parent.ReplaceChild(ins.wrapper, ins.original) {
			restored++
		}
	}
	b.insertions = nil
	return restored
}

// walker collects the positions to wrap. It does not modify the tree beyond
// materializing it.
type walker struct {
	ctx    context.Context
	filter []tags.Capability
	found  []insertion
}

func (w *walker) visitParent(p node.Parent) error {
	for _, child := range p.Children() {
		if child == nil {
			continue
		}
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if err := w.visit(p, child); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visit(parent node.Parent, n node.Node) error {
	switch v := n.(type) {
	case *node.Call:
		return w.visitParent(v.Target().Root())
	case *node.Wrapper:
		return w.visitParent(v.Delegate())
	case *node.Base:
		v.MaterializeForInstrumentation(w.filter)
		if w.matches(v) {
			w.found = append(w.found, insertion{parent: parent, original: v})
		}
		return w.visitParent(v)
	}
	return nil
}

func (w *walker) matches(b *node.Base) bool {
	if !b.IsInstrumentable() {
		return false
	}
	if len(w.filter) == 0 {
		return true
	}
	for _, c := range w.filter {
		if b.HasTag(c) {
			return true
		}
	}
	return false
}
