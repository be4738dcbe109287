package node

import (
	"github.com/specialistvlad/posgridgo/internal/descriptor"
	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
)

// Root is a top-level unit. Its children are resolved when it is built.
type Root struct {
	engine   *Engine
	desc     *descriptor.Descriptor
	children childList
}

func newRoot(e *Engine, d *descriptor.Descriptor) *Root {
	r := &Root{engine: e, desc: d}
	r.children.publish(r, e.resolveChildren(d))
	return r
}

func (r *Root) Execute(f *Frame) (cty.Value, error) {
	return executeSlots(r.engine.ctx, f, r.children.load())
}

func (r *Root) SourceSection() source.Section { return r.desc.Section() }

// IsInstrumentable is always true for a root.
func (r *Root) IsInstrumentable() bool { return true }

func (r *Root) HasTag(c tags.Capability) bool { return r.desc.Tags.HasCapability(c) }

func (r *Root) Children() []Node { return r.children.nodes() }

func (r *Root) ReplaceChild(old, replacement Node) bool {
	return r.children.replace(r, old, replacement)
}

// Descriptor returns the descriptor the root was built from.
func (r *Root) Descriptor() *descriptor.Descriptor { return r.desc }

// CallTarget is the prepared, invocable form of a Root.
type CallTarget struct {
	root *Root
}

// Root returns the unit the target invokes.
func (t *CallTarget) Root() *Root { return t.root }

// Call executes the root in a new frame.
func (t *CallTarget) Call(args ...cty.Value) (cty.Value, error) {
	return t.root.Execute(NewFrame(args...))
}

// Null returns the sentinel of the target's language instance.
func (t *CallTarget) Null() cty.Value { return t.root.engine.ctx.Null }

// Call is the invocation proxy materialized for an F-tagged descriptor.
type Call struct {
	owner
	target *CallTarget
}

func newCall(t *CallTarget) *Call {
	return &Call{target: t}
}

// Execute invokes the target in a fresh frame; the caller's arguments are not
// forwarded.
func (c *Call) Execute(*Frame) (cty.Value, error) {
	return c.target.Call()
}

func (c *Call) SourceSection() source.Section { return c.target.root.SourceSection() }

// IsInstrumentable is false: the proxy itself is never wrapped, its root is.
func (c *Call) IsInstrumentable() bool { return false }

func (c *Call) HasTag(tags.Capability) bool { return false }

// Target returns the invoked unit.
func (c *Call) Target() *CallTarget { return c.target }
