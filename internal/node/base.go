package node

import (
	"sync/atomic"

	"github.com/specialistvlad/posgridgo/internal/descriptor"
	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
)

// Base is the general node. Its children stay unresolved until the first
// execution or until the instrumenter asks for them.
type Base struct {
	owner
	engine   *Engine
	desc     *descriptor.Descriptor
	children childList
	// subtree is set once every untagged descendant has its children
	// published.
	subtree atomic.Bool
}

func newBase(e *Engine, d *descriptor.Descriptor) *Base {
	return &Base{engine: e, desc: d}
}

func (b *Base) Execute(f *Frame) (cty.Value, error) {
	return executeSlots(b.engine.ctx, f, b.assureChildrenResolved(false))
}

// assureChildrenResolved publishes the child list if needed and returns it.
// In recursive mode it also resolves the lists of untagged base children, once
// per subtree.
func (b *Base) assureChildrenResolved(recursive bool) []*slot {
	slots := b.children.load()
	if slots == nil {
		slots = b.children.publish(b, b.engine.resolveChildren(b.desc))
	}
	if !recursive || b.subtree.Load() {
		return slots
	}
	for _, s := range slots {
		if child, ok := s.load().(*Base); ok && !child.IsInstrumentable() {
			child.assureChildrenResolved(true)
		}
	}
	b.subtree.Store(true)
	return slots
}

func (b *Base) SourceSection() source.Section { return b.desc.Section() }

func (b *Base) IsInstrumentable() bool { return b.desc.IsInstrumentable() }

func (b *Base) HasTag(c tags.Capability) bool { return b.desc.Tags.HasCapability(c) }

// Tags returns the raw tag letters of the node.
func (b *Base) Tags() tags.Set { return b.desc.Tags }

func (b *Base) Children() []Node { return b.children.nodes() }

// ChildrenResolved reports whether the child list has been published.
func (b *Base) ChildrenResolved() bool { return b.children.resolved() }

func (b *Base) ReplaceChild(old, replacement Node) bool {
	return b.children.replace(b, old, replacement)
}

// Descriptor returns the descriptor the node was built from.
func (b *Base) Descriptor() *descriptor.Descriptor { return b.desc }

// MaterializeForInstrumentation resolves the whole subtree below b so every
// instrumentable position is a concrete node, and returns b. The requested
// capabilities do not narrow the resolution.
func (b *Base) MaterializeForInstrumentation(caps []tags.Capability) Node {
	b.assureChildrenResolved(true)
	return b
}

// CreateWrapper returns a wrapper that reports b's executions to p.
func (b *Base) CreateWrapper(p Probe) (*Wrapper, error) {
	if !b.IsInstrumentable() {
		return nil, ErrNotInstrumentable
	}
	return &Wrapper{delegate: b, probe: p}, nil
}
