package node

import (
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"
)

// owner records the parent a node is attached to. A node gets a parent at
// most once; re-adopting by the same parent is a no-op.
type owner struct {
	parent atomic.Pointer[parentRef]
}

type parentRef struct {
	node Node
}

// Parent returns the node owning this one, or nil for a detached node.
func (o *owner) Parent() Node {
	if ref := o.parent.Load(); ref != nil {
		return ref.node
	}
	return nil
}

func (o *owner) adopt(p Node) {
	if o.parent.CompareAndSwap(nil, &parentRef{node: p}) {
		return
	}
	if o.Parent() != p {
		panic("node: node is already owned by another parent")
	}
}

type adoptable interface {
	adopt(p Node)
}

// slot is one swappable position in a child list.
type slot struct {
	cur atomic.Pointer[slotValue]
}

type slotValue struct {
	node Node
}

func (s *slot) load() Node {
	if v := s.cur.Load(); v != nil {
		return v.node
	}
	return nil
}

// childList is the once-published list of slots of a Root or Base.
type childList struct {
	slots atomic.Pointer[[]*slot]
}

func (l *childList) resolved() bool {
	return l.slots.Load() != nil
}

func (l *childList) load() []*slot {
	if p := l.slots.Load(); p != nil {
		return *p
	}
	return nil
}

// publish installs nodes as the child list of p. When several callers race,
// only the first list is published and only its nodes are adopted by p; the
// losers' lists are dropped. It returns the published slots.
func (l *childList) publish(p Node, nodes []Node) []*slot {
	slots := make([]*slot, len(nodes))
	for i, n := range nodes {
		slots[i] = &slot{}
		if n != nil {
			slots[i].cur.Store(&slotValue{node: n})
		}
	}
	if !l.slots.CompareAndSwap(nil, &slots) {
		return l.load()
	}
	for _, n := range nodes {
		if a, ok := n.(adoptable); ok {
			a.adopt(p)
		}
	}
	return slots
}

func (l *childList) nodes() []Node {
	slots := l.load()
	if slots == nil {
		return nil
	}
	out := make([]Node, len(slots))
	for i, s := range slots {
		out[i] = s.load()
	}
	return out
}

func (l *childList) replace(p Node, old, replacement Node) bool {
	for _, s := range l.load() {
		cur := s.cur.Load()
		if cur == nil || cur.node != old {
			continue
		}
		if !s.cur.CompareAndSwap(cur, &slotValue{node: replacement}) {
			return false
		}
		if a, ok := replacement.(adoptable); ok {
			a.adopt(p)
		}
		return true
	}
	return false
}

// executeSlots runs every present child in order and keeps the last result
// that is neither absent nor the sentinel.
func executeSlots(ctx *Context, f *Frame, slots []*slot) (cty.Value, error) {
	result := ctx.Null
	for _, s := range slots {
		child := s.load()
		if child == nil {
			continue
		}
		v, err := child.Execute(f)
		if err != nil {
			return cty.NilVal, err
		}
		if v == cty.NilVal || ctx.IsNull(v) {
			continue
		}
		result = v
	}
	return result, nil
}
