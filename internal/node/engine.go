package node

import (
	"log/slog"

	"github.com/specialistvlad/posgridgo/internal/descriptor"
	"github.com/specialistvlad/posgridgo/internal/metrics"
	"github.com/specialistvlad/posgridgo/internal/tags"
)

// Engine materializes descriptors into nodes. One engine serves one language
// instance; it holds no per-tree state, the memoization lives in the
// descriptors themselves.
type Engine struct {
	ctx     *Context
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewEngine creates an engine. m may be nil.
func NewEngine(ctx *Context, logger *slog.Logger, m *metrics.Collector) *Engine {
	if logger == nil {
		panic("node: NewEngine requires a logger")
	}
	return &Engine{ctx: ctx, logger: logger, metrics: m}
}

// Context returns the engine's context.
func (e *Engine) Context() *Context {
	return e.ctx
}

// Resolve returns the node of d, creating it on first use. Every caller, from
// any goroutine, gets the same node for the same descriptor.
func (e *Engine) Resolve(d *descriptor.Descriptor) Node {
	return d.Materialize(e.create).(Node)
}

// create builds the node of d. It runs under d's cell lock, at most once per
// descriptor.
func (e *Engine) create(d *descriptor.Descriptor) any {
	if d.HasTag(tags.Function) {
		root := newRoot(e, d)
		e.materialized(metrics.KindRoot, d)
		call := newCall(&CallTarget{root: root})
		e.materialized(metrics.KindCall, d)
		return call
	}
	b := newBase(e, d)
	e.materialized(metrics.KindBase, d)
	return b
}

func (e *Engine) materialized(kind string, d *descriptor.Descriptor) {
	e.metrics.Materialized(kind)
	e.logger.Debug("Materialized node.", "kind", kind, "tags", d.Tags.String(), "section", d.Section().String())
}

// resolveChildren resolves the children of d in document order.
func (e *Engine) resolveChildren(d *descriptor.Descriptor) []Node {
	children := d.Children()
	out := make([]Node, 0, len(children))
	for _, cd := range children {
		out = append(out, e.Resolve(cd))
	}
	return out
}

// PreMaterialize resolves every descriptor of the tree in the order selected
// by the context. It does nothing in ModeOff.
func (e *Engine) PreMaterialize(root *descriptor.Descriptor) {
	resolve := func(d *descriptor.Descriptor) { e.Resolve(d) }
	switch e.ctx.PreMaterialize {
	case ModeHead:
		root.Walk(resolve, nil)
	case ModeTail:
		root.Walk(nil, resolve)
	default:
		return
	}
	e.logger.Debug("Pre-materialized tree.", "mode", e.ctx.PreMaterialize.String(), "section", root.Section().String())
}
