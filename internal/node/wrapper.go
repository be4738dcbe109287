package node

import (
	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
)

// Wrapper sits in a child slot in place of a *Base and reports each execution
// of it to a probe. Callers other than the probe cannot tell it apart from the
// delegate.
type Wrapper struct {
	owner
	delegate *Base
	probe    Probe
}

func (w *Wrapper) Execute(f *Frame) (cty.Value, error) {
	w.probe.OnEnter(f)
	v, err := w.delegate.Execute(f)
	if err != nil {
		w.probe.OnError(f, err)
		return v, err
	}
	w.probe.OnReturn(f, v)
	return v, nil
}

func (w *Wrapper) SourceSection() source.Section { return w.delegate.SourceSection() }

func (w *Wrapper) IsInstrumentable() bool { return w.delegate.IsInstrumentable() }

func (w *Wrapper) HasTag(c tags.Capability) bool { return w.delegate.HasTag(c) }

// Delegate returns the wrapped node.
func (w *Wrapper) Delegate() *Base { return w.delegate }

// Probe returns the probe notified by the wrapper.
func (w *Wrapper) Probe() Probe { return w.probe }
