package probe

import (
	"sync"

	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
)

// Recorder keeps every event in memory. It is safe for concurrent calls.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// For builds the recording probe of n.
func (r *Recorder) For(n *node.Base) node.Probe {
	s := siteOf(n)
	return funcProbe{
		onEnter: func(f *node.Frame) {
			r.add(s.event(Enter, f))
		},
		onReturn: func(f *node.Frame, v cty.Value) {
			e := s.event(Return, f)
			e.Result = v
			r.add(e)
		},
		onError: func(f *node.Frame, err error) {
			e := s.event(Error, f)
			e.Err = err
			r.add(e)
		},
	}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns the number of events of the given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// CountByCapability returns, for every capability, how many events of kind
// were reported by nodes exposing it. A node with several capabilities
// counts once for each.
func (r *Recorder) CountByCapability(kind Kind) map[tags.Capability]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[tags.Capability]int)
	for _, e := range r.events {
		if e.Kind != kind {
			continue
		}
		for _, c := range e.Capabilities {
			out[c]++
		}
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
