package probe

import (
	"github.com/specialistvlad/posgridgo/internal/metrics"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// Metrics counts events in a metrics.Collector.
type Metrics struct {
	collector *metrics.Collector
}

func NewMetrics(c *metrics.Collector) *Metrics {
	return &Metrics{collector: c}
}

// For builds the counting probe of n.
func (m *Metrics) For(n *node.Base) node.Probe {
	caps := n.Tags().Capabilities()
	return funcProbe{
		onEnter:  func(*node.Frame) { m.collector.ProbeEvent(Enter.String(), caps) },
		onReturn: func(*node.Frame, cty.Value) { m.collector.ProbeEvent(Return.String(), caps) },
		onError:  func(*node.Frame, error) { m.collector.ProbeEvent(Error.String(), caps) },
	}
}
