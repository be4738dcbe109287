// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package metrics defines the Prometheus collectors shared by the engine, the
// probes and the suite runner.
//
// Collectors are registered on a caller-supplied registerer rather than the
// global default, so every App (and every test) gets an isolated set. All
// methods are safe to call on a nil *Collector, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/specialistvlad/posgridgo/internal/tags"
)

const namespace = "posgrid"

// Materialization kinds.
const (
	KindRoot = "root"
	KindCall = "call"
	KindBase = "base"
)

// Collector groups every metric the application exports.
type Collector struct {
	materializations *prometheus.CounterVec
	probeEvents      *prometheus.CounterVec
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		materializations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materializations_total",
			Help:      "Nodes materialized from descriptors, by node kind.",
		}, []string{"kind"}),
		probeEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_events_total",
			Help:      "Probe notifications, by event and capability.",
		}, []string{"event", "capability"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Program invocations executed by the suite runner, by outcome.",
		}, []string{"outcome"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a single program invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
}

// Materialized counts one node of the given kind.
func (c *Collector) Materialized(kind string) {
	if c == nil {
		return
	}
	c.materializations.WithLabelValues(kind).Inc()
}

// ProbeEvent counts one notification for every capability of the observed
// node. Nodes without a capability are counted under "none".
func (c *Collector) ProbeEvent(event string, caps []tags.Capability) {
	if c == nil {
		return
	}
	if len(caps) == 0 {
		c.probeEvents.WithLabelValues(event, "none").Inc()
		return
	}
	for _, capability := range caps {
		c.probeEvents.WithLabelValues(event, capability.String()).Inc()
	}
}

// RunFinished records the outcome and duration of one invocation.
func (c *Collector) RunFinished(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(outcome).Inc()
	c.runDuration.Observe(d.Seconds())
}

// MaterializationCounter exposes the counter of one kind, mainly for tests.
func (c *Collector) MaterializationCounter(kind string) prometheus.Counter {
	return c.materializations.WithLabelValues(kind)
}

// ProbeEventCounter exposes the counter of one event and capability label.
func (c *Collector) ProbeEventCounter(event, capability string) prometheus.Counter {
	return c.probeEvents.WithLabelValues(event, capability)
}

// RunCounter exposes the counter of one run outcome.
func (c *Collector) RunCounter(outcome string) prometheus.Counter {
	return c.runs.WithLabelValues(outcome)
}
