// Package adapter wires the client's internal diagnostics onto external
// systems: OpenTelemetry spans and counters, an HTTP health handler, an
// audit sink, and a gauge-shaped view of the pending-unmap backlog.
package adapter

import "github.com/aeron-go-client/aeron/pkg/lifecycle"

// ResourceLifecycleGauge exposes a lifecycle.Observer's pending-unmap
// backlog as a single integer, the shape a Prometheus GaugeFunc or a
// structured log field expects.
type ResourceLifecycleGauge struct {
	observer lifecycle.Observer
}

// NewResourceLifecycleGauge wraps observer.
func NewResourceLifecycleGauge(observer lifecycle.Observer) *ResourceLifecycleGauge {
	return &ResourceLifecycleGauge{observer: observer}
}

// Value reads the current pending-unmap count.
func (g *ResourceLifecycleGauge) Value() float64 {
	return float64(g.observer.PendingUnmaps())
}
