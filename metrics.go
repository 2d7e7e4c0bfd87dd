package aeron

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector exposes a Client's to-driver ring occupancy, broadcast
// consumer lag, registry backlog, and cumulative do_work counters as
// Prometheus metrics, grounded on the corpus's hand-rolled
// prometheus.Collector implementations rather than a registered
// global Gauge/Counter per metric.
type MetricsCollector struct {
	client *Client
}

// NewMetricsCollector wraps client for registration with a
// prometheus.Registry.
func NewMetricsCollector(client *Client) *MetricsCollector {
	return &MetricsCollector{client: client}
}

var (
	ringOccupancyDesc = prometheus.NewDesc(
		"aeron_client_ring_occupancy_bytes", "Claimed but undrained bytes in the to-driver ring.", nil, nil)
	broadcastLagDesc = prometheus.NewDesc(
		"aeron_client_broadcast_lag_bytes", "Bytes the driver's broadcast tail leads this client's read cursor by.", nil, nil)
	registrySizeDesc = prometheus.NewDesc(
		"aeron_client_registry_size", "Number of async-add handles held in the correlation registry.", nil, nil)
	pendingUnmapsDesc = prometheus.NewDesc(
		"aeron_client_pending_unmaps", "Closed resources whose log mapping is still lingering before unmap.", nil, nil)
	doWorkPassesDesc = prometheus.NewDesc(
		"aeron_client_do_work_passes_total", "Cumulative number of conductor do_work passes.", nil, nil)
	eventsProcessedDesc = prometheus.NewDesc(
		"aeron_client_events_processed_total", "Cumulative number of broadcast events dispatched.", nil, nil)
	insufficientSpaceDesc = prometheus.NewDesc(
		"aeron_client_insufficient_space_rejections_total", "Commands rejected because the to-driver ring had no room.", nil, nil)
	driverDeadDesc = prometheus.NewDesc(
		"aeron_client_driver_dead", "1 if the sticky DRIVER_DEAD condition is set, 0 otherwise.", nil, nil)
	broadcastLossDesc = prometheus.NewDesc(
		"aeron_client_broadcast_loss", "1 if the sticky BROADCAST_LOSS condition is set, 0 otherwise.", nil, nil)
)

// Describe implements prometheus.Collector.
func (m *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- ringOccupancyDesc
	ch <- broadcastLagDesc
	ch <- registrySizeDesc
	ch <- pendingUnmapsDesc
	ch <- doWorkPassesDesc
	ch <- eventsProcessedDesc
	ch <- insufficientSpaceDesc
	ch <- driverDeadDesc
	ch <- broadcastLossDesc
}

// Collect implements prometheus.Collector.
func (m *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c := m.client.conductor
	ch <- prometheus.MustNewConstMetric(ringOccupancyDesc, prometheus.GaugeValue, float64(c.RingOccupancy()))
	ch <- prometheus.MustNewConstMetric(broadcastLagDesc, prometheus.GaugeValue, float64(c.BroadcastLag()))
	ch <- prometheus.MustNewConstMetric(registrySizeDesc, prometheus.GaugeValue, float64(c.RegistrySize()))
	ch <- prometheus.MustNewConstMetric(pendingUnmapsDesc, prometheus.GaugeValue, float64(m.client.PendingUnmaps()))
	ch <- prometheus.MustNewConstMetric(doWorkPassesDesc, prometheus.CounterValue, float64(c.DoWorkPasses()))
	ch <- prometheus.MustNewConstMetric(eventsProcessedDesc, prometheus.CounterValue, float64(c.EventsProcessed()))
	ch <- prometheus.MustNewConstMetric(insufficientSpaceDesc, prometheus.CounterValue, float64(c.InsufficientSpaceRejections()))
	ch <- prometheus.MustNewConstMetric(driverDeadDesc, prometheus.GaugeValue, boolToFloat(c.IsDriverDead()))
	ch <- prometheus.MustNewConstMetric(broadcastLossDesc, prometheus.GaugeValue, boolToFloat(c.IsBroadcastLoss()))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
