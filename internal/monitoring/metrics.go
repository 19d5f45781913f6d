package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Common metric labels, mirroring the shared metrics package's label
// constant style.
const (
	LabelSource = "source"
	LabelRule   = "rule"
	LabelLevel  = "level"
)

// Metrics holds the engine's own Prometheus instrumentation — counters and
// gauges describing the monitoring engine's operation, distinct from the
// domain.MetricDataPoint values flowing through the collection loop.
type Metrics struct {
	CollectionLatency   *prometheus.HistogramVec
	CollectionErrors    *prometheus.CounterVec
	CachedPoints        prometheus.Gauge
	ActiveAlerts        *prometheus.GaugeVec
	AlertTransitions    *prometheus.CounterVec
	MonitorHealthState  *prometheus.GaugeVec
}

// NewMetrics registers the monitoring engine's own Prometheus metrics under
// namespace, grounded on the shared metrics package's NewMetrics(namespace)
// constructor shape.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CollectionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "monitor_collection_latency_microseconds",
				Help:      "collect_metrics latency per monitor, in microseconds",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
			},
			[]string{LabelSource},
		),
		CollectionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitor_collection_errors_total",
				Help:      "Total collect_metrics failures or timeouts per monitor",
			},
			[]string{LabelSource},
		),
		CachedPoints: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "monitor_metrics_cache_size",
				Help:      "Current number of metric points held in the FIFO cache",
			},
		),
		ActiveAlerts: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "monitor_active_alerts",
				Help:      "Current number of alerts in the active-alert map, by level",
			},
			[]string{LabelLevel},
		),
		AlertTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitor_alert_transitions_total",
				Help:      "Total Firing/Resolved transitions, by rule",
			},
			[]string{LabelRule, "transition"},
		),
		MonitorHealthState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "monitor_health_state",
				Help:      "Health-loop state per monitor (1=healthy, 0=unhealthy)",
			},
			[]string{LabelSource},
		),
	}
}
