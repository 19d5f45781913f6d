// Package monitoring is the reference MonitoringPlugin: it reports
// process-level gauges (goroutine count, heap bytes) rather than fronting an
// external metrics backend.
package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
)

const (
	MetricGoroutines = "process_goroutines"
	MetricHeapBytes  = "process_heap_bytes"
)

type Plugin struct {
	*plugin.Base
}

func New() *Plugin {
	return &Plugin{Base: plugin.NewBase(domain.PluginMetadata{ID: "sample-monitoring", Name: "Sample Process Monitor", PluginType: domain.PluginTypeMonitoring})}
}

func (p *Plugin) CollectMetrics(ctx context.Context) ([]domain.MetricDataPoint, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	now := time.Now().UnixNano()

	goroutines := float64(runtime.NumGoroutine())
	heap := float64(mem.HeapAlloc)

	return []domain.MetricDataPoint{
		{MetricName: MetricGoroutines, Type: domain.MetricGauge, Value: domain.MetricValue{Float: &goroutines}, TimestampNs: now, Source: "sample-monitoring"},
		{MetricName: MetricHeapBytes, Type: domain.MetricGauge, Value: domain.MetricValue{Float: &heap}, TimestampNs: now, Source: "sample-monitoring"},
	}, nil
}

func (p *Plugin) GetHealthStatus(ctx context.Context) (plugin.HealthStatus, error) {
	return plugin.HealthStatus{Healthy: true, LastCheckNs: time.Now().UnixNano()}, nil
}

func (p *Plugin) GetSupportedMetrics() []string {
	return []string{MetricGoroutines, MetricHeapBytes}
}

func (p *Plugin) ConfigureMonitoring(config map[string]interface{}) error {
	return p.Configure(config)
}
