package plugin

import (
	"context"

	"github.com/b25/tradecore/internal/domain"
)

// Context carries a plugin's identity and a snapshot of its configuration,
// passed into every lifecycle call.
type Context struct {
	PluginID string
	Config   map[string]interface{}
}

// HealthStatus is the result of a health_check call.
type HealthStatus struct {
	Healthy     bool
	Message     string
	LastCheckNs int64
	Details     map[string]interface{}
}

// Metrics is the result of a get_metrics call.
type Metrics struct {
	Invocations  uint64
	Errors       uint64
	AvgLatencyNs int64
	Custom       map[string]interface{}
}

// Plugin is the base capability every concrete plugin must implement,
// regardless of which capability subtype it also satisfies.
type Plugin interface {
	Metadata() domain.PluginMetadata
	Initialize(ctx context.Context, pctx Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	State() State
	HealthCheck(ctx context.Context) (HealthStatus, error)
	GetMetrics() Metrics
	Configure(config map[string]interface{}) error
}
