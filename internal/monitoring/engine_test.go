package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine() *Engine {
	bus := events.NewBus(zap.NewNop(), 16)
	return NewEngine(DefaultConfig(), bus, nil, zap.NewNop())
}

func ingest(e *Engine, metricName string, value float64) {
	f := value
	e.storePoint(domain.MetricDataPoint{MetricName: metricName, Type: domain.MetricGauge, Value: domain.MetricValue{Float: &f}, TimestampNs: time.Now().UnixNano()})
}

// TestScenarioS6AlertLifecycle implements S6 from the spec: rule
// "value > 100" on metric X. 50 -> no alert, 150 -> Firing, 80 -> Resolved.
func TestScenarioS6AlertLifecycle(t *testing.T) {
	e := newTestEngine()
	e.AddRule(Rule{ID: "r1", MetricName: "X", Enabled: true, Condition: Condition{Kind: ConditionGT, Threshold: 100}})

	ingest(e, "X", 50)
	e.evaluateAlertsOnce(context.Background())
	_, ok := e.ActiveAlert("r1")
	assert.False(t, ok, "value below threshold must not create an alert")

	ingest(e, "X", 150)
	e.evaluateAlertsOnce(context.Background())
	ev, ok := e.ActiveAlert("r1")
	require.True(t, ok)
	assert.Equal(t, StateFiring, ev.State)
	assert.Equal(t, 150.0, ev.CurrentValue)
	assert.Equal(t, 100.0, ev.Threshold)

	ingest(e, "X", 80)
	e.evaluateAlertsOnce(context.Background())
	ev, ok = e.ActiveAlert("r1")
	require.True(t, ok)
	assert.Equal(t, StateResolved, ev.State)
	assert.NotZero(t, ev.ResolvedAtNs)
}

// TestAcknowledgeThenNewIncidentCreatesFreshFiring covers the spec's
// explicit acknowledge/new-incident property.
func TestAcknowledgeThenNewIncidentCreatesFreshFiring(t *testing.T) {
	e := newTestEngine()
	e.AddRule(Rule{ID: "r1", MetricName: "X", Enabled: true, Condition: Condition{Kind: ConditionGT, Threshold: 100}})

	ingest(e, "X", 150)
	e.evaluateAlertsOnce(context.Background())
	require.NoError(t, e.AcknowledgeAlert("r1"))

	ev, _ := e.ActiveAlert("r1")
	firstID := ev.ID
	assert.True(t, ev.Acknowledged)

	ingest(e, "X", 80)
	e.evaluateAlertsOnce(context.Background())
	ev, _ = e.ActiveAlert("r1")
	assert.Equal(t, StateResolved, ev.State)
	assert.True(t, ev.Acknowledged, "resolving must not clear the acknowledged flag")

	ingest(e, "X", 200)
	e.evaluateAlertsOnce(context.Background())
	ev, _ = e.ActiveAlert("r1")
	assert.Equal(t, StateFiring, ev.State)
	assert.NotEqual(t, firstID, ev.ID, "a fresh incident must get a new alert id")
	assert.False(t, ev.Acknowledged, "the new incident starts unacknowledged")
}

func TestMetricsCacheFIFOEviction(t *testing.T) {
	e := newTestEngine()
	e.cfg.MetricsCacheSize = 3
	for i := 0; i < 5; i++ {
		ingest(e, "X", float64(i))
	}
	assert.Equal(t, 3, e.CacheSize())
}

func TestRegisterMonitorCapacity(t *testing.T) {
	e := newTestEngine()
	e.cfg.MaxConcurrentMonitors = 1
	require.NoError(t, e.RegisterMonitor("m1", nil))
	err := e.RegisterMonitor("m2", nil)
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.KindCapacity, kind)
}

func TestMinRefireIntervalSuppressesImmediateRefire(t *testing.T) {
	e := newTestEngine()
	e.AddRule(Rule{ID: "r1", MetricName: "X", Enabled: true, Condition: Condition{Kind: ConditionGT, Threshold: 100}, MinRefireInterval: time.Hour})

	ingest(e, "X", 150)
	e.evaluateAlertsOnce(context.Background())
	ev, _ := e.ActiveAlert("r1")
	require.Equal(t, StateFiring, ev.State)
	require.NoError(t, e.AcknowledgeAlert("r1"))

	ingest(e, "X", 80)
	e.evaluateAlertsOnce(context.Background())
	ingest(e, "X", 200)
	e.evaluateAlertsOnce(context.Background())

	ev, _ = e.ActiveAlert("r1")
	assert.Equal(t, StateResolved, ev.State, "re-fire within min_refire_interval must be suppressed")
}
