package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"github.com/b25/tradecore/internal/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// monitorRuntime wraps one registered MonitoringPlugin with the engine's own
// view of its health, mirroring C7/C8's runtime-wrapper shape.
type monitorRuntime struct {
	mu        sync.RWMutex
	handle    plugin.MonitoringPlugin
	healthy   bool
	lastError error
	stats     monitorStats
}

type monitorStats struct {
	CollectCount  uint64
	ErrorCount    uint64
	AvgCollectDur time.Duration
}

func (r *monitorRuntime) recordCollect(d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.CollectCount++
	if err != nil {
		r.stats.ErrorCount++
	}
	if r.stats.CollectCount == 1 {
		r.stats.AvgCollectDur = d
	} else {
		r.stats.AvgCollectDur = (r.stats.AvgCollectDur + d) / 2
	}
}

func (r *monitorRuntime) setHealth(healthy bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healthy = healthy
	r.lastError = err
}

// Config bounds the engine's loop cadence and cache/queue sizing.
type Config struct {
	MaxConcurrentMonitors   int
	MetricsCollectionInterval time.Duration
	AlertCheckInterval      time.Duration
	HealthCheckInterval     time.Duration
	CollectTimeout          time.Duration
	MetricsCacheSize        int
	AlertQueueSize          int
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentMonitors:     32,
		MetricsCollectionInterval: 10 * time.Second,
		AlertCheckInterval:        5 * time.Second,
		HealthCheckInterval:       15 * time.Second,
		CollectTimeout:            2 * time.Second,
		MetricsCacheSize:          10000,
		AlertQueueSize:            1000,
	}
}

// Engine runs the collection/alert/health loops over registered monitoring
// plugins and alert rules. Grounded on risk-manager/internal/monitor/monitor.go's
// ticker-loop-calls-check-function shape, applied three times over.
type Engine struct {
	cfg     Config
	bus     *events.Bus
	metrics *Metrics
	logger  *zap.Logger

	mu           sync.RWMutex
	monitors     map[string]*monitorRuntime
	rules        map[string]Rule
	cache        []domain.MetricDataPoint
	latestByName map[string]domain.MetricDataPoint
	activeAlerts map[string]*Event
	lastFired    map[string]int64

	cancel context.CancelFunc
}

func NewEngine(cfg Config, bus *events.Bus, metrics *Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:          cfg,
		bus:          bus,
		metrics:      metrics,
		logger:       logger,
		monitors:     make(map[string]*monitorRuntime),
		rules:        make(map[string]Rule),
		latestByName: make(map[string]domain.MetricDataPoint),
		activeAlerts: make(map[string]*Event),
		lastFired:    make(map[string]int64),
	}
}

func (e *Engine) RegisterMonitor(id string, handle plugin.MonitoringPlugin) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.monitors) >= e.cfg.MaxConcurrentMonitors {
		return domain.Capacity("Engine.RegisterMonitor", fmt.Errorf("max_concurrent_monitors reached"))
	}
	if _, exists := e.monitors[id]; exists {
		return domain.StateConflict("Engine.RegisterMonitor", fmt.Errorf("monitor %q already registered", id))
	}
	e.monitors[id] = &monitorRuntime{handle: handle, healthy: true}
	return nil
}

func (e *Engine) AddRule(rule Rule) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[rule.ID] = rule
}

func (e *Engine) RemoveRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rules, id)
}

// Start launches the three periodic loops; Stop cancels them.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.runLoop(ctx, e.cfg.MetricsCollectionInterval, e.collectOnce)
	go e.runLoop(ctx, e.cfg.AlertCheckInterval, e.evaluateAlertsOnce)
	go e.runLoop(ctx, e.cfg.HealthCheckInterval, e.healthCheckOnce)
}

func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) runLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// collectOnce implements the collection loop: call collect_metrics under
// timeout for every Running monitor, broadcast each point, cache it
// FIFO-bounded, and update stats.
func (e *Engine) collectOnce(ctx context.Context) {
	e.mu.RLock()
	monitors := make(map[string]*monitorRuntime, len(e.monitors))
	for id, rt := range e.monitors {
		monitors[id] = rt
	}
	e.mu.RUnlock()

	for id, rt := range monitors {
		if rt.handle.State() != plugin.StateRunning {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, e.cfg.CollectTimeout)
		start := time.Now()
		points, err := rt.handle.CollectMetrics(cctx)
		elapsed := time.Since(start)
		cancel()

		rt.recordCollect(elapsed, err)
		if e.metrics != nil {
			e.metrics.CollectionLatency.WithLabelValues(id).Observe(float64(elapsed.Microseconds()))
			if err != nil {
				e.metrics.CollectionErrors.WithLabelValues(id).Inc()
			}
		}
		if err != nil {
			e.logger.Warn("collect_metrics failed", zap.String("monitor", id), zap.Error(err))
			continue
		}
		for _, p := range points {
			e.storePoint(p)
			if e.bus != nil {
				e.bus.Publish(events.Event{Kind: events.KindMetric, TimestampNs: p.TimestampNs, Payload: p})
			}
		}
	}
}

func (e *Engine) storePoint(p domain.MetricDataPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = append(e.cache, p)
	if len(e.cache) > e.cfg.MetricsCacheSize {
		e.cache = e.cache[len(e.cache)-e.cfg.MetricsCacheSize:]
	}
	e.latestByName[p.MetricName] = p
	if e.metrics != nil {
		e.metrics.CachedPoints.Set(float64(len(e.cache)))
	}
}

// evaluateAlertsOnce implements the alert loop: for each enabled rule, find
// the latest cached point, evaluate the condition, and drive the
// Firing/Resolved state machine.
func (e *Engine) evaluateAlertsOnce(ctx context.Context) {
	e.mu.RLock()
	rules := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, r)
	}
	e.mu.RUnlock()

	now := time.Now().UnixNano()
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		e.mu.RLock()
		point, ok := e.latestByName[rule.MetricName]
		e.mu.RUnlock()
		if !ok {
			continue
		}

		current := point.Value.AsFloat()
		previous := e.previousValue(rule.MetricName)
		fires := rule.Condition.Evaluate(current, previous)

		e.mu.Lock()
		existing, hasExisting := e.activeAlerts[rule.ID]
		var toPublish *Event
		if fires {
			if rule.MinRefireInterval > 0 {
				if last, ok := e.lastFired[rule.ID]; ok && time.Duration(now-last) < rule.MinRefireInterval {
					e.mu.Unlock()
					continue
				}
			}
			if hasExisting && existing.State == StateFiring {
				existing.CurrentValue = current
			} else {
				ev := &Event{
					ID: uuid.NewString(), RuleID: rule.ID, Level: rule.Level, State: StateFiring,
					FiredAtNs: now, CurrentValue: current, Threshold: rule.Condition.Threshold,
					Message: rule.Message, Labels: rule.Labels, Annotations: rule.Annotations,
				}
				e.activeAlerts[rule.ID] = ev
				e.lastFired[rule.ID] = now
				toPublish = ev
				if e.metrics != nil {
					e.metrics.AlertTransitions.WithLabelValues(rule.ID, "firing").Inc()
				}
			}
		} else if hasExisting && existing.State == StateFiring {
			existing.State = StateResolved
			existing.ResolvedAtNs = now
			toPublish = existing
			if e.metrics != nil {
				e.metrics.AlertTransitions.WithLabelValues(rule.ID, "resolved").Inc()
			}
		}
		e.mu.Unlock()

		if toPublish != nil && e.bus != nil {
			cp := *toPublish
			e.bus.Publish(events.Event{Kind: events.KindAlert, TimestampNs: now, Payload: cp})
		}
	}
}

func (e *Engine) previousValue(metricName string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := len(e.cache) - 2; i >= 0; i-- {
		if e.cache[i].MetricName == metricName {
			return e.cache[i].Value.AsFloat()
		}
	}
	return 0
}

// healthCheckOnce implements the health loop: poll every Running monitor;
// an unhealthy result sets its runtime state to Error (tracked here, not on
// the plugin's own State) and records the last error.
func (e *Engine) healthCheckOnce(ctx context.Context) {
	e.mu.RLock()
	monitors := make(map[string]*monitorRuntime, len(e.monitors))
	for id, rt := range e.monitors {
		monitors[id] = rt
	}
	e.mu.RUnlock()

	for id, rt := range monitors {
		if rt.handle.State() != plugin.StateRunning {
			continue
		}
		status, err := rt.handle.GetHealthStatus(ctx)
		healthy := err == nil && status.Healthy
		rt.setHealth(healthy, err)
		if e.metrics != nil {
			v := 0.0
			if healthy {
				v = 1.0
			}
			e.metrics.MonitorHealthState.WithLabelValues(id).Set(v)
		}
		if !healthy {
			e.logger.Warn("monitor unhealthy", zap.String("monitor", id), zap.Error(err))
		}
	}
}

// AcknowledgeAlert sets the Acknowledged flag without affecting firing
// logic; a later fresh incident still creates a new Firing entry for the
// same rule.
func (e *Engine) AcknowledgeAlert(ruleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.activeAlerts[ruleID]
	if !ok {
		return domain.NotFound("Engine.AcknowledgeAlert", fmt.Errorf("no active alert for rule %q", ruleID))
	}
	ev.Acknowledged = true
	return nil
}

func (e *Engine) SilenceAlert(ruleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.activeAlerts[ruleID]
	if !ok {
		return domain.NotFound("Engine.SilenceAlert", fmt.Errorf("no active alert for rule %q", ruleID))
	}
	ev.Silenced = true
	return nil
}

func (e *Engine) ActiveAlert(ruleID string) (Event, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ev, ok := e.activeAlerts[ruleID]
	if !ok {
		return Event{}, false
	}
	return *ev, true
}

func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
