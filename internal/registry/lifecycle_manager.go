package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BatchResult is the outcome of a start-all or stop-all sweep.
type BatchResult struct {
	Started     []string
	Failed      string
	FailureErr  error
	RolledBack  []string
	StopErrors  map[string]error
}

// LifecycleManager drives dependency-ordered batch lifecycle transitions
// and polls health on a cadence, matching the health-loop shape used by the
// teacher's risk monitor ticker loop.
type LifecycleManager struct {
	registry *Registry
	logger   *zap.Logger
	breakers map[string]*gobreaker.CircuitBreaker

	healthInterval      time.Duration
	unhealthyThreshold  int
}

func NewLifecycleManager(r *Registry, logger *zap.Logger) *LifecycleManager {
	return &LifecycleManager{
		registry:           r,
		logger:              logger,
		breakers:            make(map[string]*gobreaker.CircuitBreaker),
		healthInterval:      10 * time.Second,
		unhealthyThreshold:  3,
	}
}

func (m *LifecycleManager) SetHealthInterval(d time.Duration) { m.healthInterval = d }

// startOrder computes a topological order over hard (non-optional)
// dependency edges; soft/optional edges do not constrain ordering.
func (m *LifecycleManager) startOrder() ([]string, error) {
	ids := m.registry.IDs()
	indegree := make(map[string]int, len(ids))
	adj := make(map[string][]string)
	metaByID := make(map[string]domain.PluginMetadata, len(ids))

	for _, id := range ids {
		indegree[id] = 0
		meta, err := m.registry.Metadata(id)
		if err != nil {
			return nil, err
		}
		metaByID[id] = meta
	}
	for _, id := range ids {
		for _, dep := range metaByID[id].Dependencies {
			if dep.Optional {
				continue
			}
			if _, ok := metaByID[dep.PluginID]; !ok {
				continue // dependency outside the registry: treat as already satisfied
			}
			adj[dep.PluginID] = append(adj[dep.PluginID], id)
			indegree[id]++
		}
	}

	queue := make([]string, 0)
	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	order := make([]string, 0, len(ids))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, m2 := range adj[n] {
			indegree[m2]--
			if indegree[m2] == 0 {
				queue = append(queue, m2)
			}
		}
	}
	if len(order) != len(ids) {
		return nil, domain.Internal("LifecycleManager.startOrder", fmt.Errorf("plugin dependency graph contains a cycle"))
	}
	return order, nil
}

// StartAll initializes and starts every registered plugin in dependency
// order. On any failure it stops the already-started plugins in reverse
// order and reports both the triggering failure and the rollback outcome.
func (m *LifecycleManager) StartAll(ctx context.Context) (*BatchResult, error) {
	order, err := m.startOrder()
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, id := range order {
		p, err := m.registry.Get(id)
		if err != nil {
			return result, err
		}
		if err := p.Initialize(ctx, plugin.Context{PluginID: id}); err != nil {
			result.Failed = id
			result.FailureErr = domain.PluginFault("LifecycleManager.StartAll", err)
			result.RolledBack = m.rollback(ctx, result.Started)
			return result, result.FailureErr
		}
		if err := p.Start(ctx); err != nil {
			result.Failed = id
			result.FailureErr = domain.PluginFault("LifecycleManager.StartAll", err)
			result.RolledBack = m.rollback(ctx, result.Started)
			return result, result.FailureErr
		}
		result.Started = append(result.Started, id)
	}
	return result, nil
}

func (m *LifecycleManager) rollback(ctx context.Context, started []string) []string {
	rolledBack := make([]string, 0, len(started))
	for i := len(started) - 1; i >= 0; i-- {
		id := started[i]
		p, err := m.registry.Get(id)
		if err != nil {
			continue
		}
		if err := p.Stop(ctx); err != nil && m.logger != nil {
			m.logger.Warn("rollback stop failed", zap.String("plugin", id), zap.Error(err))
		} else {
			rolledBack = append(rolledBack, id)
		}
	}
	return rolledBack
}

// StopAll stops every registered plugin in reverse topological order;
// individual failures are accumulated but never abort the sweep.
func (m *LifecycleManager) StopAll(ctx context.Context) *BatchResult {
	order, err := m.startOrder()
	result := &BatchResult{StopErrors: make(map[string]error)}
	if err != nil {
		// Order is unavailable (cycle); fall back to registry iteration order.
		order = m.registry.IDs()
	}
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		p, err := m.registry.Get(id)
		if err != nil {
			continue
		}
		if err := p.Stop(ctx); err != nil {
			result.StopErrors[id] = err
			if m.logger != nil {
				m.logger.Warn("stop failed", zap.String("plugin", id), zap.Error(err))
			}
			continue
		}
		result.Started = append(result.Started, id)
	}
	return result
}

func (m *LifecycleManager) breakerFor(id string) *gobreaker.CircuitBreaker {
	if b, ok := m.breakers[id]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        id,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	})
	m.breakers[id] = b
	return b
}

// RunHealthLoop polls every Running plugin's HealthCheck at healthInterval
// until ctx is cancelled. Three consecutive unhealthy results flip an Error
// badge in the registry's Stats without touching the plugin's own Running
// state — an operator restarts it explicitly.
func (m *LifecycleManager) RunHealthLoop(ctx context.Context) {
	ticker := time.NewTicker(m.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *LifecycleManager) pollOnce(ctx context.Context) {
	for id, p := range m.registry.All() {
		if p.State() != plugin.StateRunning {
			continue
		}
		breaker := m.breakerFor(id)
		_, err := breaker.Execute(func() (interface{}, error) {
			hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			status, err := p.HealthCheck(hctx)
			if err != nil {
				return nil, err
			}
			if !status.Healthy {
				return nil, domain.Internal("LifecycleManager.pollOnce", fmt.Errorf("unhealthy: %s", status.Message))
			}
			return status, nil
		})

		m.registry.updateStats(id, func(s *Stats) {
			if err != nil {
				s.ConsecutiveUnhealthy++
				s.LastError = err
				if s.ConsecutiveUnhealthy >= m.unhealthyThreshold {
					s.ErrorBadge = true
				}
			} else {
				s.ConsecutiveUnhealthy = 0
				s.ErrorBadge = false
				s.LastError = nil
			}
		})
	}
}
