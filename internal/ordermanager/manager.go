package ordermanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"github.com/b25/tradecore/internal/plugin"
)

const maxHistory = 10000

// OrderExecutionResult is broadcast on the order-execution channel after
// every submit attempt.
type OrderExecutionResult struct {
	Original    *domain.Order
	Executed    *domain.Order
	Success     bool
	Duration    time.Duration
	GatewayID   string
	Error       error
	Trades      []*domain.Trade
	TimestampNs int64
}

// Config bounds the manager's admission and batching behavior.
type Config struct {
	MaxConcurrentGateways int
	ValidateEnabled       bool
	BatchSize             int
	BatchConcurrency      int
	GatewayRateLimit      float64
}

func DefaultConfig() Config {
	return Config{MaxConcurrentGateways: 16, ValidateEnabled: true, BatchSize: 50, BatchConcurrency: 8, GatewayRateLimit: 100}
}

// Manager owns gateway runtimes, order validation, routing, and tracking.
type Manager struct {
	cfg      Config
	bus      *events.Bus
	mu       sync.RWMutex
	gateways map[string]*Runtime
	active   map[string]*domain.Order
	// owningGateway records which gateway an active order was routed to,
	// for cancel routing without re-selection.
	owningGateway map[string]string
	history       []*domain.Order
}

func NewManager(cfg Config, bus *events.Bus) *Manager {
	return &Manager{
		cfg:           cfg,
		bus:           bus,
		gateways:      make(map[string]*Runtime),
		active:        make(map[string]*domain.Order),
		owningGateway: make(map[string]string),
	}
}

func (m *Manager) RegisterGateway(id string, handle plugin.ExecutionPlugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.gateways) >= m.cfg.MaxConcurrentGateways {
		return domain.Capacity("Manager.RegisterGateway", fmt.Errorf("max_concurrent_gateways reached"))
	}
	if _, exists := m.gateways[id]; exists {
		return domain.StateConflict("Manager.RegisterGateway", fmt.Errorf("gateway %q already registered", id))
	}
	rt := NewRuntime(handle, m.cfg.GatewayRateLimit)
	for _, s := range handle.GetSupportedSymbols() {
		rt.SupportedSymbols[s.String()] = s
	}
	m.gateways[id] = rt
	return nil
}

func (m *Manager) Connect(ctx context.Context, id string) error {
	rt, err := m.gateway(id)
	if err != nil {
		return err
	}
	rt.setState(StateConnecting)
	if err := rt.Handle.Initialize(ctx, plugin.Context{PluginID: id}); err != nil {
		rt.setState(StateError)
		return domain.PluginFault("Manager.Connect", err)
	}
	if err := rt.Handle.Start(ctx); err != nil {
		rt.setState(StateError)
		return domain.PluginFault("Manager.Connect", err)
	}
	if err := rt.Handle.Connect(ctx); err != nil {
		rt.setState(StateError)
		return domain.PluginFault("Manager.Connect", err)
	}
	rt.setState(StateConnected)
	return nil
}

func (m *Manager) gateway(id string) (*Runtime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.gateways[id]
	if !ok {
		return nil, domain.NotFound("Manager.gateway", fmt.Errorf("gateway %q not registered", id))
	}
	return rt, nil
}

// validate runs the rejection checks from the order submit path.
func (m *Manager) validate(order *domain.Order) error {
	if order.ID == "" || order.Symbol.Code == "" {
		return domain.Validation("Manager.validate", fmt.Errorf("order requires id and symbol"))
	}
	if !order.Quantity.IsPositive() {
		return domain.Validation("Manager.validate", fmt.Errorf("quantity must be positive"))
	}
	switch order.OrderType {
	case domain.OrderTypeLimit:
		if order.Price == nil || !order.Price.IsPositive() {
			return domain.Validation("Manager.validate", fmt.Errorf("limit order requires a positive price"))
		}
	case domain.OrderTypeStop:
		if order.StopPrice == nil || !order.StopPrice.IsPositive() {
			return domain.Validation("Manager.validate", fmt.Errorf("stop order requires a positive stop_price"))
		}
	case domain.OrderTypeStopLimit:
		if order.Price == nil || !order.Price.IsPositive() {
			return domain.Validation("Manager.validate", fmt.Errorf("stop-limit order requires a positive price"))
		}
		if order.StopPrice == nil || !order.StopPrice.IsPositive() {
			return domain.Validation("Manager.validate", fmt.Errorf("stop-limit order requires a positive stop_price"))
		}
	}
	return nil
}

func (m *Manager) bestGateway(symbol domain.Symbol, preferred []string) (string, *Runtime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range preferred {
		if rt, ok := m.gateways[id]; ok && rt.getState() == StateConnected && rt.supports(symbol) {
			return id, rt, nil
		}
	}
	var bestID string
	var bestRt *Runtime
	bestScore := -1.0
	for id, rt := range m.gateways {
		if rt.getState() != StateConnected || !rt.supports(symbol) {
			continue
		}
		if s := rt.score(); s > bestScore {
			bestScore, bestID, bestRt = s, id, rt
		}
	}
	if bestRt == nil {
		return "", nil, domain.NotFound("Manager.bestGateway", fmt.Errorf("no connected gateway supports %s", symbol))
	}
	return bestID, bestRt, nil
}

// Submit runs the submit path: validate, select, delegate, track, broadcast.
func (m *Manager) Submit(ctx context.Context, order *domain.Order, preferredGateways []string) (OrderExecutionResult, error) {
	if m.cfg.ValidateEnabled {
		if err := m.validate(order); err != nil {
			return OrderExecutionResult{}, err
		}
	}

	gwID, rt, err := m.bestGateway(order.Symbol, preferredGateways)
	if err != nil {
		return OrderExecutionResult{}, err
	}

	if err := rt.Limiter.Wait(ctx); err != nil {
		return OrderExecutionResult{}, domain.Timeout("Manager.Submit", err)
	}

	start := time.Now()
	executed, err := rt.Handle.SubmitOrder(ctx, order)
	duration := time.Since(start)

	result := OrderExecutionResult{Original: order, GatewayID: gwID, Duration: duration, TimestampNs: time.Now().UnixNano()}
	rt.recordSent(duration, err == nil)

	if err != nil {
		result.Success = false
		result.Error = err
		m.appendHistory(order)
		m.publish(result)
		return result, domain.PluginFault("Manager.Submit", err)
	}

	result.Executed = executed
	result.Success = true

	m.mu.Lock()
	if executed.IsActive() {
		m.active[executed.ID] = executed
		m.owningGateway[executed.ID] = gwID
	} else {
		m.appendHistoryLocked(executed)
	}
	m.mu.Unlock()

	m.publish(result)
	return result, nil
}

func (m *Manager) appendHistory(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendHistoryLocked(order)
}

func (m *Manager) appendHistoryLocked(order *domain.Order) {
	m.history = append(m.history, order)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

func (m *Manager) publish(result OrderExecutionResult) {
	if m.bus != nil {
		m.bus.Publish(events.Event{Kind: events.KindOrderExecution, TimestampNs: result.TimestampNs, Payload: result})
	}
}

// Cancel looks the order up in the active map, determines the owning
// gateway, and delegates to cancel_order.
func (m *Manager) Cancel(ctx context.Context, orderID string) (OrderExecutionResult, error) {
	m.mu.RLock()
	order, ok := m.active[orderID]
	gwID := m.owningGateway[orderID]
	m.mu.RUnlock()
	if !ok {
		return OrderExecutionResult{}, domain.NotFound("Manager.Cancel", fmt.Errorf("order %q not active", orderID))
	}

	rt, err := m.gateway(gwID)
	if err != nil {
		return OrderExecutionResult{}, err
	}

	executed, err := rt.Handle.CancelOrder(ctx, order)
	result := OrderExecutionResult{Original: order, GatewayID: gwID, TimestampNs: time.Now().UnixNano()}
	if err != nil {
		result.Success = false
		result.Error = err
		m.publish(result)
		return result, domain.PluginFault("Manager.Cancel", err)
	}

	result.Executed = executed
	result.Success = true
	m.mu.Lock()
	if !executed.IsActive() {
		delete(m.active, orderID)
		delete(m.owningGateway, orderID)
		m.appendHistoryLocked(executed)
	} else {
		m.active[orderID] = executed
	}
	m.mu.Unlock()

	m.publish(result)
	return result, nil
}

// BatchSubmit chunks orders into BatchSize groups, processed one group at a
// time, with each group's submits bounded by BatchConcurrency; per-order
// failures do not abort the batch.
func (m *Manager) BatchSubmit(ctx context.Context, orders []*domain.Order, preferredGateways []string) []OrderExecutionResult {
	results := make([]OrderExecutionResult, len(orders))
	batchSize := m.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(orders)
	}

	for start := 0; start < len(orders); start += batchSize {
		end := start + batchSize
		if end > len(orders) {
			end = len(orders)
		}

		sem := make(chan struct{}, m.cfg.BatchConcurrency)
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			order := orders[i]
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, order *domain.Order) {
				defer wg.Done()
				defer func() { <-sem }()
				result, err := m.Submit(ctx, order, preferredGateways)
				if err != nil && result.Original == nil {
					result = OrderExecutionResult{Original: order, Success: false, Error: err, TimestampNs: time.Now().UnixNano()}
				}
				results[i] = result
			}(i, order)
		}
		wg.Wait()
	}
	return results
}

// Query checks the active map first, then scans history in reverse.
func (m *Manager) Query(orderID string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.active[orderID]; ok {
		return o, nil
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].ID == orderID {
			return m.history[i], nil
		}
	}
	return nil, domain.NotFound("Manager.Query", fmt.Errorf("order %q not found", orderID))
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}
