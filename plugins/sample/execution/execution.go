// Package execution is the in-memory reference ExecutionPlugin: market
// orders fill instantly at the last known tick price, limit/stop orders are
// accepted but left resting, matching the spec's S1 scenario grounding.
package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
	"github.com/google/uuid"
)

// PriceLookup resolves the last tick price for a symbol, usually backed by
// the data source plugin's GetLatestTick.
type PriceLookup func(ctx context.Context, symbol domain.Symbol) (domain.Price, error)

type Plugin struct {
	*plugin.Base
	mu       sync.Mutex
	symbols  []domain.Symbol
	priceOf  PriceLookup
	orders   map[string]*domain.Order
	clockNs  int64
}

func New(symbols []domain.Symbol, priceOf PriceLookup) *Plugin {
	return &Plugin{
		Base:    plugin.NewBase(domain.PluginMetadata{ID: "sample-execution", Name: "Sample Execution", PluginType: domain.PluginTypeExecution}),
		symbols: symbols,
		priceOf: priceOf,
		orders:  make(map[string]*domain.Order),
	}
}

func (p *Plugin) Connect(ctx context.Context) error    { return nil }
func (p *Plugin) Disconnect(ctx context.Context) error { return nil }

func (p *Plugin) GetSupportedSymbols() []domain.Symbol { return p.symbols }

// SubmitOrder fills a market order instantly at the last tick price;
// non-market orders are accepted into the resting-order map untouched.
func (p *Plugin) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clockNs++
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := order.Transition(domain.OrderSubmitted, p.clockNs); err != nil {
		return nil, err
	}

	if order.OrderType == domain.OrderTypeMarket {
		price, err := p.priceOf(ctx, order.Symbol)
		if err != nil {
			_ = order.Transition(domain.OrderRejected, p.clockNs)
			p.orders[order.ID] = order
			return order, nil
		}
		order.FilledQuantity = order.Quantity
		order.AverageFillPrice = &price
		if err := order.Transition(domain.OrderFilled, p.clockNs); err != nil {
			return nil, err
		}
	}

	p.orders[order.ID] = order
	return order, nil
}

func (p *Plugin) CancelOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.orders[order.ID]
	if !ok {
		return nil, domain.NotFound("execution.CancelOrder", fmt.Errorf("order %q not found", order.ID))
	}
	p.clockNs++
	if err := existing.Transition(domain.OrderCancelled, p.clockNs); err != nil {
		return nil, err
	}
	return existing, nil
}

func (p *Plugin) QueryOrder(ctx context.Context, id string) (*domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.orders[id]
	if !ok {
		return nil, domain.NotFound("execution.QueryOrder", fmt.Errorf("order %q not found", id))
	}
	return existing, nil
}

func (p *Plugin) GetAccountInfo(ctx context.Context) (map[string]interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{"orders_tracked": len(p.orders)}, nil
}
