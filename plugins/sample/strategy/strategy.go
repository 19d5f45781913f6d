// Package strategy is the reference StrategyPlugin: it puts a fixed
// universe and a minimal momentum alpha model in front of the three default
// pipeline stages from internal/pipeline (EqualWeightPortfolio,
// CapRiskStage, MarketOrderExecutor), so the framework runs end-to-end
// without a real alpha model.
package strategy

import (
	"context"
	"sync"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/pipeline"
	plg "github.com/b25/tradecore/internal/plugin"
)

// fixedUniverse always selects the strategy's configured symbols.
type fixedUniverse struct{ symbols []domain.Symbol }

func (f fixedUniverse) SelectUniverse(ctx context.Context, sctx *pipeline.StrategyContext) ([]domain.Symbol, error) {
	return f.symbols, nil
}

// momentumAlpha emits Up/Down when the latest mid price moved from the
// previous observation; an unchanged price, or a symbol with fewer than two
// observations, yields no insight.
type momentumAlpha struct {
	mu   sync.Mutex
	prev map[string]float64
	cur  map[string]float64
}

func newMomentumAlpha() *momentumAlpha {
	return &momentumAlpha{prev: map[string]float64{}, cur: map[string]float64{}}
}

func (m *momentumAlpha) observe(symbol domain.Symbol, mid float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.cur[symbol.Code]; ok {
		m.prev[symbol.Code] = v
	}
	m.cur[symbol.Code] = mid
}

func (m *momentumAlpha) GenerateInsights(ctx context.Context, sctx *pipeline.StrategyContext, universe []domain.Symbol) ([]domain.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	insights := make([]domain.Insight, 0, len(universe))
	for _, sym := range universe {
		cur, ok := m.cur[sym.Code]
		prev, hasPrev := m.prev[sym.Code]
		if !ok || !hasPrev {
			continue
		}
		dir := domain.Flat
		if cur > prev {
			dir = domain.Up
		} else if cur < prev {
			dir = domain.Down
		}
		if dir == domain.Flat {
			continue
		}
		magnitude, confidence := 1.0, 0.6
		insights = append(insights, domain.Insight{Symbol: sym, Direction: dir, Magnitude: &magnitude, Confidence: &confidence})
	}
	return insights, nil
}

// Plugin is the sample momentum strategy.
type Plugin struct {
	*plg.Base
	mu         sync.RWMutex
	alpha      *momentumAlpha
	pipeline   *pipeline.Pipeline
	positions  map[string]*domain.Position
}

func New(symbols []domain.Symbol, portfolioValue float64, priceOf func(domain.Symbol) (float64, error)) *Plugin {
	alpha := newMomentumAlpha()
	p := &Plugin{
		Base:      plg.NewBase(domain.PluginMetadata{ID: "sample-strategy", Name: "Sample Momentum Strategy", PluginType: domain.PluginTypeStrategy}),
		alpha:     alpha,
		positions: make(map[string]*domain.Position),
	}
	p.pipeline = &pipeline.Pipeline{
		Universe:  fixedUniverse{symbols: symbols},
		Alpha:     alpha,
		Portfolio: pipeline.EqualWeightPortfolio{},
		Risk:      pipeline.CapRiskStage{MaxPositionSize: 0.2},
		Execution: pipeline.MarketOrderExecutor{PortfolioValue: portfolioValue, MinOrderSize: 1, PriceOf: priceOf},
	}
	return p
}

// OnMarketData feeds the latest mid price into the momentum model and runs
// the full five-stage pipeline, converting any resulting orders into
// signals.
func (p *Plugin) OnMarketData(ctx context.Context, data domain.MarketData) ([]domain.Signal, error) {
	if data.Tick == nil {
		return nil, nil
	}
	mid, _ := data.Tick.Mid().Float64()
	p.alpha.observe(data.Tick.Symbol, mid)

	result := p.pipeline.Run(ctx, &pipeline.StrategyContext{CurrentTimeNs: data.Tick.TimestampNs})
	if !result.Success || len(result.Orders) == 0 {
		return nil, nil
	}

	signals := make([]domain.Signal, 0, len(result.Orders))
	for _, o := range result.Orders {
		signals = append(signals, domain.Signal{
			ID:          o.ID,
			Symbol:      o.Symbol,
			Direction:   o.Direction,
			OrderType:   o.OrderType,
			Quantity:    o.Quantity,
			TimestampNs: data.Tick.TimestampNs,
			Priority:    domain.SignalPriorityMedium,
		})
	}
	return signals, nil
}

func (p *Plugin) OnOrderUpdate(ctx context.Context, order *domain.Order) error { return nil }

func (p *Plugin) OnTrade(ctx context.Context, trade *domain.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[trade.Symbol.Code]
	if !ok {
		pos = &domain.Position{Symbol: trade.Symbol, Direction: trade.Direction, CreatedNs: trade.TimestampNs}
		p.positions[trade.Symbol.Code] = pos
	}
	pos.Quantity = pos.Quantity.Add(trade.Quantity)
	pos.SetMarketPrice(trade.Price, trade.TimestampNs)
	return nil
}

func (p *Plugin) GetPositions() []*domain.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out
}

// GenerateSignals nets same-symbol/same-direction queued signals into a
// single batch before the execution loop forwards them onward.
func (p *Plugin) GenerateSignals(ctx context.Context, sctx interface{}) ([]domain.Signal, error) {
	queued, ok := sctx.([]domain.Signal)
	if !ok {
		return nil, nil
	}
	type key struct {
		symbol string
		dir    domain.Direction
	}
	netted := make(map[key]domain.Signal)
	for _, sig := range queued {
		k := key{symbol: sig.Symbol.Code, dir: sig.Direction}
		if existing, found := netted[k]; found {
			existing.Quantity = existing.Quantity.Add(sig.Quantity)
			netted[k] = existing
		} else {
			netted[k] = sig
		}
	}
	out := make([]domain.Signal, 0, len(netted))
	for _, sig := range netted {
		out = append(out, sig)
	}
	return out, nil
}
