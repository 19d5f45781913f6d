package pipeline

import (
	"context"
	"fmt"

	"github.com/b25/tradecore/internal/domain"
)

// StrategyContext carries everything the five stages read from on one pass:
// the current tick's time, the strategy's known positions, available
// capital, the latest market-data snapshot, and whatever cached historical
// data the strategy asked for ahead of time.
type StrategyContext struct {
	CurrentTimeNs  int64
	Positions      map[string]*domain.Position
	AvailableCapital domain.Money
	MarketData     map[string]domain.MarketData
	Historical     map[string][]*domain.Bar
}

// UniverseSelector produces the tradeable symbol set for this tick.
type UniverseSelector interface {
	SelectUniverse(ctx context.Context, sctx *StrategyContext) ([]domain.Symbol, error)
}

// AlphaModel emits directional views over the selected universe.
type AlphaModel interface {
	GenerateInsights(ctx context.Context, sctx *StrategyContext, universe []domain.Symbol) ([]domain.Insight, error)
}

// PortfolioConstructor maps insights to signed target percentages.
type PortfolioConstructor interface {
	ConstructTargets(ctx context.Context, sctx *StrategyContext, insights []domain.Insight) ([]domain.PortfolioTarget, error)
}

// RiskStage adjusts targets to respect per-position caps. Named RiskStage
// (not RiskManager) to avoid colliding with the risk manager component's
// own Manager type.
type RiskStage interface {
	AdjustTargets(ctx context.Context, sctx *StrategyContext, targets []domain.PortfolioTarget) ([]domain.PortfolioTarget, error)
}

// ExecutionAlgorithm translates targets into orders.
type ExecutionAlgorithm interface {
	BuildOrders(ctx context.Context, sctx *StrategyContext, targets []domain.PortfolioTarget) ([]*domain.Order, error)
}

// --- default bootstrap implementations, per spec §4.9 ---

// EqualWeightPortfolio maps Up/Down/Flat insights to fixed target
// percentages: Up -> +10%, Down -> -5%, Flat -> 0%.
type EqualWeightPortfolio struct{}

func (EqualWeightPortfolio) ConstructTargets(ctx context.Context, sctx *StrategyContext, insights []domain.Insight) ([]domain.PortfolioTarget, error) {
	targets := make([]domain.PortfolioTarget, 0, len(insights))
	for _, in := range insights {
		var pct float64
		switch in.Direction {
		case domain.Up:
			pct = 0.10
		case domain.Down:
			pct = -0.05
		default:
			pct = 0
		}
		targets = append(targets, domain.PortfolioTarget{Symbol: in.Symbol, TargetPercent: pct})
	}
	return targets, nil
}

// CapRiskStage clamps |target_percent| to MaxPositionSize.
type CapRiskStage struct {
	MaxPositionSize float64
}

func (r CapRiskStage) AdjustTargets(ctx context.Context, sctx *StrategyContext, targets []domain.PortfolioTarget) ([]domain.PortfolioTarget, error) {
	out := make([]domain.PortfolioTarget, len(targets))
	for i, t := range targets {
		clamped := t.TargetPercent
		if clamped > r.MaxPositionSize {
			clamped = r.MaxPositionSize
		} else if clamped < -r.MaxPositionSize {
			clamped = -r.MaxPositionSize
		}
		t.TargetPercent = clamped
		out[i] = t
	}
	return out, nil
}

// MarketOrderExecutor turns each target into a market order sized
// quantity = target_value / current_price, skipping targets whose notional
// would fall below MinOrderSize.
type MarketOrderExecutor struct {
	PortfolioValue float64
	MinOrderSize   float64
	PriceOf        func(symbol domain.Symbol) (float64, error)
}

func (x MarketOrderExecutor) BuildOrders(ctx context.Context, sctx *StrategyContext, targets []domain.PortfolioTarget) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, t := range targets {
		price, err := x.PriceOf(t.Symbol)
		if err != nil {
			return nil, fmt.Errorf("price lookup for %s: %w", t.Symbol, err)
		}
		if price <= 0 {
			continue
		}
		targetValue := x.PortfolioValue * t.TargetPercent
		if targetValue < 0 {
			targetValue = -targetValue
		}
		if targetValue < x.MinOrderSize {
			continue
		}
		quantity := targetValue / price
		direction := domain.Buy
		if t.TargetPercent < 0 {
			direction = domain.Sell
		}
		orders = append(orders, &domain.Order{
			Symbol:    t.Symbol,
			Direction: direction,
			OrderType: domain.OrderTypeMarket,
			Quantity:  domain.MustDecimal(fmt.Sprintf("%.8f", quantity)),
			Status:    domain.OrderPending,
			CreatedNs: sctx.CurrentTimeNs,
		})
	}
	return orders, nil
}
