package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/b25/tradecore/internal/domain"
)

// Stage names used in a short-circuited Result's Stage field.
const (
	StageUniverse  = "universe_selector"
	StageAlpha     = "alpha_model"
	StagePortfolio = "portfolio_constructor"
	StageRisk      = "risk_stage"
	StageExecution = "execution_algorithm"
)

// Result is the outcome of one pipeline pass, per spec §4.9.
type Result struct {
	Success           bool
	Stage             string
	Error             error
	UniverseSize      int
	InsightsGenerated int
	TargetsCreated    int
	OrdersGenerated   int
	Orders            []*domain.Order
	ExecutionTime     time.Duration
}

// Pipeline wires the five stage contracts for one strategy.
type Pipeline struct {
	Universe  UniverseSelector
	Alpha     AlphaModel
	Portfolio PortfolioConstructor
	Risk      RiskStage
	Execution ExecutionAlgorithm
	Timeout   time.Duration
}

// Run executes the five stages sequentially, each bounded by Timeout;
// any failure short-circuits the pass.
func (p *Pipeline) Run(ctx context.Context, sctx *StrategyContext) Result {
	start := time.Now()

	universe, err := p.callUniverse(ctx, sctx)
	if err != nil {
		return Result{Stage: StageUniverse, Error: err, ExecutionTime: time.Since(start)}
	}

	insights, err := p.callAlpha(ctx, sctx, universe)
	if err != nil {
		return Result{Stage: StageAlpha, Error: err, ExecutionTime: time.Since(start)}
	}

	targets, err := p.callPortfolio(ctx, sctx, insights)
	if err != nil {
		return Result{Stage: StagePortfolio, Error: err, ExecutionTime: time.Since(start)}
	}

	adjusted, err := p.callRisk(ctx, sctx, targets)
	if err != nil {
		return Result{Stage: StageRisk, Error: err, ExecutionTime: time.Since(start)}
	}

	orders, err := p.callExecution(ctx, sctx, adjusted)
	if err != nil {
		return Result{Stage: StageExecution, Error: err, ExecutionTime: time.Since(start)}
	}

	return Result{
		Success:           true,
		UniverseSize:      len(universe),
		InsightsGenerated: len(insights),
		TargetsCreated:    len(adjusted),
		OrdersGenerated:   len(orders),
		Orders:            orders,
		ExecutionTime:     time.Since(start),
	}
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.Timeout)
}

func (p *Pipeline) callUniverse(ctx context.Context, sctx *StrategyContext) ([]domain.Symbol, error) {
	cctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.Universe.SelectUniverse(cctx, sctx)
}

func (p *Pipeline) callAlpha(ctx context.Context, sctx *StrategyContext, universe []domain.Symbol) ([]domain.Insight, error) {
	cctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.Alpha.GenerateInsights(cctx, sctx, universe)
}

func (p *Pipeline) callPortfolio(ctx context.Context, sctx *StrategyContext, insights []domain.Insight) ([]domain.PortfolioTarget, error) {
	cctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.Portfolio.ConstructTargets(cctx, sctx, insights)
}

func (p *Pipeline) callRisk(ctx context.Context, sctx *StrategyContext, targets []domain.PortfolioTarget) ([]domain.PortfolioTarget, error) {
	cctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.Risk.AdjustTargets(cctx, sctx, targets)
}

func (p *Pipeline) callExecution(ctx context.Context, sctx *StrategyContext, targets []domain.PortfolioTarget) ([]*domain.Order, error) {
	cctx, cancel := p.withTimeout(ctx)
	defer cancel()
	orders, err := p.Execution.BuildOrders(cctx, sctx, targets)
	if err != nil {
		return nil, fmt.Errorf("execution stage: %w", err)
	}
	return orders, nil
}
