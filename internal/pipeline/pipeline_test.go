package pipeline

import (
	"context"
	"testing"

	"github.com/b25/tradecore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedUniverse struct{ symbols []domain.Symbol }

func (f fixedUniverse) SelectUniverse(ctx context.Context, sctx *StrategyContext) ([]domain.Symbol, error) {
	return f.symbols, nil
}

type fixedAlpha struct{ insights []domain.Insight }

func (f fixedAlpha) GenerateInsights(ctx context.Context, sctx *StrategyContext, universe []domain.Symbol) ([]domain.Insight, error) {
	return f.insights, nil
}

func btcusdt() domain.Symbol { return domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto) }

// TestScenarioS4PipelinePass implements S4 from the spec verbatim.
func TestScenarioS4PipelinePass(t *testing.T) {
	magnitude, confidence := 1.0, 0.8
	insight := domain.Insight{Symbol: btcusdt(), Direction: domain.Up, Magnitude: &magnitude, Confidence: &confidence}

	p := &Pipeline{
		Universe:  fixedUniverse{symbols: []domain.Symbol{btcusdt()}},
		Alpha:     fixedAlpha{insights: []domain.Insight{insight}},
		Portfolio: EqualWeightPortfolio{},
		Risk:      CapRiskStage{MaxPositionSize: 0.15},
		Execution: MarketOrderExecutor{
			PortfolioValue: 100000,
			MinOrderSize:   1,
			PriceOf:        func(s domain.Symbol) (float64, error) { return 50000, nil },
		},
	}

	result := p.Run(context.Background(), &StrategyContext{})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.UniverseSize)
	assert.Equal(t, 1, result.InsightsGenerated)
	assert.Equal(t, 1, result.TargetsCreated)
	assert.Equal(t, 1, result.OrdersGenerated)
	require.Len(t, result.Orders, 1)
	qty, _ := result.Orders[0].Quantity.Float64()
	assert.InDelta(t, 0.2, qty, 1e-8)
	assert.Equal(t, domain.Buy, result.Orders[0].Direction)
}

type failingUniverse struct{}

func (failingUniverse) SelectUniverse(ctx context.Context, sctx *StrategyContext) ([]domain.Symbol, error) {
	return nil, assertErr
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "universe selection failed" }

func TestPipelineShortCircuitsOnStageFailure(t *testing.T) {
	p := &Pipeline{
		Universe:  failingUniverse{},
		Alpha:     fixedAlpha{},
		Portfolio: EqualWeightPortfolio{},
		Risk:      CapRiskStage{MaxPositionSize: 1},
		Execution: MarketOrderExecutor{PriceOf: func(s domain.Symbol) (float64, error) { return 1, nil }},
	}

	result := p.Run(context.Background(), &StrategyContext{})
	assert.False(t, result.Success)
	assert.Equal(t, StageUniverse, result.Stage)
	assert.Error(t, result.Error)
}

func TestCapRiskStageClampsTargetPercent(t *testing.T) {
	stage := CapRiskStage{MaxPositionSize: 0.1}
	out, err := stage.AdjustTargets(context.Background(), &StrategyContext{}, []domain.PortfolioTarget{
		{Symbol: btcusdt(), TargetPercent: 0.5},
		{Symbol: btcusdt(), TargetPercent: -0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, out[0].TargetPercent)
	assert.Equal(t, -0.1, out[1].TargetPercent)
}

func TestMarketOrderExecutorSkipsBelowMinOrderSize(t *testing.T) {
	exec := MarketOrderExecutor{PortfolioValue: 1000, MinOrderSize: 500, PriceOf: func(s domain.Symbol) (float64, error) { return 10, nil }}
	orders, err := exec.BuildOrders(context.Background(), &StrategyContext{}, []domain.PortfolioTarget{
		{Symbol: btcusdt(), TargetPercent: 0.01}, // notional = 10, below MinOrderSize
	})
	require.NoError(t, err)
	assert.Empty(t, orders)
}
