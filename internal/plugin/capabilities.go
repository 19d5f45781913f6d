package plugin

import (
	"context"

	"github.com/b25/tradecore/internal/domain"
)

// Each capability subtype embeds the base Plugin contract and adds the
// narrow set of methods that capability needs, per the "single base
// capability plus narrow extension capabilities" design note — concrete
// plugins declare which of these they satisfy rather than implementing one
// god-interface.

// DataSourcePlugin fronts a market-data feed.
type DataSourcePlugin interface {
	Plugin
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	GetSupportedSymbols() []domain.Symbol
	SubscribeMarketData(ctx context.Context, symbol domain.Symbol) error
	UnsubscribeMarketData(ctx context.Context, symbol domain.Symbol) error
	GetLatestTick(ctx context.Context, symbol domain.Symbol) (*domain.Tick, error)
	GetLatestBar(ctx context.Context, symbol domain.Symbol, tf *domain.Timeframe) (*domain.Bar, error)
	GetHistoricalBars(ctx context.Context, symbol domain.Symbol, startNs, endNs int64, tf *domain.Timeframe) ([]*domain.Bar, error)
}

// ExecutionPlugin fronts one venue or account for order execution.
type ExecutionPlugin interface {
	Plugin
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	GetSupportedSymbols() []domain.Symbol
	SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	CancelOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	QueryOrder(ctx context.Context, id string) (*domain.Order, error)
	GetAccountInfo(ctx context.Context) (map[string]interface{}, error)
}

// RiskManagerPlugin is a pluggable risk model evaluated by the risk manager.
type RiskManagerPlugin interface {
	Plugin
	CheckOrderRisk(ctx context.Context, order *domain.Order, portfolio *domain.Portfolio) (domain.RiskCheckResult, error)
	CheckPortfolioRisk(ctx context.Context, portfolio *domain.Portfolio) (domain.RiskCheckResult, error)
	GetRiskMetrics() map[string]interface{}
}

// StrategyPlugin is a trading strategy hosted by the strategy engine.
type StrategyPlugin interface {
	Plugin
	OnMarketData(ctx context.Context, data domain.MarketData) ([]domain.Signal, error)
	OnOrderUpdate(ctx context.Context, order *domain.Order) error
	OnTrade(ctx context.Context, trade *domain.Trade) error
	GetPositions() []*domain.Position
	GenerateSignals(ctx context.Context, sctx interface{}) ([]domain.Signal, error)
}

// MonitoringPlugin reports metrics and health to the monitoring engine.
type MonitoringPlugin interface {
	Plugin
	CollectMetrics(ctx context.Context) ([]domain.MetricDataPoint, error)
	GetHealthStatus(ctx context.Context) (HealthStatus, error)
	GetSupportedMetrics() []string
	ConfigureMonitoring(config map[string]interface{}) error
}
