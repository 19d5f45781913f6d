package riskmanager

import (
	"context"
	"testing"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"go.uber.org/zap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxConcurrentModels:   4,
		RiskCheckTimeout:      50 * time.Millisecond,
		MaxSingleOrderAmount:  domain.MustDecimal("100000"),
		MaxTotalPositionValue: domain.MustDecimal("1000"),
		MaxLeverage:           3,
		WarningThreshold:      0.7,
		LiquidationThreshold:  0.95,
		RealtimeMonitoring:    true,
	}
}

// TestScenarioS3PortfolioBreachIsCritical implements S3 from the spec:
// total_value exceeds max_total_position_value, so the check must fail
// with a Critical PositionRisk report recommending immediate liquidation
// and risk_score 1.0.
func TestScenarioS3PortfolioBreachIsCritical(t *testing.T) {
	m := NewManager(testConfig(), nil)
	portfolio := &domain.Portfolio{TotalValue: domain.MustDecimal("2000"), CashBalance: domain.MustDecimal("500")}
	order := &domain.Order{ID: "o1", Symbol: domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto), Quantity: domain.MustDecimal("0.01")}

	result := m.CheckOrderRisk(context.Background(), order, portfolio)

	assert.False(t, result.Passed)
	assert.Equal(t, domain.RiskCritical, result.RiskLevel)
	assert.Equal(t, 1.0, result.RiskScore)

	found := false
	for _, r := range result.Reports {
		if r.Kind == domain.ReportPositionRisk && r.Severity == domain.SeverityCritical && r.Recommendation == domain.RecommendationImmediateLiquidation {
			found = true
		}
	}
	assert.True(t, found, "expected a Critical PositionRisk report recommending immediate liquidation")
}

func TestRiskScoreAtWarningThresholdFails(t *testing.T) {
	cfg := testConfig()
	m := NewManager(cfg, nil)
	m.PolicyEngine().Register(PolicyRule{
		Name:  "fixed-score",
		Scope: "account",
		Evaluate: func(order *domain.Order, portfolio *domain.Portfolio) (domain.RiskReport, bool) {
			return domain.RiskReport{Kind: domain.ReportOperational, Severity: domain.SeverityWarning, Score: cfg.WarningThreshold, Source: "fixed"}, true
		},
	})

	order := &domain.Order{ID: "o2", Symbol: domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto), Quantity: domain.MustDecimal("0.01")}
	portfolio := &domain.Portfolio{TotalValue: domain.MustDecimal("100"), CashBalance: domain.MustDecimal("1000")}

	result := m.CheckOrderRisk(context.Background(), order, portfolio)
	assert.False(t, result.Passed, "risk_score exactly at warning_threshold must not pass")
}

func TestRiskLevelAtLiquidationThresholdIsCritical(t *testing.T) {
	cfg := testConfig()
	m := NewManager(cfg, nil)
	m.PolicyEngine().Register(PolicyRule{
		Name:  "fixed-score",
		Scope: "account",
		Evaluate: func(order *domain.Order, portfolio *domain.Portfolio) (domain.RiskReport, bool) {
			return domain.RiskReport{Kind: domain.ReportOperational, Severity: domain.SeverityWarning, Score: cfg.LiquidationThreshold, Source: "fixed"}, true
		},
	})

	order := &domain.Order{ID: "o3", Symbol: domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto), Quantity: domain.MustDecimal("0.01")}
	portfolio := &domain.Portfolio{TotalValue: domain.MustDecimal("100"), CashBalance: domain.MustDecimal("1000")}

	result := m.CheckOrderRisk(context.Background(), order, portfolio)
	assert.Equal(t, domain.RiskCritical, result.RiskLevel)
}

func TestRegisterModelCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentModels = 1
	m := NewManager(cfg, nil)
	require.NoError(t, m.RegisterModel("m1", nil))
	err := m.RegisterModel("m2", nil)
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.KindCapacity, kind)
}

func TestUpdatePortfolioEmitsEmergencyOnCriticalBreach(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 4)
	m := NewManager(testConfig(), bus)
	sub, unsub := bus.Subscribe()
	defer unsub()

	m.UpdatePortfolio(context.Background(), &domain.Portfolio{TotalValue: domain.MustDecimal("5000"), CashBalance: domain.MustDecimal("100")})

	select {
	case ev := <-sub:
		assert.Equal(t, events.KindEmergency, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected an emergency event to be published")
	}
}
