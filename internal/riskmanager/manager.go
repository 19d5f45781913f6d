package riskmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"github.com/b25/tradecore/internal/plugin"
)

const maxHistory = 1000

// ModelStats tracks a risk model's operational counters.
type ModelStats struct {
	TotalChecks      uint64
	Passed           uint64
	Failed           uint64
	MaxRiskScore     float64
	AvgRiskScore     float64
	AvgCheckTime     time.Duration
	ReportsGenerated uint64
}

// Config bounds framework-level thresholds.
type Config struct {
	MaxConcurrentModels     int
	RiskCheckTimeout        time.Duration
	MaxSingleOrderAmount    domain.Money
	MaxTotalPositionValue   domain.Money
	MaxLeverage             float64
	WarningThreshold        float64
	LiquidationThreshold    float64
	RealtimeMonitoring      bool
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentModels:   32,
		RiskCheckTimeout:      500 * time.Millisecond,
		MaxSingleOrderAmount:  domain.MustDecimal("100000"),
		MaxTotalPositionValue: domain.MustDecimal("1000000"),
		MaxLeverage:           5.0,
		WarningThreshold:      0.5,
		LiquidationThreshold:  0.9,
		RealtimeMonitoring:    true,
	}
}

// Manager hosts risk model plugins and runs the parallel check algorithm.
type Manager struct {
	cfg          Config
	bus          *events.Bus
	policyEngine *PolicyEngine

	mu            sync.RWMutex
	models        map[string]plugin.RiskManagerPlugin
	modelStats    map[string]*ModelStats
	history       []domain.RiskCheckResult
	portfolio     *domain.Portfolio
}

func NewManager(cfg Config, bus *events.Bus) *Manager {
	return &Manager{
		cfg:          cfg,
		bus:          bus,
		policyEngine: NewPolicyEngine(),
		models:       make(map[string]plugin.RiskManagerPlugin),
		modelStats:   make(map[string]*ModelStats),
	}
}

func (m *Manager) PolicyEngine() *PolicyEngine { return m.policyEngine }

func (m *Manager) RegisterModel(id string, p plugin.RiskManagerPlugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.models) >= m.cfg.MaxConcurrentModels {
		return domain.Capacity("Manager.RegisterModel", fmt.Errorf("max_concurrent_models reached"))
	}
	if _, exists := m.models[id]; exists {
		return domain.StateConflict("Manager.RegisterModel", fmt.Errorf("model %q already registered", id))
	}
	m.models[id] = p
	m.modelStats[id] = &ModelStats{}
	return nil
}

type modelOutcome struct {
	id      string
	reports []domain.RiskReport
	score   float64
}

// CheckOrderRisk runs every Running model concurrently under timeout,
// collects per-model reports, runs framework-level checks, then aggregates
// risk_score/risk_level/passed per the mandatory rules.
func (m *Manager) CheckOrderRisk(ctx context.Context, order *domain.Order, portfolio *domain.Portfolio) domain.RiskCheckResult {
	m.mu.RLock()
	models := make(map[string]plugin.RiskManagerPlugin, len(m.models))
	for id, p := range m.models {
		if p.State() == plugin.StateRunning {
			models[id] = p
		}
	}
	m.mu.RUnlock()

	outcomes := m.runModelsConcurrently(ctx, models, order, portfolio)

	var allReports []domain.RiskReport
	maxScore := 0.0
	for _, o := range outcomes {
		allReports = append(allReports, o.reports...)
		if o.score > maxScore {
			maxScore = o.score
		}
	}

	frameworkReports, frameworkMax := m.frameworkChecks(order, portfolio)
	allReports = append(allReports, frameworkReports...)
	if frameworkMax > maxScore {
		maxScore = frameworkMax
	}

	policyReports := m.policyEngine.EvaluateAll(order, portfolio)
	allReports = append(allReports, policyReports...)
	for _, r := range policyReports {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	level := classifyRiskLevel(maxScore, m.cfg.WarningThreshold, m.cfg.LiquidationThreshold)
	hasCritical := false
	for _, r := range allReports {
		if r.Severity == domain.SeverityCritical {
			hasCritical = true
			break
		}
	}
	passed := maxScore < m.cfg.WarningThreshold && !hasCritical

	result := domain.RiskCheckResult{Passed: passed, RiskScore: maxScore, RiskLevel: level, Reports: allReports, CheckedNs: time.Now().UnixNano()}
	m.appendHistory(result)
	return result
}

func (m *Manager) runModelsConcurrently(ctx context.Context, models map[string]plugin.RiskManagerPlugin, order *domain.Order, portfolio *domain.Portfolio) []modelOutcome {
	outcomes := make([]modelOutcome, len(models))
	var wg sync.WaitGroup
	i := 0
	for id, p := range models {
		idx := i
		i++
		wg.Add(1)
		go func(id string, p plugin.RiskManagerPlugin, idx int) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, m.cfg.RiskCheckTimeout)
			defer cancel()

			start := time.Now()
			check, err := p.CheckOrderRisk(cctx, order, portfolio)
			elapsed := time.Since(start)

			var outcome modelOutcome
			outcome.id = id
			if err != nil || cctx.Err() != nil {
				outcome.reports = []domain.RiskReport{{Kind: domain.ReportOperational, Severity: domain.SeverityWarning, Message: "model check failed or timed out", Source: id}}
				outcome.score = 0
			} else {
				outcome.reports = check.Reports
				outcome.score = check.RiskScore
			}
			outcomes[idx] = outcome
			m.updateModelStats(id, outcome.score, err == nil && cctx.Err() == nil, elapsed, len(outcome.reports))
		}(id, p, idx)
	}
	wg.Wait()
	return outcomes
}

func (m *Manager) updateModelStats(id string, score float64, passed bool, elapsed time.Duration, reportCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.modelStats[id]
	if !ok {
		return
	}
	s.TotalChecks++
	if passed {
		s.Passed++
	} else {
		s.Failed++
	}
	if score > s.MaxRiskScore {
		s.MaxRiskScore = score
	}
	s.AvgRiskScore = (s.AvgRiskScore + score) / 2
	if s.TotalChecks == 1 {
		s.AvgCheckTime = elapsed
	} else {
		s.AvgCheckTime = (s.AvgCheckTime + elapsed) / 2
	}
	s.ReportsGenerated += uint64(reportCount)
}

// frameworkChecks implements the three mandatory checks: order notional,
// portfolio total value, and leverage.
func (m *Manager) frameworkChecks(order *domain.Order, portfolio *domain.Portfolio) ([]domain.RiskReport, float64) {
	var reports []domain.RiskReport
	maxScore := 0.0

	if order.Price != nil && !m.cfg.MaxSingleOrderAmount.IsZero() {
		notional := order.Price.Mul(order.Quantity)
		if notional.GreaterThan(m.cfg.MaxSingleOrderAmount) {
			reports = append(reports, domain.RiskReport{
				Kind: domain.ReportPositionRisk, Severity: domain.SeverityError,
				Message: "order notional exceeds max_single_order_amount", Score: 0.9,
				Recommendation: domain.RecommendationReducePosition, Source: "framework",
			})
			if 0.9 > maxScore {
				maxScore = 0.9
			}
		}
	}

	if portfolio != nil && !m.cfg.MaxTotalPositionValue.IsZero() && portfolio.TotalValue.GreaterThan(m.cfg.MaxTotalPositionValue) {
		reports = append(reports, domain.RiskReport{
			Kind: domain.ReportPositionRisk, Severity: domain.SeverityCritical,
			Message: "portfolio total_value exceeds max_total_position_value", Score: 1.0,
			Recommendation: domain.RecommendationImmediateLiquidation, Source: "framework",
		})
		maxScore = 1.0
	}

	if portfolio != nil && m.cfg.MaxLeverage > 0 && portfolio.CashBalance.IsPositive() {
		cash, _ := portfolio.CashBalance.Float64()
		total, _ := portfolio.TotalValue.Float64()
		leverage := total / cash
		if leverage > m.cfg.MaxLeverage {
			reports = append(reports, domain.RiskReport{
				Kind: domain.ReportLeverageRisk, Severity: domain.SeverityWarning,
				Message: "leverage exceeds max_leverage", Score: 0.7,
				Recommendation: domain.RecommendationReduceLeverage, Source: "framework",
			})
			if 0.7 > maxScore {
				maxScore = 0.7
			}
		}
	}

	return reports, maxScore
}

func classifyRiskLevel(score, warningThreshold, liquidationThreshold float64) domain.RiskLevel {
	switch {
	case score >= liquidationThreshold:
		return domain.RiskCritical
	case score >= warningThreshold:
		return domain.RiskHigh
	case score >= 0.5:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func (m *Manager) appendHistory(result domain.RiskCheckResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, result)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// UpdatePortfolio replaces the stored snapshot and, if realtime monitoring
// is enabled, re-runs the portfolio-level framework checks, emitting an
// emergency event onto the event bus when the risk level reaches the
// liquidation threshold — the risk manager itself never submits orders.
func (m *Manager) UpdatePortfolio(ctx context.Context, portfolio *domain.Portfolio) {
	m.mu.Lock()
	m.portfolio = portfolio
	m.mu.Unlock()

	if !m.cfg.RealtimeMonitoring {
		return
	}

	reports, maxScore := m.frameworkChecks(&domain.Order{}, portfolio)
	level := classifyRiskLevel(maxScore, m.cfg.WarningThreshold, m.cfg.LiquidationThreshold)
	if level == domain.RiskCritical && m.bus != nil {
		m.bus.Publish(events.Event{
			Kind:        events.KindEmergency,
			Priority:    events.PriorityCritical,
			TimestampNs: time.Now().UnixNano(),
			Payload:     domain.RiskCheckResult{Passed: false, RiskScore: maxScore, RiskLevel: level, Reports: reports, CheckedNs: time.Now().UnixNano()},
		})
	}
}

func (m *Manager) History() []domain.RiskCheckResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.RiskCheckResult{}, m.history...)
}
