// Package risk is the reference RiskManagerPlugin: it wraps a single
// configurable riskmanager.PolicyRule and evaluates it directly, without the
// concurrent multi-model fan-out that internal/riskmanager.Manager performs
// across registered plugins like this one.
package risk

import (
	"context"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
	"github.com/b25/tradecore/internal/riskmanager"
)

type Plugin struct {
	*plugin.Base
	rule riskmanager.PolicyRule
}

func New(rule riskmanager.PolicyRule) *Plugin {
	return &Plugin{
		Base: plugin.NewBase(domain.PluginMetadata{ID: "sample-risk", Name: "Sample Risk Model", PluginType: domain.PluginTypeRiskManager}),
		rule: rule,
	}
}

func (p *Plugin) CheckOrderRisk(ctx context.Context, order *domain.Order, portfolio *domain.Portfolio) (domain.RiskCheckResult, error) {
	result := domain.RiskCheckResult{Passed: true, RiskLevel: domain.RiskLow, CheckedNs: time.Now().UnixNano()}
	report, fired := p.rule.Evaluate(order, portfolio)
	if !fired {
		return result, nil
	}
	result.Reports = []domain.RiskReport{report}
	result.RiskScore = report.Score
	if report.Severity >= domain.SeverityCritical {
		result.RiskLevel = domain.RiskCritical
		result.Passed = false
	} else if report.Severity >= domain.SeverityWarning {
		result.RiskLevel = domain.RiskMedium
		result.Passed = report.Score < 0.5
	}
	return result, nil
}

func (p *Plugin) CheckPortfolioRisk(ctx context.Context, portfolio *domain.Portfolio) (domain.RiskCheckResult, error) {
	return p.CheckOrderRisk(ctx, &domain.Order{}, portfolio)
}

func (p *Plugin) GetRiskMetrics() map[string]interface{} {
	return map[string]interface{}{"rule": p.rule.Name, "scope": p.rule.Scope}
}
