package riskmanager

import "github.com/b25/tradecore/internal/domain"

// PolicyRule is the additive extension point from the supplemented
// source material: an extra rule contributing a report into the same
// aggregation step as the three mandatory framework checks. With zero
// extra policies registered, CheckOrderRisk's behavior is identical to the
// spec's unmodified framework-check list.
type PolicyRule struct {
	Name    string
	Scope   string // "account", "symbol", "strategy"
	Evaluate func(order *domain.Order, portfolio *domain.Portfolio) (domain.RiskReport, bool)
}

// PolicyEngine holds the optional extra rules. Grounded on the teacher's
// risk-manager PolicyEngine.EvaluateAll shape.
type PolicyEngine struct {
	rules []PolicyRule
}

func NewPolicyEngine() *PolicyEngine { return &PolicyEngine{} }

func (p *PolicyEngine) Register(rule PolicyRule) { p.rules = append(p.rules, rule) }

func (p *PolicyEngine) EvaluateAll(order *domain.Order, portfolio *domain.Portfolio) []domain.RiskReport {
	var reports []domain.RiskReport
	for _, rule := range p.rules {
		if report, fired := rule.Evaluate(order, portfolio); fired {
			reports = append(reports, report)
		}
	}
	return reports
}
