package domain

import "github.com/shopspring/decimal"

// PortfolioTarget is the desired signed weight of a symbol in the portfolio.
// TargetPercent is signed: negative means short.
type PortfolioTarget struct {
	Symbol        Symbol
	TargetPercent float64
	TargetQuantity *decimal.Decimal
	TargetValue    *decimal.Decimal
	GeneratedNs    int64
	Priority       *int
	Tag            *string
}
