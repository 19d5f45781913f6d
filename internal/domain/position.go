package domain

import "github.com/shopspring/decimal"

// Position is a strategy's or account's holding in a symbol.
type Position struct {
	ID            string
	Symbol        Symbol
	Direction     Direction
	Quantity      decimal.Decimal
	AveragePrice  decimal.Decimal
	MarketPrice   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	RealizedPnL   decimal.Decimal
	CreatedNs     int64
	UpdatedNs     int64
	StrategyID    string
}

// SetMarketPrice updates MarketPrice and recomputes UnrealizedPnL =
// sign(direction) * (market_price - average_price) * quantity.
func (p *Position) SetMarketPrice(price decimal.Decimal, nowNs int64) {
	p.MarketPrice = price
	diff := price.Sub(p.AveragePrice)
	pnl := diff.Mul(p.Quantity)
	if p.Direction == Sell {
		pnl = pnl.Neg()
	}
	p.UnrealizedPnL = pnl
	p.UpdatedNs = nowNs
}
