package domain

import "github.com/shopspring/decimal"

// Trade is a single fill against an order.
type Trade struct {
	ID          string
	OrderID     string
	Symbol      Symbol
	Direction   Direction
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Commission  decimal.Decimal
	TimestampNs int64
	StrategyID  string
}

func (t *Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// Net = notional + sign(direction)*commission: a buy adds commission to
// cost, a sell subtracts it from proceeds.
func (t *Trade) Net() decimal.Decimal {
	notional := t.Notional()
	if t.Direction == Sell {
		return notional.Sub(t.Commission)
	}
	return notional.Add(t.Commission)
}
