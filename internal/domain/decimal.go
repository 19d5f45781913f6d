package domain

import "github.com/shopspring/decimal"

// Price and Quantity are fixed-point decimals: every price/quantity/notional/
// PnL computation in the framework goes through shopspring/decimal rather
// than binary float, per the mandatory decimal-arithmetic design note.
type Price = decimal.Decimal
type Quantity = decimal.Decimal
type Money = decimal.Decimal

func ZeroPrice() Price { return decimal.Zero }

func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
