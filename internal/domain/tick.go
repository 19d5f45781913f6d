package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tick is a best bid/ask quote, optionally carrying the last trade.
// Invariants enforced by NewTick: bid_price < ask_price, positive prices.
type Tick struct {
	Symbol      Symbol
	TimestampNs int64
	BidPrice    decimal.Decimal
	AskPrice    decimal.Decimal
	BidSize     decimal.Decimal
	AskSize     decimal.Decimal
	LastPrice   *decimal.Decimal
	LastSize    *decimal.Decimal
}

func NewTick(symbol Symbol, ts int64, bidPrice, askPrice, bidSize, askSize decimal.Decimal) (*Tick, error) {
	if !bidPrice.IsPositive() || !askPrice.IsPositive() {
		return nil, Validation("NewTick", fmt.Errorf("prices must be positive"))
	}
	if !bidPrice.LessThan(askPrice) {
		return nil, Validation("NewTick", fmt.Errorf("bid %s must be < ask %s", bidPrice, askPrice))
	}
	return &Tick{Symbol: symbol, TimestampNs: ts, BidPrice: bidPrice, AskPrice: askPrice, BidSize: bidSize, AskSize: askSize}, nil
}

func (t *Tick) Mid() decimal.Decimal {
	return t.BidPrice.Add(t.AskPrice).Div(decimal.NewFromInt(2))
}

// Imbalance = (bid_size - ask_size) / (bid_size + ask_size).
func (t *Tick) Imbalance() decimal.Decimal {
	sum := t.BidSize.Add(t.AskSize)
	if sum.IsZero() {
		return decimal.Zero
	}
	return t.BidSize.Sub(t.AskSize).Div(sum)
}

// MarketData is the union of the two market-data granularities the core
// ingests and broadcasts.
type MarketData struct {
	Tick *Tick
	Bar  *Bar
}

func (m MarketData) Symbol() Symbol {
	if m.Tick != nil {
		return m.Tick.Symbol
	}
	return m.Bar.Symbol
}

func (m MarketData) TimestampNs() int64 {
	if m.Tick != nil {
		return m.Tick.TimestampNs
	}
	return m.Bar.TimestampNs
}
