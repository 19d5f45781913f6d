package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Timeframe enumerates the bar granularities the framework recognizes.
type Timeframe int

const (
	TimeframeTick Timeframe = iota
	TimeframeS1
	TimeframeS5
	TimeframeS15
	TimeframeS30
	TimeframeM1
	TimeframeM5
	TimeframeM15
	TimeframeM30
	TimeframeH1
	TimeframeH4
	TimeframeH12
	TimeframeD1
	TimeframeW1
	TimeframeMo1
)

// Bar is an OHLCV candle. Invariants enforced by NewBar: low <= open,close <=
// high, low <= high, all prices positive.
type Bar struct {
	Symbol       Symbol
	TimestampNs  int64
	Timeframe    Timeframe
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Volume       decimal.Decimal
	Turnover     *decimal.Decimal
	OpenInterest *decimal.Decimal
}

func NewBar(symbol Symbol, ts int64, tf Timeframe, open, high, low, close, volume decimal.Decimal) (*Bar, error) {
	if low.GreaterThan(high) {
		return nil, Validation("NewBar", fmt.Errorf("low %s > high %s", low, high))
	}
	for _, p := range []decimal.Decimal{open, high, low, close} {
		if !p.IsPositive() {
			return nil, Validation("NewBar", fmt.Errorf("prices must be positive"))
		}
	}
	if open.LessThan(low) || open.GreaterThan(high) {
		return nil, Validation("NewBar", fmt.Errorf("open %s outside [low,high]", open))
	}
	if close.LessThan(low) || close.GreaterThan(high) {
		return nil, Validation("NewBar", fmt.Errorf("close %s outside [low,high]", close))
	}
	return &Bar{Symbol: symbol, TimestampNs: ts, Timeframe: tf, Open: open, High: high, Low: low, Close: close, Volume: volume}, nil
}

func (b *Bar) Bullish() bool { return b.Close.GreaterThan(b.Open) }
