package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolNormalization(t *testing.T) {
	s := NewSymbol("btcusdt", "BINANCE", AssetCrypto)
	assert.Equal(t, "BTCUSDT", s.Code)
	assert.Equal(t, "binance", s.Exchange)
}

func TestNewBarInvariants(t *testing.T) {
	sym := NewSymbol("BTCUSDT", "binance", AssetCrypto)
	_, err := NewBar(sym, 1, TimeframeM1,
		decimal.NewFromInt(10), decimal.NewFromInt(5), decimal.NewFromInt(8), decimal.NewFromInt(9), decimal.Zero)
	require.Error(t, err, "low > high must fail")

	b, err := NewBar(sym, 1, TimeframeM1,
		decimal.NewFromInt(9), decimal.NewFromInt(11), decimal.NewFromInt(8), decimal.NewFromInt(10), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, b.Bullish())
}

func TestNewTickInvariants(t *testing.T) {
	sym := NewSymbol("BTCUSDT", "binance", AssetCrypto)
	_, err := NewTick(sym, 1, decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.Error(t, err, "bid == ask must fail")

	tick, err := NewTick(sym, 1, decimal.NewFromInt(99), decimal.NewFromInt(101), decimal.NewFromInt(2), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, tick.Mid().Equal(decimal.NewFromInt(100)))
	assert.True(t, tick.Imbalance().GreaterThan(decimal.Zero))
}

func TestOrderStateTransitions(t *testing.T) {
	o := &Order{Status: OrderPending, Quantity: decimal.NewFromInt(1)}
	require.NoError(t, o.Transition(OrderSubmitted, 1))
	require.NoError(t, o.Transition(OrderPartiallyFilled, 2))
	require.NoError(t, o.Transition(OrderFilled, 3))
	assert.True(t, o.Status.IsTerminal())
	assert.Error(t, o.Transition(OrderCancelled, 4), "terminal order cannot transition again")
}

func TestOrderValidateQuantityZero(t *testing.T) {
	o := &Order{Quantity: decimal.Zero, OrderType: OrderTypeMarket}
	err := o.Validate()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, kind)
}

func TestOrderBookInvariant(t *testing.T) {
	sym := NewSymbol("BTCUSDT", "binance", AssetCrypto)
	book := NewOrderBook(sym)
	book.UpdateBid(decimal.NewFromInt(100), decimal.NewFromInt(1))
	book.UpdateBid(decimal.NewFromInt(101), decimal.NewFromInt(1))
	book.UpdateAsk(decimal.NewFromInt(103), decimal.NewFromInt(1))
	book.UpdateAsk(decimal.NewFromInt(102), decimal.NewFromInt(1))

	bestBid, ok := book.Bids.Best()
	require.True(t, ok)
	bestAsk, ok := book.Asks.Best()
	require.True(t, ok)
	assert.True(t, bestBid.Price.LessThan(bestAsk.Price))
	assert.True(t, bestBid.Price.Equal(decimal.NewFromInt(101)))
	assert.True(t, bestAsk.Price.Equal(decimal.NewFromInt(102)))

	mid, ok := book.GetMidPrice()
	require.True(t, ok)
	assert.True(t, mid.Equal(decimal.NewFromFloat(101.5)))
}

func TestTradeNotionalAndNet(t *testing.T) {
	tr := &Trade{Direction: Buy, Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(10), Commission: decimal.NewFromFloat(0.5)}
	assert.True(t, tr.Notional().Equal(decimal.NewFromInt(20)))
	assert.True(t, tr.Net().Equal(decimal.NewFromFloat(20.5)))

	tr.Direction = Sell
	assert.True(t, tr.Net().Equal(decimal.NewFromFloat(19.5)))
}

func TestPositionUnrealizedPnL(t *testing.T) {
	p := &Position{Direction: Buy, Quantity: decimal.NewFromInt(10), AveragePrice: decimal.NewFromInt(100)}
	p.SetMarketPrice(decimal.NewFromInt(110), 1)
	assert.True(t, p.UnrealizedPnL.Equal(decimal.NewFromInt(100)))

	p.Direction = Sell
	p.SetMarketPrice(decimal.NewFromInt(90), 2)
	assert.True(t, p.UnrealizedPnL.Equal(decimal.NewFromInt(100)))
}

func TestInsightScoreAndExpiry(t *testing.T) {
	mag, conf := 1.0, 0.8
	exp := int64(100)
	i := &Insight{Direction: Up, Magnitude: &mag, Confidence: &conf, GeneratedNs: 1, ExpiryNs: &exp}
	assert.InDelta(t, 0.8, i.Score(), 1e-9)
	assert.False(t, i.Expired(50))
	assert.True(t, i.Expired(150))

	bare := &Insight{Direction: Flat}
	assert.Equal(t, 0.0, bare.Score())
}
