package execution

import (
	"context"
	"testing"

	"github.com/b25/tradecore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func btcusdt() domain.Symbol { return domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto) }

func fixedPrice(px string) PriceLookup {
	return func(ctx context.Context, symbol domain.Symbol) (domain.Price, error) {
		return domain.MustDecimal(px), nil
	}
}

func TestMarketOrderFillsInstantlyAtLastPrice(t *testing.T) {
	p := New([]domain.Symbol{btcusdt()}, fixedPrice("50000"))
	order := &domain.Order{Symbol: btcusdt(), Direction: domain.Buy, OrderType: domain.OrderTypeMarket, Quantity: domain.MustDecimal("1")}

	filled, err := p.SubmitOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFilled, filled.Status)
	assert.True(t, filled.FilledQuantity.Equal(domain.MustDecimal("1")))
	require.NotNil(t, filled.AverageFillPrice)
	assert.True(t, filled.AverageFillPrice.Equal(domain.MustDecimal("50000")))
}

func TestLimitOrderRestsUnfilled(t *testing.T) {
	price := domain.MustDecimal("49000")
	p := New([]domain.Symbol{btcusdt()}, fixedPrice("50000"))
	order := &domain.Order{Symbol: btcusdt(), Direction: domain.Buy, OrderType: domain.OrderTypeLimit, Price: &price, Quantity: domain.MustDecimal("1")}

	submitted, err := p.SubmitOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSubmitted, submitted.Status)
}

func TestCancelOrder(t *testing.T) {
	price := domain.MustDecimal("49000")
	p := New([]domain.Symbol{btcusdt()}, fixedPrice("50000"))
	order := &domain.Order{Symbol: btcusdt(), Direction: domain.Buy, OrderType: domain.OrderTypeLimit, Price: &price, Quantity: domain.MustDecimal("1")}
	submitted, err := p.SubmitOrder(context.Background(), order)
	require.NoError(t, err)

	cancelled, err := p.CancelOrder(context.Background(), submitted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
}

func TestQueryOrderNotFound(t *testing.T) {
	p := New([]domain.Symbol{btcusdt()}, fixedPrice("50000"))
	_, err := p.QueryOrder(context.Background(), "missing")
	require.Error(t, err)
}
