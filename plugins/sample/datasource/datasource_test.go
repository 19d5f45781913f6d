package datasource

import (
	"context"
	"testing"

	"github.com/b25/tradecore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func btcusdt() domain.Symbol { return domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto) }

func TestGetLatestTickSupportedSymbolWithoutSubscription(t *testing.T) {
	p := New([]domain.Symbol{btcusdt()})
	tick, err := p.GetLatestTick(context.Background(), btcusdt())
	require.NoError(t, err)
	assert.True(t, tick.BidPrice.LessThan(tick.AskPrice))
}

func TestGetLatestTickUnsupportedSymbolFails(t *testing.T) {
	p := New([]domain.Symbol{btcusdt()})
	_, err := p.GetLatestTick(context.Background(), domain.NewSymbol("ETHUSDT", "binance", domain.AssetCrypto))
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.KindNotFound, kind)
}

func TestSubscribeThenUnsubscribe(t *testing.T) {
	p := New([]domain.Symbol{btcusdt()})
	require.NoError(t, p.SubscribeMarketData(context.Background(), btcusdt()))
	require.NoError(t, p.UnsubscribeMarketData(context.Background(), btcusdt()))
}

func TestGetHistoricalBarsBoundedAt100(t *testing.T) {
	p := New([]domain.Symbol{btcusdt()})
	bars, err := p.GetHistoricalBars(context.Background(), btcusdt(), 0, 1_000_000, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(bars), 100)
}
