package datamanager

import (
	"context"
	"testing"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	*plugin.Base
	symbols []domain.Symbol
	tick    *domain.Tick
}

func newFakeSource(symbols ...domain.Symbol) *fakeSource {
	return &fakeSource{Base: plugin.NewBase(domain.PluginMetadata{ID: "fake"}), symbols: symbols}
}

func (f *fakeSource) Connect(ctx context.Context) error    { return nil }
func (f *fakeSource) Disconnect(ctx context.Context) error { return nil }
func (f *fakeSource) GetSupportedSymbols() []domain.Symbol  { return f.symbols }
func (f *fakeSource) SubscribeMarketData(ctx context.Context, symbol domain.Symbol) error   { return nil }
func (f *fakeSource) UnsubscribeMarketData(ctx context.Context, symbol domain.Symbol) error { return nil }
func (f *fakeSource) GetLatestTick(ctx context.Context, symbol domain.Symbol) (*domain.Tick, error) {
	return f.tick, nil
}
func (f *fakeSource) GetLatestBar(ctx context.Context, symbol domain.Symbol, tf *domain.Timeframe) (*domain.Bar, error) {
	return nil, nil
}
func (f *fakeSource) GetHistoricalBars(ctx context.Context, symbol domain.Symbol, startNs, endNs int64, tf *domain.Timeframe) ([]*domain.Bar, error) {
	return nil, nil
}

func sym() domain.Symbol { return domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto) }

func TestSubscribeRequiresConnected(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	src := newFakeSource(sym())
	require.NoError(t, m.RegisterSource("s1", src))
	err := m.Subscribe(context.Background(), sym(), "s1")
	require.Error(t, err, "source is not yet connected")
}

func TestSubscribeUnsubscribeRoundTrip(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	src := newFakeSource(sym())
	require.NoError(t, m.RegisterSource("s1", src))
	require.NoError(t, m.Connect(context.Background(), "s1"))
	require.NoError(t, m.Subscribe(context.Background(), sym(), "s1"))
	assert.ElementsMatch(t, []string{"s1"}, m.SubscribedSources(sym()))

	require.NoError(t, m.Unsubscribe(context.Background(), sym(), "s1"))
	assert.Empty(t, m.SubscribedSources(sym()))
}

func TestQueryCacheHitSkipsPlugin(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	src := newFakeSource(sym())
	tick, err := domain.NewTick(sym(), 1, decimal.NewFromInt(99), decimal.NewFromInt(101), decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	src.tick = tick
	require.NoError(t, m.RegisterSource("s1", src))
	require.NoError(t, m.Connect(context.Background(), "s1"))

	result, err := m.Query(context.Background(), DataQuery{Symbol: sym(), QueryType: QueryLatestTick, AllowCached: true})
	require.NoError(t, err)
	assert.False(t, result.FromCache, "first query must hit the plugin")

	cached, err := m.Query(context.Background(), DataQuery{Symbol: sym(), QueryType: QueryLatestTick, AllowCached: true})
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
}

func TestQueryNoAvailableSource(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	_, err := m.Query(context.Background(), DataQuery{Symbol: sym(), QueryType: QueryLatestTick})
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindNotFound, kind)
}

func TestRegisterSourceCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentSources = 1
	m := NewManager(cfg, nil)
	require.NoError(t, m.RegisterSource("s1", newFakeSource(sym())))
	err := m.RegisterSource("s2", newFakeSource(sym()))
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.KindCapacity, kind)
}

func TestCacheEntryExpiresAfterDataExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataExpiry = time.Millisecond
	m := NewManager(cfg, nil)
	src := newFakeSource(sym())
	tick, _ := domain.NewTick(sym(), 1, decimal.NewFromInt(99), decimal.NewFromInt(101), decimal.NewFromInt(1), decimal.NewFromInt(1))
	src.tick = tick
	require.NoError(t, m.RegisterSource("s1", src))
	require.NoError(t, m.Connect(context.Background(), "s1"))

	_, err := m.Query(context.Background(), DataQuery{Symbol: sym(), QueryType: QueryLatestTick, AllowCached: true})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	result, err := m.Query(context.Background(), DataQuery{Symbol: sym(), QueryType: QueryLatestTick, AllowCached: true})
	require.NoError(t, err)
	assert.False(t, result.FromCache, "expired cache entry must re-fetch")
}
