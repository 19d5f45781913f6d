package ordermanager

import (
	"context"
	"testing"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	*plugin.Base
	symbols []domain.Symbol
}

func newFakeGateway(symbols ...domain.Symbol) *fakeGateway {
	return &fakeGateway{Base: plugin.NewBase(domain.PluginMetadata{ID: "gw"}), symbols: symbols}
}

func (f *fakeGateway) Connect(ctx context.Context) error    { return nil }
func (f *fakeGateway) Disconnect(ctx context.Context) error { return nil }
func (f *fakeGateway) GetSupportedSymbols() []domain.Symbol  { return f.symbols }

func (f *fakeGateway) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	out := *order
	out.Status = domain.OrderSubmitted
	_ = out.Transition(domain.OrderFilled, 2)
	out.FilledQuantity = out.Quantity
	return &out, nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	out := *order
	_ = out.Transition(domain.OrderCancelled, 3)
	return &out, nil
}

func (f *fakeGateway) QueryOrder(ctx context.Context, id string) (*domain.Order, error) { return nil, nil }
func (f *fakeGateway) GetAccountInfo(ctx context.Context) (map[string]interface{}, error) {
	return nil, nil
}

func sym() domain.Symbol { return domain.NewSymbol("BTCUSDT", "binance", domain.AssetCrypto) }

// TestScenarioS1MarketOrderHappyPath implements S1 from the spec.
func TestScenarioS1MarketOrderHappyPath(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	gw := newFakeGateway(sym())
	require.NoError(t, m.RegisterGateway("gw1", gw))
	require.NoError(t, m.Connect(context.Background(), "gw1"))

	order := &domain.Order{ID: "o1", Symbol: sym(), Direction: domain.Buy, OrderType: domain.OrderTypeMarket, Quantity: decimal.NewFromInt(1), Status: domain.OrderPending}
	result, err := m.Submit(context.Background(), order, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "gw1", result.GatewayID)
	assert.Equal(t, domain.OrderFilled, result.Executed.Status)
	assert.True(t, result.Executed.FilledQuantity.Equal(decimal.NewFromInt(1)))

	rt, err := m.gateway("gw1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rt.Stats.OrdersSent)
	assert.EqualValues(t, 1, rt.Stats.OrdersExecuted)
}

// TestScenarioS2ValidationRejection implements S2 from the spec.
func TestScenarioS2ValidationRejection(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	gw := newFakeGateway(sym())
	require.NoError(t, m.RegisterGateway("gw1", gw))
	require.NoError(t, m.Connect(context.Background(), "gw1"))

	zero := decimal.Zero
	order := &domain.Order{ID: "o2", Symbol: sym(), Direction: domain.Buy, OrderType: domain.OrderTypeLimit, Quantity: decimal.NewFromInt(1), Price: &zero, Status: domain.OrderPending}
	_, err := m.Submit(context.Background(), order, nil)
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindValidation, kind)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestCancelRequiresActiveOrder(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	_, err := m.Cancel(context.Background(), "missing")
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.KindNotFound, kind)
}

func TestBatchSubmitAccumulatesFailures(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	gw := newFakeGateway(sym())
	require.NoError(t, m.RegisterGateway("gw1", gw))
	require.NoError(t, m.Connect(context.Background(), "gw1"))

	zero := decimal.Zero
	good := &domain.Order{ID: "good", Symbol: sym(), OrderType: domain.OrderTypeMarket, Quantity: decimal.NewFromInt(1)}
	bad := &domain.Order{ID: "bad", Symbol: sym(), OrderType: domain.OrderTypeLimit, Quantity: decimal.NewFromInt(1), Price: &zero}

	results := m.BatchSubmit(context.Background(), []*domain.Order{good, bad}, nil)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
}
