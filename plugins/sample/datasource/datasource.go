// Package datasource is the in-memory reference DataSourcePlugin: it
// generates synthetic ticks on demand instead of fronting a real venue feed,
// so the framework is runnable end-to-end without external connectors.
package datasource

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
)

// Plugin is the sample data source: a random-walk mid price per symbol,
// seeded once at construction and advanced on every GetLatestTick call.
// Grounded on the teacher's strategy-engine plugin scaffolding
// (plugins/go/example_plugin.go) adapted to the DataSourcePlugin capability.
type Plugin struct {
	*plugin.Base
	mu         sync.Mutex
	symbols    []domain.Symbol
	mid        map[string]float64
	subscribed map[string]bool
	rng        *rand.Rand
	clockNs    int64
}

func New(symbols []domain.Symbol) *Plugin {
	mid := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		mid[s.Code] = 100
	}
	return &Plugin{
		Base:       plugin.NewBase(domain.PluginMetadata{ID: "sample-datasource", Name: "Sample Data Source", PluginType: domain.PluginTypeDataSource}),
		symbols:    symbols,
		mid:        mid,
		subscribed: make(map[string]bool),
		rng:        rand.New(rand.NewSource(1)),
	}
}

func (p *Plugin) Connect(ctx context.Context) error    { return nil }
func (p *Plugin) Disconnect(ctx context.Context) error { return nil }

func (p *Plugin) GetSupportedSymbols() []domain.Symbol { return p.symbols }

func (p *Plugin) SubscribeMarketData(ctx context.Context, symbol domain.Symbol) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.mid[symbol.Code]; !ok {
		return domain.NotFound("datasource.SubscribeMarketData", fmt.Errorf("symbol %s not supported", symbol))
	}
	p.subscribed[symbol.Code] = true
	return nil
}

func (p *Plugin) UnsubscribeMarketData(ctx context.Context, symbol domain.Symbol) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribed, symbol.Code)
	return nil
}

func (p *Plugin) step(code string) float64 {
	p.clockNs++
	cur := p.mid[code]
	cur *= 1 + (p.rng.Float64()-0.5)*0.002
	p.mid[code] = cur
	return cur
}

func (p *Plugin) GetLatestTick(ctx context.Context, symbol domain.Symbol) (*domain.Tick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.mid[symbol.Code]; !ok {
		return nil, domain.NotFound("datasource.GetLatestTick", fmt.Errorf("symbol %s not supported", symbol))
	}
	mid := p.step(symbol.Code)
	spread := mid * 0.0005
	bid := domain.MustDecimal(fmt.Sprintf("%.8f", mid-spread/2))
	ask := domain.MustDecimal(fmt.Sprintf("%.8f", mid+spread/2))
	size := domain.MustDecimal("1")
	return domain.NewTick(symbol, p.clockNs, bid, ask, size, size)
}

func (p *Plugin) GetLatestBar(ctx context.Context, symbol domain.Symbol, tf *domain.Timeframe) (*domain.Bar, error) {
	tick, err := p.GetLatestTick(ctx, symbol)
	if err != nil {
		return nil, err
	}
	timeframe := domain.TimeframeM1
	if tf != nil {
		timeframe = *tf
	}
	mid := tick.Mid()
	return domain.NewBar(symbol, tick.TimestampNs, timeframe, mid, mid, mid, mid, domain.MustDecimal("1"))
}

func (p *Plugin) GetHistoricalBars(ctx context.Context, symbol domain.Symbol, startNs, endNs int64, tf *domain.Timeframe) ([]*domain.Bar, error) {
	var bars []*domain.Bar
	for n := startNs; n < endNs; n += int64(1) {
		b, err := p.GetLatestBar(ctx, symbol, tf)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
		if len(bars) >= 100 {
			break
		}
	}
	return bars, nil
}
