package datamanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"github.com/b25/tradecore/internal/plugin"
)

// QueryType enumerates the kinds of data a DataQuery can request.
type QueryType int

const (
	QueryLatestTick QueryType = iota
	QueryLatestBar
	QueryHistoricalBars
	QueryHistoricalTicks
	QueryOrderBook
	QueryTrades
)

// DataQuery is a request routed to the best available source.
type DataQuery struct {
	Symbol           domain.Symbol
	QueryType        QueryType
	StartNs, EndNs    int64
	PreferredSources []string
	AllowCached      bool
	Timeout          time.Duration
}

// QueryResult wraps whatever payload a query produced plus the from_cache
// flag testable property 3 depends on.
type QueryResult struct {
	Tick       *domain.Tick
	Bar        *domain.Bar
	Bars       []*domain.Bar
	FromCache  bool
}

type cacheKey struct {
	symbol string
	qtype  QueryType
}

type cacheEntry struct {
	result    QueryResult
	storedAt  time.Time
}

// Config bounds the manager's admission limits.
type Config struct {
	MaxConcurrentSources int
	DataExpiry           time.Duration
	FetchTimeout         time.Duration
	CacheSize            int
	MaxRetries           int
	RetryInterval        time.Duration
}

func DefaultConfig() Config {
	return Config{MaxConcurrentSources: 16, DataExpiry: 2 * time.Second, FetchTimeout: 3 * time.Second, CacheSize: 1000, MaxRetries: 3, RetryInterval: time.Second}
}

// Manager owns data-source runtimes, subscription fan-out, query routing,
// and the result cache.
type Manager struct {
	cfg     Config
	bus     *events.Bus
	mu      sync.RWMutex
	sources map[string]*Runtime
	subs    map[string]map[string]bool // symbol -> set of source ids
	cache   map[cacheKey]*cacheEntry
	cacheOrder []cacheKey
}

func NewManager(cfg Config, bus *events.Bus) *Manager {
	return &Manager{
		cfg:     cfg,
		bus:     bus,
		sources: make(map[string]*Runtime),
		subs:    make(map[string]map[string]bool),
		cache:   make(map[cacheKey]*cacheEntry),
	}
}

// RegisterSource admits a new source up to MaxConcurrentSources.
func (m *Manager) RegisterSource(id string, handle plugin.DataSourcePlugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sources) >= m.cfg.MaxConcurrentSources {
		return domain.Capacity("Manager.RegisterSource", fmt.Errorf("max_concurrent_sources reached"))
	}
	if _, exists := m.sources[id]; exists {
		return domain.StateConflict("Manager.RegisterSource", fmt.Errorf("source %q already registered", id))
	}
	rt := NewRuntime(handle)
	for _, s := range handle.GetSupportedSymbols() {
		rt.SupportedSymbols[s.String()] = s
	}
	m.sources[id] = rt
	return nil
}

// Connect drives Disconnected -> Connecting -> Connected, resetting
// ReconnectAttempts.
func (m *Manager) Connect(ctx context.Context, id string) error {
	rt, err := m.runtime(id)
	if err != nil {
		return err
	}
	rt.setState(StateConnecting)
	if err := rt.Handle.Initialize(ctx, plugin.Context{PluginID: id}); err != nil {
		rt.setState(StateError)
		return domain.PluginFault("Manager.Connect", err)
	}
	if err := rt.Handle.Start(ctx); err != nil {
		rt.setState(StateError)
		return domain.PluginFault("Manager.Connect", err)
	}
	if err := rt.Handle.Connect(ctx); err != nil {
		rt.setState(StateError)
		return domain.PluginFault("Manager.Connect", err)
	}
	rt.mu.Lock()
	rt.State = StateConnected
	rt.Stats.ConnectTime = time.Now()
	rt.ReconnectAttempts = 0
	rt.mu.Unlock()
	return nil
}

func (m *Manager) Disconnect(ctx context.Context, id string) error {
	rt, err := m.runtime(id)
	if err != nil {
		return err
	}
	if err := rt.Handle.Disconnect(ctx); err != nil {
		return domain.PluginFault("Manager.Disconnect", err)
	}
	rt.mu.Lock()
	rt.Stats.TotalUptime += time.Since(rt.Stats.ConnectTime)
	rt.State = StateDisconnected
	rt.mu.Unlock()
	return nil
}

func (m *Manager) runtime(id string) (*Runtime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.sources[id]
	if !ok {
		return nil, domain.NotFound("Manager.runtime", fmt.Errorf("source %q not registered", id))
	}
	return rt, nil
}

// Subscribe requires the source be Connected and support the symbol.
func (m *Manager) Subscribe(ctx context.Context, symbol domain.Symbol, sourceID string) error {
	rt, err := m.runtime(sourceID)
	if err != nil {
		return err
	}
	if rt.getState() != StateConnected {
		return domain.StateConflict("Manager.Subscribe", fmt.Errorf("source %q is not connected", sourceID))
	}
	if !rt.supports(symbol) {
		return domain.Validation("Manager.Subscribe", fmt.Errorf("source %q does not support %s", sourceID, symbol))
	}

	m.mu.Lock()
	key := symbol.String()
	firstForSymbol := m.subs[key] == nil
	if firstForSymbol {
		m.subs[key] = make(map[string]bool)
	}
	alreadySubscribed := m.subs[key][sourceID]
	m.subs[key][sourceID] = true
	m.mu.Unlock()

	if alreadySubscribed {
		return nil
	}
	return rt.Handle.SubscribeMarketData(ctx, symbol)
}

// Unsubscribe shrinks the symbol->sources map, removing the key when empty.
func (m *Manager) Unsubscribe(ctx context.Context, symbol domain.Symbol, sourceID string) error {
	rt, err := m.runtime(sourceID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	key := symbol.String()
	set, ok := m.subs[key]
	if !ok || !set[sourceID] {
		m.mu.Unlock()
		return domain.NotFound("Manager.Unsubscribe", fmt.Errorf("no subscription for %s on %q", symbol, sourceID))
	}
	delete(set, sourceID)
	if len(set) == 0 {
		delete(m.subs, key)
	}
	m.mu.Unlock()

	return rt.Handle.UnsubscribeMarketData(ctx, symbol)
}

// SubscribedSources returns the current source set for a symbol (for
// testing the round-trip property).
func (m *Manager) SubscribedSources(symbol domain.Symbol) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.subs[symbol.String()]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// bestSource implements the scoring-based selection shared in shape with the
// order manager's gateway selection.
func (m *Manager) bestSource(symbol domain.Symbol, preferred []string) (string, *Runtime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range preferred {
		if rt, ok := m.sources[id]; ok && rt.getState() == StateConnected && rt.supports(symbol) {
			return id, rt, nil
		}
	}

	var bestID string
	var bestRt *Runtime
	bestScore := -1.0
	for id, rt := range m.sources {
		if rt.getState() != StateConnected || !rt.supports(symbol) {
			continue
		}
		s := rt.score()
		if s > bestScore {
			bestScore = s
			bestID = id
			bestRt = rt
		}
	}
	if bestRt == nil {
		return "", nil, domain.NotFound("Manager.bestSource", fmt.Errorf("no available source for %s", symbol))
	}
	return bestID, bestRt, nil
}

// Query implements the cache-first / scored-source-selection routing
// algorithm from the data manager's design.
func (m *Manager) Query(ctx context.Context, q DataQuery) (QueryResult, error) {
	ck := cacheKey{symbol: q.Symbol.String(), qtype: q.QueryType}

	if q.AllowCached {
		m.mu.RLock()
		entry, ok := m.cache[ck]
		m.mu.RUnlock()
		if ok && time.Since(entry.storedAt) < m.cfg.DataExpiry {
			result := entry.result
			result.FromCache = true
			return result, nil
		}
	}

	_, rt, err := m.bestSource(q.Symbol, q.PreferredSources)
	if err != nil {
		return QueryResult{}, err
	}

	timeout := q.Timeout
	if timeout == 0 {
		timeout = m.cfg.FetchTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := m.fetch(fctx, rt, q)
	if err != nil {
		if fctx.Err() != nil {
			return QueryResult{}, domain.Timeout("Manager.Query", fctx.Err())
		}
		return QueryResult{}, domain.PluginFault("Manager.Query", err)
	}

	m.cacheStore(ck, result)
	return result, nil
}

func (m *Manager) fetch(ctx context.Context, rt *Runtime, q DataQuery) (QueryResult, error) {
	switch q.QueryType {
	case QueryLatestTick:
		tick, err := rt.Handle.GetLatestTick(ctx, q.Symbol)
		if err != nil {
			return QueryResult{}, err
		}
		return QueryResult{Tick: tick}, nil
	case QueryLatestBar:
		bar, err := rt.Handle.GetLatestBar(ctx, q.Symbol, nil)
		if err != nil {
			return QueryResult{}, err
		}
		return QueryResult{Bar: bar}, nil
	case QueryHistoricalBars:
		bars, err := rt.Handle.GetHistoricalBars(ctx, q.Symbol, q.StartNs, q.EndNs, nil)
		if err != nil {
			return QueryResult{}, err
		}
		return QueryResult{Bars: bars}, nil
	default:
		return QueryResult{}, domain.Validation("Manager.fetch", fmt.Errorf("unsupported query type"))
	}
}

func (m *Manager) cacheStore(key cacheKey, result QueryResult) {
	if result.Tick == nil && result.Bar == nil && len(result.Bars) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cache[key]; !exists && len(m.cache) >= m.cfg.CacheSize && len(m.cacheOrder) > 0 {
		oldest := m.cacheOrder[0]
		m.cacheOrder = m.cacheOrder[1:]
		delete(m.cache, oldest)
	}
	if _, exists := m.cache[key]; !exists {
		m.cacheOrder = append(m.cacheOrder, key)
	}
	m.cache[key] = &cacheEntry{result: result, storedAt: time.Now()}
}

// OnMarketData is the inbound hook invoked by a source plugin whenever new
// data arrives: validate, update stats, cache, broadcast (dropping silently
// when there are no subscribers, which Bus already does).
func (m *Manager) OnMarketData(sourceID string, data domain.MarketData) error {
	rt, err := m.runtime(sourceID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	rt.Stats.MessagesReceived++
	rt.Stats.LastActivity = time.Now()
	rt.mu.Unlock()

	if data.Tick != nil {
		if _, err := domain.NewTick(data.Tick.Symbol, data.Tick.TimestampNs, data.Tick.BidPrice, data.Tick.AskPrice, data.Tick.BidSize, data.Tick.AskSize); err != nil {
			return err
		}
		m.cacheStore(cacheKey{symbol: data.Tick.Symbol.String(), qtype: QueryLatestTick}, QueryResult{Tick: data.Tick})
	}
	if data.Bar != nil {
		if _, err := domain.NewBar(data.Bar.Symbol, data.Bar.TimestampNs, data.Bar.Timeframe, data.Bar.Open, data.Bar.High, data.Bar.Low, data.Bar.Close, data.Bar.Volume); err != nil {
			return err
		}
		m.cacheStore(cacheKey{symbol: data.Bar.Symbol.String(), qtype: QueryLatestBar}, QueryResult{Bar: data.Bar})
	}

	if m.bus != nil {
		m.bus.Publish(events.Event{Kind: events.KindMarketData, TimestampNs: data.TimestampNs(), Payload: data})
	}
	return nil
}

// Reconnect attempts up to MaxRetries reconnections with RetryInterval
// between attempts, transitioning Disconnected -> Reconnecting -> Connected
// | Error.
func (m *Manager) Reconnect(ctx context.Context, id string) error {
	rt, err := m.runtime(id)
	if err != nil {
		return err
	}
	rt.setState(StateReconnecting)
	for attempt := 0; attempt < m.cfg.MaxRetries; attempt++ {
		if err := rt.Handle.Connect(ctx); err == nil {
			rt.mu.Lock()
			rt.State = StateConnected
			rt.ReconnectAttempts = attempt + 1
			rt.mu.Unlock()
			return nil
		}
		select {
		case <-ctx.Done():
			rt.setState(StateError)
			return domain.Timeout("Manager.Reconnect", ctx.Err())
		case <-time.After(m.cfg.RetryInterval):
		}
	}
	rt.mu.Lock()
	rt.State = StateError
	rt.ReconnectAttempts = m.cfg.MaxRetries
	rt.mu.Unlock()
	return domain.Internal("Manager.Reconnect", fmt.Errorf("exhausted retries for source %q", id))
}
