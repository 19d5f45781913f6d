package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"github.com/b25/tradecore/internal/plugin"
)

// StrategyState is the strategy engine's own hosting-level state machine,
// distinct from the embedded plugin's C3 lifecycle state.
type StrategyState int

const (
	StrategyStopped StrategyState = iota
	StrategyStarting
	StrategyRunning
	StrategyPaused
	StrategyStopping
	StrategyError
)

func (s StrategyState) String() string {
	switch s {
	case StrategyStarting:
		return "starting"
	case StrategyRunning:
		return "running"
	case StrategyPaused:
		return "paused"
	case StrategyStopping:
		return "stopping"
	case StrategyError:
		return "error"
	default:
		return "stopped"
	}
}

// RuntimeStats tracks a hosted strategy's operational counters.
type RuntimeStats struct {
	SignalsProcessed  uint64
	OrdersGenerated   uint64
	ErrorCount        uint64
	AvgExecutionTime  time.Duration
	LastExecutionTime time.Duration
	PerformanceScore  float64
}

func (s *RuntimeStats) recordExecution(d time.Duration, failed bool) {
	if failed {
		s.ErrorCount++
		return
	}
	s.LastExecutionTime = d
	if s.AvgExecutionTime == 0 {
		s.AvgExecutionTime = d
	} else {
		s.AvgExecutionTime = (s.AvgExecutionTime + d) / 2
	}
}

type strategyRuntime struct {
	mu       sync.RWMutex
	handle   plugin.StrategyPlugin
	pipeline *Pipeline
	state    StrategyState
	stats    RuntimeStats
	queue    chan domain.Signal
}

func (r *strategyRuntime) setState(s StrategyState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *strategyRuntime) getState() StrategyState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Config bounds the strategy engine's admission and cadence.
type Config struct {
	MaxConcurrentStrategies int
	MarketDataTimeout       time.Duration
	ExecutionInterval       time.Duration
	SignalQueueSize         int
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentStrategies: 32,
		MarketDataTimeout:       5 * time.Second,
		ExecutionInterval:       time.Second,
		SignalQueueSize:         1000,
	}
}

// Engine hosts multiple strategies, fanning market data out to each Running
// strategy and draining per-strategy signal queues on a background tick.
// Grounded on strategy-engine/internal/engine/engine.go's handleMarketData
// (parallel per-strategy fan-out) and processSignals (ticker-driven drain).
type Engine struct {
	cfg    Config
	bus    *events.Bus
	mu     sync.RWMutex
	strategies map[string]*strategyRuntime
	cancel func()
}

func NewEngine(cfg Config, bus *events.Bus) *Engine {
	return &Engine{cfg: cfg, bus: bus, strategies: make(map[string]*strategyRuntime)}
}

// RegisterStrategy admits a strategy plugin plus its wired pipeline.
func (e *Engine) RegisterStrategy(id string, handle plugin.StrategyPlugin, pl *Pipeline) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.strategies) >= e.cfg.MaxConcurrentStrategies {
		return domain.Capacity("Engine.RegisterStrategy", fmt.Errorf("max_concurrent_strategies reached"))
	}
	if _, exists := e.strategies[id]; exists {
		return domain.StateConflict("Engine.RegisterStrategy", fmt.Errorf("strategy %q already registered", id))
	}
	e.strategies[id] = &strategyRuntime{handle: handle, pipeline: pl, state: StrategyStopped, queue: make(chan domain.Signal, e.cfg.SignalQueueSize)}
	return nil
}

func (e *Engine) strategy(id string) (*strategyRuntime, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rt, ok := e.strategies[id]
	if !ok {
		return nil, domain.NotFound("Engine.strategy", fmt.Errorf("strategy %q not registered", id))
	}
	return rt, nil
}

// StartStrategy drives Starting -> Running, bringing the underlying plugin
// up through its own C3 lifecycle first.
func (e *Engine) StartStrategy(ctx context.Context, id string) error {
	rt, err := e.strategy(id)
	if err != nil {
		return err
	}
	rt.setState(StrategyStarting)
	if err := rt.handle.Initialize(ctx, plugin.Context{PluginID: id}); err != nil {
		rt.setState(StrategyError)
		return domain.PluginFault("Engine.StartStrategy", err)
	}
	if err := rt.handle.Start(ctx); err != nil {
		rt.setState(StrategyError)
		return domain.PluginFault("Engine.StartStrategy", err)
	}
	rt.setState(StrategyRunning)
	return nil
}

func (e *Engine) StopStrategy(ctx context.Context, id string) error {
	rt, err := e.strategy(id)
	if err != nil {
		return err
	}
	rt.setState(StrategyStopping)
	if err := rt.handle.Stop(ctx); err != nil {
		rt.setState(StrategyError)
		return domain.PluginFault("Engine.StopStrategy", err)
	}
	rt.setState(StrategyStopped)
	return nil
}

func (e *Engine) PauseStrategy(ctx context.Context, id string) error {
	rt, err := e.strategy(id)
	if err != nil {
		return err
	}
	if err := rt.handle.Pause(ctx); err != nil {
		return domain.PluginFault("Engine.PauseStrategy", err)
	}
	rt.setState(StrategyPaused)
	return nil
}

func (e *Engine) State(id string) (StrategyState, error) {
	rt, err := e.strategy(id)
	if err != nil {
		return StrategyStopped, err
	}
	return rt.getState(), nil
}

func (e *Engine) Stats(id string) (RuntimeStats, error) {
	rt, err := e.strategy(id)
	if err != nil {
		return RuntimeStats{}, err
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.stats, nil
}

// HandleMarketData fans data out to every Running strategy's on_market_data
// under a per-strategy timeout; a per-strategy failure increments its
// error_count without unregistering it or affecting peers.
func (e *Engine) HandleMarketData(ctx context.Context, data domain.MarketData) {
	e.mu.RLock()
	runtimes := make(map[string]*strategyRuntime, len(e.strategies))
	for id, rt := range e.strategies {
		runtimes[id] = rt
	}
	e.mu.RUnlock()

	var wg sync.WaitGroup
	for _, rt := range runtimes {
		if rt.getState() != StrategyRunning {
			continue
		}
		wg.Add(1)
		go func(rt *strategyRuntime) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, e.cfg.MarketDataTimeout)
			defer cancel()

			signals, err := rt.handle.OnMarketData(cctx, data)
			if err != nil {
				rt.mu.Lock()
				rt.stats.ErrorCount++
				rt.mu.Unlock()
				return
			}
			for _, sig := range signals {
				select {
				case rt.queue <- sig:
				default:
				}
			}
		}(rt)
	}
	wg.Wait()
}

// Start launches the background execution tick that drains each Running
// strategy's signal queue and invokes generate_signals.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.executionLoop(ctx)
}

func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) executionLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ExecutionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.drainOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) drainOnce(ctx context.Context) {
	e.mu.RLock()
	runtimes := make(map[string]*strategyRuntime, len(e.strategies))
	for id, rt := range e.strategies {
		runtimes[id] = rt
	}
	e.mu.RUnlock()

	for id, rt := range runtimes {
		if rt.getState() != StrategyRunning {
			continue
		}
		drained := drainQueue(rt.queue)
		if len(drained) == 0 {
			continue
		}
		e.generateSignals(ctx, id, rt, drained)
	}
}

func drainQueue(ch chan domain.Signal) []domain.Signal {
	var out []domain.Signal
	for {
		select {
		case sig := <-ch:
			out = append(out, sig)
		default:
			return out
		}
	}
}

func (e *Engine) generateSignals(ctx context.Context, id string, rt *strategyRuntime, queued []domain.Signal) {
	start := time.Now()
	generated, err := rt.handle.GenerateSignals(ctx, queued)
	elapsed := time.Since(start)

	rt.mu.Lock()
	rt.stats.SignalsProcessed += uint64(len(queued))
	rt.stats.recordExecution(elapsed, err != nil)
	if err == nil {
		rt.stats.OrdersGenerated += uint64(len(generated))
	}
	rt.mu.Unlock()

	if err != nil {
		rt.setState(StrategyError)
		return
	}

	if e.bus != nil {
		for _, sig := range generated {
			e.bus.Publish(events.Event{Kind: events.KindSignal, TimestampNs: sig.TimestampNs, Payload: sig})
		}
	}
}
