package ordermanager

import (
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
	"golang.org/x/time/rate"
)

// GatewayState mirrors the data source's connection topology.
type GatewayState int

const (
	StateDisconnected GatewayState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
	StateMaintenance
)

// Stats tracks a gateway's operational counters.
type Stats struct {
	OrdersSent          uint64
	OrdersExecuted      uint64
	OrdersFailed        uint64
	OrdersCancelled     uint64
	AvgExecutionLatency time.Duration
	DataQualityScore    float64
	ErrorCount          uint64
}

func (s Stats) SuccessRate() float64 {
	if s.OrdersSent == 0 {
		return 0
	}
	return float64(s.OrdersExecuted) / float64(s.OrdersSent)
}

func (s Stats) errorRate() float64 {
	if s.OrdersSent == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.OrdersSent)
}

// Runtime wraps one registered gateway plugin, mirroring the data-source
// runtime shape, plus a per-gateway rate limiter throttling submissions.
type Runtime struct {
	mu               sync.RWMutex
	Handle           plugin.ExecutionPlugin
	State            GatewayState
	SupportedSymbols map[string]domain.Symbol
	Stats            Stats
	Limiter          *rate.Limiter
}

func NewRuntime(handle plugin.ExecutionPlugin, ratePerSecond float64) *Runtime {
	return &Runtime{
		Handle:           handle,
		State:            StateDisconnected,
		SupportedSymbols: map[string]domain.Symbol{},
		Stats:            Stats{DataQualityScore: 1.0},
		Limiter:          rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
	}
}

func (r *Runtime) setState(s GatewayState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = s
}

func (r *Runtime) getState() GatewayState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

func (r *Runtime) supports(symbol domain.Symbol) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.SupportedSymbols[symbol.String()]
	return ok
}

func (r *Runtime) score() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lat := float64(r.Stats.AvgExecutionLatency.Nanoseconds())
	s := r.Stats.DataQualityScore - (lat/1e6)*0.1 - r.Stats.errorRate()*0.5
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func (r *Runtime) recordSent(latency time.Duration, executed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stats.OrdersSent++
	if executed {
		r.Stats.OrdersExecuted++
	} else {
		r.Stats.OrdersFailed++
		r.Stats.ErrorCount++
	}
	n := r.Stats.OrdersSent
	if n == 1 {
		r.Stats.AvgExecutionLatency = latency
	} else {
		r.Stats.AvgExecutionLatency = time.Duration((int64(r.Stats.AvgExecutionLatency)*int64(n-1) + int64(latency)) / int64(n))
	}
}
