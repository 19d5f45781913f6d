package datamanager

import (
	"context"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
)

// DataSourceState mirrors the Disconnected <-> Connecting <-> Connected <->
// Reconnecting -> {Disconnected, Error, Maintenance} topology.
type DataSourceState int

const (
	StateDisconnected DataSourceState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
	StateMaintenance
)

// Stats tracks a source's operational counters.
type Stats struct {
	ConnectTime      time.Time
	TotalUptime      time.Duration
	MessagesReceived uint64
	RequestsSent     uint64
	ErrorCount       uint64
	AvgLatencyNs     int64
	DataQualityScore float64
	LastActivity     time.Time
}

// Runtime wraps one registered data source plugin with its connection
// state, stats, and reconnection bookkeeping.
type Runtime struct {
	mu                sync.RWMutex
	Handle            plugin.DataSourcePlugin
	State             DataSourceState
	SupportedSymbols  map[string]domain.Symbol
	Stats             Stats
	LastError         error
	ReconnectAttempts int
	ctx               context.Context
	cancel            context.CancelFunc
}

func NewRuntime(handle plugin.DataSourcePlugin) *Runtime {
	return &Runtime{Handle: handle, State: StateDisconnected, SupportedSymbols: map[string]domain.Symbol{}, Stats: Stats{DataQualityScore: 1.0}}
}

func (r *Runtime) setState(s DataSourceState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = s
}

func (r *Runtime) getState() DataSourceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

func (r *Runtime) errorRate() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := r.Stats.RequestsSent
	if total == 0 {
		return 0
	}
	return float64(r.Stats.ErrorCount) / float64(total)
}

// score implements the query-routing scoring formula, clamped to [0,1].
func (r *Runtime) score() float64 {
	r.mu.RLock()
	q, lat := r.Stats.DataQualityScore, r.Stats.AvgLatencyNs
	r.mu.RUnlock()
	s := q - (float64(lat)/1e6)*0.1 - r.errorRate()*0.5
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func (r *Runtime) supports(symbol domain.Symbol) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.SupportedSymbols[symbol.String()]
	return ok
}
