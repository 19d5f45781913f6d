package plugin

import (
	"context"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
)

// Base is an embeddable helper implementing the mechanical parts of the
// Plugin contract (state tracking, config storage, metrics counters) so
// concrete plugins only need to implement their capability-specific
// behavior. Grounded on the teacher's BaseStrategy embeddable struct.
type Base struct {
	mu          sync.RWMutex
	meta        domain.PluginMetadata
	state       State
	config      map[string]interface{}
	invocations uint64
	errors      uint64
	lastCheck   int64
}

func NewBase(meta domain.PluginMetadata) *Base {
	return &Base{meta: meta, state: StateUnloaded, config: map[string]interface{}{}}
}

func (b *Base) Metadata() domain.PluginMetadata { return b.meta }

func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// SetState performs the lifecycle transition check and updates state,
// returning a *TransitionError if illegal.
func (b *Base) SetState(next State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.CanTransition(next) {
		return &TransitionError{From: b.state, To: next}
	}
	b.state = next
	return nil
}

func (b *Base) Configure(config map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range config {
		b.config[k] = v
	}
	return nil
}

func (b *Base) ConfigValue(key string) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.config[key]
	return v, ok
}

func (b *Base) RecordInvocation(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invocations++
	if err != nil {
		b.errors++
	}
	b.lastCheck = time.Now().UnixNano()
}

func (b *Base) GetMetrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Metrics{Invocations: b.invocations, Errors: b.errors, Custom: map[string]interface{}{}}
}

func (b *Base) HealthCheck(ctx context.Context) (HealthStatus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return HealthStatus{Healthy: true, LastCheckNs: time.Now().UnixNano()}, nil
}

func (b *Base) Initialize(ctx context.Context, pctx Context) error {
	if err := b.SetState(StateLoaded); err != nil {
		return err
	}
	if err := b.Configure(pctx.Config); err != nil {
		return err
	}
	return b.SetState(StateInitialized)
}

func (b *Base) Start(ctx context.Context) error  { return b.SetState(StateRunning) }
func (b *Base) Stop(ctx context.Context) error   { return b.SetState(StateStopped) }
func (b *Base) Pause(ctx context.Context) error  { return b.SetState(StatePaused) }
func (b *Base) Resume(ctx context.Context) error { return b.SetState(StateRunning) }
