package registry

import (
	"fmt"
	"sync"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
)

// Stats tracks per-plugin runtime counters the lifecycle manager and health
// loop maintain alongside the plugin's own Plugin.GetMetrics().
type Stats struct {
	ConsecutiveUnhealthy int
	ErrorBadge           bool
	LastError            error
}

// entry is the registry's internal record: {handle, metadata, stats}; a
// plugin's lifecycle state is read from its handle.
type entry struct {
	handle   plugin.Plugin
	metadata domain.PluginMetadata
	stats    Stats
}

// Registry stores plugins by id under a reader-writer lock; it is the sole
// owner of the primary plugin reference, per the ownership rule that
// service managers address plugins via handles the registry holds.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a plugin under its metadata id. A duplicate id (the
// AlreadyRegistered condition) is rejected with a StateConflict error, not a
// Capacity error, since it is not a resource-limit issue.
func (r *Registry) Register(p plugin.Plugin) error {
	meta := p.Metadata()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[meta.ID]; exists {
		return domain.StateConflict("Registry.Register", fmt.Errorf("plugin %q already registered", meta.ID))
	}
	r.entries[meta.ID] = &entry{handle: p, metadata: meta}
	return nil
}

// Unregister requires the plugin be Stopped or Unloaded.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.NotFound("Registry.Unregister", fmt.Errorf("plugin %q not registered", id))
	}
	st := e.handle.State()
	if st != plugin.StateStopped && st != plugin.StateUnloaded {
		return domain.StateConflict("Registry.Unregister", fmt.Errorf("plugin %q is %s, must be stopped/unloaded", id, st))
	}
	delete(r.entries, id)
	return nil
}

func (r *Registry) Get(id string) (plugin.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.NotFound("Registry.Get", fmt.Errorf("plugin %q not registered", id))
	}
	return e.handle, nil
}

func (r *Registry) Metadata(id string) (domain.PluginMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.PluginMetadata{}, domain.NotFound("Registry.Metadata", fmt.Errorf("plugin %q not registered", id))
	}
	return e.metadata, nil
}

func (r *Registry) Stats(id string) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Stats{}, domain.NotFound("Registry.Stats", fmt.Errorf("plugin %q not registered", id))
	}
	return e.stats, nil
}

func (r *Registry) updateStats(id string, fn func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		fn(&e.stats)
	}
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) All() map[string]plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]plugin.Plugin, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.handle
	}
	return out
}
