package configmanager

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
)

// ValidationResult is returned by a registered validator.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validator checks a value at a matched path.
type Validator func(path string, value interface{}) ValidationResult

// Transformer rewrites the merged ConfigData before it is cached.
type Transformer func(data ConfigData) ConfigData

// Manager merges layered Sources low-to-high priority, exposes dotted-path
// lookups over the merged snapshot, and broadcasts change events.
type Manager struct {
	mu           sync.RWMutex
	sources      []Source
	merged       ConfigData
	lastUpdated  time.Time
	bus          *events.Bus
	validators   map[string]Validator
	transformers map[string]Transformer
}

func NewManager(bus *events.Bus) *Manager {
	return &Manager{
		merged:       ConfigData{},
		bus:          bus,
		validators:   make(map[string]Validator),
		transformers: make(map[string]Transformer),
	}
}

func (m *Manager) AddSource(s Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, s)
}

func (m *Manager) RegisterValidator(pathGlob string, v Validator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validators[pathGlob] = v
}

func (m *Manager) RegisterTransformer(pathGlob string, t Transformer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transformers[pathGlob] = t
}

// ReloadAll reloads every source, merges low-to-high priority, runs
// transformers, then replaces the cached snapshot and emits a single
// Reloaded event with path "*".
func (m *Manager) ReloadAll(ctx context.Context) error {
	m.mu.Lock()
	sources := append([]Source{}, m.sources...)
	transformers := make([]Transformer, 0, len(m.transformers))
	for _, t := range m.transformers {
		transformers = append(transformers, t)
	}
	m.mu.Unlock()

	sort.Slice(sources, func(i, j int) bool { return sources[i].Priority() < sources[j].Priority() })

	merged := ConfigData{}
	var maxUpdated time.Time
	for _, s := range sources {
		data, err := s.Load(ctx)
		loadedAt := time.Now()
		if err != nil {
			return err
		}
		merged = mergeConfig(merged, data)
		if loadedAt.After(maxUpdated) {
			maxUpdated = loadedAt
		}
	}
	for _, t := range transformers {
		merged = t(merged)
	}

	m.mu.Lock()
	m.merged = merged
	m.lastUpdated = maxUpdated
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(events.Event{
			Kind:        events.KindConfigChange,
			TimestampNs: time.Now().UnixNano(),
			Payload:     ChangeEvent{ChangeType: Reloaded, Path: "*", TimestampNs: time.Now().UnixNano()},
		})
	}
	return nil
}

// mergeConfig merges high over low: object nodes union keys (recursing on
// overlap); non-object nodes are replaced outright by the higher-priority
// value.
func mergeConfig(low, high ConfigData) ConfigData {
	out := ConfigData{}
	for k, v := range low {
		out[k] = v
	}
	for k, v := range high {
		existing, existed := out[k]
		if existed {
			existingObj, eOk := existing.(ConfigData)
			newObj, nOk := v.(ConfigData)
			if eOk && nOk {
				out[k] = mergeConfig(existingObj, newObj)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Lookup traverses dot-separated segments over the merged snapshot.
func (m *Manager) Lookup(path string) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cur interface{} = m.merged
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		obj, ok := cur.(ConfigData)
		if !ok {
			return nil, domain.NotFound("Manager.Lookup", fmt.Errorf("key not found: %s", path))
		}
		val, ok := obj[seg]
		if !ok {
			return nil, domain.NotFound("Manager.Lookup", fmt.Errorf("key not found: %s", path))
		}
		if i == len(segments)-1 {
			return val, nil
		}
		cur = val
	}
	return nil, domain.NotFound("Manager.Lookup", fmt.Errorf("key not found: %s", path))
}

func (m *Manager) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUpdated
}

// Validate runs every validator whose glob matches path.
func (m *Manager) Validate(path string, value interface{}) ValidationResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := ValidationResult{Valid: true}
	for glob, v := range m.validators {
		if !globMatch(glob, path) {
			continue
		}
		r := v(path, value)
		if !r.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, r.Errors...)
		result.Warnings = append(result.Warnings, r.Warnings...)
	}
	return result
}

// globMatch supports an exact match or a suffix '*' wildcard.
func globMatch(glob, path string) bool {
	if glob == path {
		return true
	}
	if strings.HasSuffix(glob, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(glob, "*"))
	}
	return false
}
