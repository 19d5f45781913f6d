package configmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	data     ConfigData
	priority Priority
}

func (s *staticSource) SourceType() string { return "static" }
func (s *staticSource) Priority() Priority { return s.priority }
func (s *staticSource) Load(ctx context.Context) (ConfigData, error) { return s.data, nil }
func (s *staticSource) Save(ctx context.Context, data ConfigData) error { return nil }
func (s *staticSource) SupportsHotReload() bool { return false }
func (s *staticSource) StartWatching(ctx context.Context) (<-chan ChangeEvent, error) { return nil, nil }
func (s *staticSource) StopWatching() error { return nil }

// TestLayeredMergeScenarioS5 implements scenario S5 from the spec: a file
// source (Low) and an env source (Medium) merge with the higher priority
// winning on overlapping keys.
func TestLayeredMergeScenarioS5(t *testing.T) {
	mgr := NewManager(nil)
	mgr.AddSource(&staticSource{priority: PriorityLow, data: ConfigData{"name": "Default", "debug": true}})
	mgr.AddSource(&staticSource{priority: PriorityMedium, data: ConfigData{"name": "Prod", "version": "2.0"}})

	require.NoError(t, mgr.ReloadAll(context.Background()))

	name, err := mgr.Lookup("name")
	require.NoError(t, err)
	assert.Equal(t, "Prod", name)

	debug, err := mgr.Lookup("debug")
	require.NoError(t, err)
	assert.Equal(t, true, debug)

	version, err := mgr.Lookup("version")
	require.NoError(t, err)
	assert.Equal(t, "2.0", version)
}

func TestMergeConfigUnionsObjectKeys(t *testing.T) {
	low := ConfigData{"db": ConfigData{"host": "a", "port": 1}}
	high := ConfigData{"db": ConfigData{"port": 2, "user": "root"}}
	merged := mergeConfig(low, high)
	db := merged["db"].(ConfigData)
	assert.Equal(t, "a", db["host"])
	assert.Equal(t, 2, db["port"])
	assert.Equal(t, "root", db["user"])
}

func TestLookupMissingKeyIsNotFound(t *testing.T) {
	mgr := NewManager(nil)
	mgr.AddSource(&staticSource{priority: PriorityLow, data: ConfigData{"a": ConfigData{}}})
	require.NoError(t, mgr.ReloadAll(context.Background()))
	_, err := mgr.Lookup("a.b.c")
	require.Error(t, err)
}

func TestParseProperties(t *testing.T) {
	raw := []byte("# comment\nkey=value\nother.key = with spaces \n")
	data, err := parseProperties(raw)
	require.NoError(t, err)
	assert.Equal(t, "value", data["key"])
	assert.Equal(t, "with spaces", data["other.key"])
}

func TestValidatorGlobMatch(t *testing.T) {
	mgr := NewManager(nil)
	mgr.RegisterValidator("risk.*", func(path string, value interface{}) ValidationResult {
		return ValidationResult{Valid: false, Errors: []string{"bad"}}
	})
	result := mgr.Validate("risk.max_leverage", 10)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "bad")

	result = mgr.Validate("other.key", 10)
	assert.True(t, result.Valid)
}
