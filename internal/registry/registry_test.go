package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlugin struct {
	*plugin.Base
	failStart bool
}

func newFake(id string, deps []domain.PluginDependency, failStart bool) *fakePlugin {
	return &fakePlugin{
		Base:      plugin.NewBase(domain.PluginMetadata{ID: id, Dependencies: deps}),
		failStart: failStart,
	}
}

func (f *fakePlugin) Start(ctx context.Context) error {
	if f.failStart {
		return errors.New("boom")
	}
	return f.Base.Start(ctx)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFake("a", nil, false)))
	err := r.Register(newFake("a", nil, false))
	require.Error(t, err)
}

func TestUnregisterRequiresStoppedOrUnloaded(t *testing.T) {
	r := New()
	fresh := newFake("a", nil, false)
	require.NoError(t, r.Register(fresh))
	require.NoError(t, r.Unregister("a"), "a freshly registered plugin is Unloaded, which is allowed")

	running := newFake("b", nil, false)
	require.NoError(t, r.Register(running))
	require.NoError(t, running.Initialize(context.Background(), plugin.Context{PluginID: "b"}))
	require.NoError(t, running.Start(context.Background()))
	require.Error(t, r.Unregister("b"), "a Running plugin cannot be unregistered")
}

func TestStartAllOrdersByDependencyAndRollsBackOnFailure(t *testing.T) {
	r := New()
	upstream := newFake("up", nil, false)
	downstream := newFake("down", []domain.PluginDependency{{PluginID: "up"}}, true)
	require.NoError(t, r.Register(upstream))
	require.NoError(t, r.Register(downstream))

	mgr := NewLifecycleManager(r, nil)
	result, err := mgr.StartAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, "down", result.Failed)
	assert.Contains(t, result.Started, "up")
	assert.Contains(t, result.RolledBack, "up")
	assert.Equal(t, plugin.StateStopped, upstream.State())
}

func TestStartAllAllRunningOnSuccess(t *testing.T) {
	r := New()
	a := newFake("a", nil, false)
	b := newFake("b", []domain.PluginDependency{{PluginID: "a"}}, false)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	mgr := NewLifecycleManager(r, nil)
	result, err := mgr.StartAll(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, result.Started)
	assert.Equal(t, plugin.StateRunning, a.State())
	assert.Equal(t, plugin.StateRunning, b.State())
}
