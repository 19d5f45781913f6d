package plugin

import (
	"context"
	"testing"

	"github.com/b25/tradecore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseLifecycleTransitions(t *testing.T) {
	b := NewBase(domain.PluginMetadata{ID: "p1"})
	require.NoError(t, b.Initialize(context.Background(), Context{PluginID: "p1"}))
	assert.Equal(t, StateInitialized, b.State())
	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, StateRunning, b.State())

	err := b.Start(context.Background())
	require.Error(t, err, "starting an already-running plugin is illegal")
	var te *TransitionError
	assert.ErrorAs(t, err, &te)
}

func TestPollable(t *testing.T) {
	assert.True(t, StateRunning.Pollable())
	assert.True(t, StatePaused.Pollable())
	assert.False(t, StateLoaded.Pollable())
}
