package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Logger interface{ Name() string }
type logger struct{}

func (logger) Name() string { return "logger" }

type Service interface{ Do() string }
type service struct{ log Logger }

func (s *service) Do() string { return "service:" + s.log.Name() }

func TestResolveSingletonAndDeps(t *testing.T) {
	c := New()
	logKey := Register[Logger](c, Singleton, "", nil, func(ctx context.Context, c *Container) (interface{}, error) {
		return logger{}, nil
	})
	Register[Service](c, Singleton, "", []Key{logKey}, func(ctx context.Context, c *Container) (interface{}, error) {
		l, err := Resolve[Logger](ctx, c, "")
		if err != nil {
			return nil, err
		}
		return &service{log: l}, nil
	})

	require.NoError(t, c.Build())
	svc, err := Resolve[Service](context.Background(), c, "")
	require.NoError(t, err)
	assert.Equal(t, "service:logger", svc.Do())
}

func TestBuildDetectsUnregisteredDependency(t *testing.T) {
	c := New()
	ghost := KeyOf[Logger]("")
	Register[Service](c, Transient, "", []Key{ghost}, func(ctx context.Context, c *Container) (interface{}, error) {
		return &service{}, nil
	})
	err := c.Build()
	require.Error(t, err)
}

type A interface{ a() }
type B interface{ b() }
type aImpl struct{}

func (aImpl) a() {}

type bImpl struct{}

func (bImpl) b() {}

func TestBuildDetectsCycle(t *testing.T) {
	c := New()
	aKey := KeyOf[A]("")
	bKey := KeyOf[B]("")
	Register[A](c, Transient, "", []Key{bKey}, func(ctx context.Context, c *Container) (interface{}, error) {
		return aImpl{}, nil
	})
	Register[B](c, Transient, "", []Key{aKey}, func(ctx context.Context, c *Container) (interface{}, error) {
		return bImpl{}, nil
	})
	err := c.Build()
	require.Error(t, err, "a depends on b and b depends on a")
}

func TestTransientInvokesFactoryEveryTime(t *testing.T) {
	c := New()
	count := 0
	Register[Logger](c, Transient, "", nil, func(ctx context.Context, c *Container) (interface{}, error) {
		count++
		return logger{}, nil
	})
	require.NoError(t, c.Build())
	_, _ = Resolve[Logger](context.Background(), c, "")
	_, _ = Resolve[Logger](context.Background(), c, "")
	assert.Equal(t, 2, count)
}

func TestCleanupUnusedSingletons(t *testing.T) {
	c := New()
	Register[Logger](c, Singleton, "", nil, func(ctx context.Context, c *Container) (interface{}, error) {
		return logger{}, nil
	})
	require.NoError(t, c.Build())
	dropped := c.CleanupUnusedSingletons()
	assert.Equal(t, 0, dropped, "never resolved yet, nothing cached")

	_, _ = Resolve[Logger](context.Background(), c, "")
	dropped = c.CleanupUnusedSingletons()
	assert.Equal(t, 0, dropped, "usage_count is 1 after the resolve, not eligible")
}
