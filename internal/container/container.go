package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/b25/tradecore/internal/domain"
)

// Lifetime controls how a registration's factory is invoked on resolve.
type Lifetime int

const (
	Transient Lifetime = iota
	Singleton
	Scoped
)

// Key identifies a service by its type identity plus an optional name,
// allowing multiple registrations of the same Go type under different
// names.
type Key struct {
	typ  reflect.Type
	name string
}

func (k Key) String() string {
	if k.name == "" {
		return k.typ.String()
	}
	return fmt.Sprintf("%s[%s]", k.typ, k.name)
}

// Factory constructs an instance, given the container to resolve its own
// dependencies from.
type Factory func(ctx context.Context, c *Container) (interface{}, error)

type registration struct {
	lifetime Lifetime
	deps     []Key
	factory  Factory
}

// Container is a typed service container with cycle-detecting resolution
// and Kahn's-algorithm graph validation, run once before the container is
// usable.
type Container struct {
	mu            sync.RWMutex
	registrations map[Key]*registration
	instances     map[Key]interface{}
	usageCount    map[Key]int
	built         bool
	maxDepth      int
}

func New() *Container {
	return &Container{
		registrations: make(map[Key]*registration),
		instances:     make(map[Key]interface{}),
		usageCount:    make(map[Key]int),
		maxDepth:      64,
	}
}

// SetMaxResolutionDepth overrides the default resolution-stack depth guard.
func (c *Container) SetMaxResolutionDepth(d int) { c.maxDepth = d }

func KeyFor(t reflect.Type, name string) Key { return Key{typ: t, name: name} }

// Register records a service under the given interface/type pointer sample,
// its lifetime, the keys of its dependencies, and a factory.
func Register[T any](c *Container, lifetime Lifetime, name string, deps []Key, factory Factory) Key {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	k := KeyFor(t, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations[k] = &registration{lifetime: lifetime, deps: deps, factory: factory}
	return k
}

// KeyOf returns the dependency Key for type T and an optional name, for use
// when declaring another registration's deps.
func KeyOf[T any](name string) Key {
	var zero T
	return KeyFor(reflect.TypeOf(&zero).Elem(), name)
}

// Build validates the dependency graph: every dependency must be registered
// and the graph must be acyclic (Kahn's topological sort covering every
// node). Must be called once before Resolve is used.
func (c *Container) Build() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	indegree := make(map[Key]int)
	adj := make(map[Key][]Key)
	for k := range c.registrations {
		indegree[k] = 0
	}
	for k, reg := range c.registrations {
		for _, d := range reg.deps {
			if _, ok := c.registrations[d]; !ok {
				return domain.DI("Container.Build", fmt.Errorf("unregistered dependency %s required by %s", d, k))
			}
			adj[d] = append(adj[d], k)
			indegree[k]++
		}
	}

	queue := make([]Key, 0)
	for k, deg := range indegree {
		if deg == 0 {
			queue = append(queue, k)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, m := range adj[n] {
			indegree[m]--
			if indegree[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	if visited != len(c.registrations) {
		return domain.DI("Container.Build", fmt.Errorf("dependency graph contains a cycle"))
	}
	c.built = true
	return nil
}

type resolutionStack struct {
	keys []Key
	set  map[Key]bool
}

func newStack() *resolutionStack { return &resolutionStack{set: map[Key]bool{}} }

func (s *resolutionStack) push(k Key) bool {
	if s.set[k] {
		return false
	}
	s.set[k] = true
	s.keys = append(s.keys, k)
	return true
}

func (s *resolutionStack) pop() {
	n := len(s.keys) - 1
	k := s.keys[n]
	s.keys = s.keys[:n]
	delete(s.set, k)
}

// Resolve looks up and constructs the service registered under type T and
// name, using a resolution stack local to this call so concurrent resolves
// of independent roots never interfere with each other's cycle detection.
func Resolve[T any](ctx context.Context, c *Container, name string) (T, error) {
	var zero T
	k := KeyOf[T](name)
	v, err := c.resolve(ctx, k, newStack())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, domain.DI("Container.Resolve", fmt.Errorf("type mismatch resolving %s", k))
	}
	return typed, nil
}

func (c *Container) resolve(ctx context.Context, k Key, stack *resolutionStack) (interface{}, error) {
	if len(stack.keys) >= c.maxDepth {
		return nil, domain.DI("Container.resolve", fmt.Errorf("resolution depth exceeded at %s", k))
	}
	if !stack.push(k) {
		return nil, domain.DI("Container.resolve", fmt.Errorf("circular dependency detected at %s", k))
	}
	defer stack.pop()

	c.mu.RLock()
	reg, ok := c.registrations[k]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.DI("Container.resolve", fmt.Errorf("unregistered dependency %s", k))
	}

	if reg.lifetime == Singleton {
		c.mu.RLock()
		inst, cached := c.instances[k]
		c.mu.RUnlock()
		if cached {
			c.mu.Lock()
			c.usageCount[k]++
			c.mu.Unlock()
			return inst, nil
		}
	}

	inst, err := reg.factory(ctx, c)
	if err != nil {
		return nil, err
	}

	if reg.lifetime == Singleton {
		c.mu.Lock()
		c.instances[k] = inst
		c.usageCount[k]++
		c.mu.Unlock()
	}
	return inst, nil
}

// CleanupUnusedSingletons drops cached singleton instances whose usage
// count is 0 (never resolved since the last cleanup).
func (c *Container) CleanupUnusedSingletons() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for k, count := range c.usageCount {
		if count == 0 {
			delete(c.instances, k)
			delete(c.usageCount, k)
			dropped++
		}
	}
	for k := range c.usageCount {
		c.usageCount[k] = 0
	}
	return dropped
}
