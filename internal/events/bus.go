package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Bus is a lossy multi-subscriber broadcast: each subscriber gets its own
// bounded channel, and a slow subscriber simply misses events rather than
// blocking the publisher. Subscribers that need reliability must subscribe
// before the producer starts (per the framework's broadcast design note).
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	bufferSize  int
	logger      *zap.Logger
	dropped     uint64
}

func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Bus{
		subscribers: make(map[int]chan Event),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe registers a new lossy subscriber and returns its channel plus an
// unsubscribe function.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.bufferSize)
	b.subscribers[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(c)
		}
	}
}

// Publish fans the event out to every current subscriber. Publishing with no
// subscribers is not an error — it is silently swallowed per the error
// propagation policy.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&b.dropped, 1)
			if b.logger != nil {
				b.logger.Warn("event dropped: subscriber buffer full", zap.Int("kind", int(ev.Kind)))
			}
		}
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}
