package events

import (
	"context"

	"github.com/b25/tradecore/internal/domain"
)

// Queue is a single backpressured channel for critical events (e.g.
// emergency liquidation) where losing a message is not acceptable. Send
// blocks (subject to ctx) instead of dropping, unlike Bus.
type Queue struct {
	ch chan Event
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// Send blocks until there is room or ctx is done, returning a Timeout error
// in the latter case.
func (q *Queue) Send(ctx context.Context, ev Event) error {
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return domain.Timeout("Queue.Send", ctx.Err())
	}
}

// TrySend attempts a non-blocking send, returning a Capacity error if the
// queue is full (used at admission points that must not block).
func (q *Queue) TrySend(ev Event) error {
	select {
	case q.ch <- ev:
		return nil
	default:
		return domain.Capacity("Queue.TrySend", errQueueFull)
	}
}

func (q *Queue) Receive() <-chan Event { return q.ch }

var errQueueFull = queueFullError{}

type queueFullError struct{}

func (queueFullError) Error() string { return "queue is full" }
