package messaging

import (
	"context"
	"log/slog"
	"sync"
)

const subscriberBuffer = 100

// InMemoryQueue delivers each event to every current subscriber. Slow
// subscribers lose events instead of blocking the publisher.
type InMemoryQueue struct {
	mu          sync.Mutex
	subscribers map[int]chan GenerationEvent
	nextID      int
	closed      bool
}

var _ Publisher = (*InMemoryQueue)(nil)

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{subscribers: make(map[int]chan GenerationEvent)}
}

func (q *InMemoryQueue) PublishGenerationEvent(ctx context.Context, event GenerationEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, ch := range q.subscribers {
		select {
		case ch <- event:
		default:
			slog.Warn("dropping generation event for slow subscriber", "subscriber", id, "type", event.Type)
		}
	}
	return nil
}

// Subscribe returns a channel of events and a function that ends the
// subscription. The channel is closed when the subscription ends.
func (q *InMemoryQueue) Subscribe() (<-chan GenerationEvent, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan GenerationEvent, subscriberBuffer)
	if q.closed {
		close(ch)
		return ch, func() {}
	}

	id := q.nextID
	q.nextID++
	q.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if sub, ok := q.subscribers[id]; ok {
				delete(q.subscribers, id)
				close(sub)
			}
		})
	}
}

func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for id, ch := range q.subscribers {
		delete(q.subscribers, id)
		close(ch)
	}
}
