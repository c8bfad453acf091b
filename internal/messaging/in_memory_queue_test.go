package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueueBroadcasts(t *testing.T) {
	q := NewInMemoryQueue()
	defer q.Close()

	first, cancelFirst := q.Subscribe()
	second, cancelSecond := q.Subscribe()
	defer cancelSecond()

	event := GenerationEvent{Type: GenerationStarted, SessionID: "s1", Prompt: "cat"}
	require.NoError(t, q.PublishGenerationEvent(context.Background(), event))

	assert.Equal(t, event, <-first)
	assert.Equal(t, event, <-second)

	cancelFirst()
	_, ok := <-first
	assert.False(t, ok)
	cancelFirst()

	require.NoError(t, q.PublishGenerationEvent(context.Background(), GenerationEvent{Type: GenerationCompleted}))
	assert.Equal(t, GenerationCompleted, (<-second).Type)
}

func TestInMemoryQueueDropsForSlowSubscribers(t *testing.T) {
	q := NewInMemoryQueue()
	events, cancel := q.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, q.PublishGenerationEvent(context.Background(), GenerationEvent{Type: GenerationStarted}))
	}
	assert.Len(t, events, subscriberBuffer)
}

func TestInMemoryQueueClose(t *testing.T) {
	q := NewInMemoryQueue()
	events, cancel := q.Subscribe()

	q.Close()
	_, ok := <-events
	assert.False(t, ok)
	cancel()

	late, _ := q.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

type failingPublisher struct{ closed bool }

func (p *failingPublisher) PublishGenerationEvent(ctx context.Context, event GenerationEvent) error {
	return errors.New("unavailable")
}

func (p *failingPublisher) Close() { p.closed = true }

func TestPublishersFanOut(t *testing.T) {
	q := NewInMemoryQueue()
	events, cancel := q.Subscribe()
	defer cancel()

	failing := &failingPublisher{}
	publishers := Publishers{failing, q}

	err := publishers.PublishGenerationEvent(context.Background(), GenerationEvent{Type: GenerationFailed})
	assert.Error(t, err)
	assert.Equal(t, GenerationFailed, (<-events).Type)

	publishers.Close()
	assert.True(t, failing.closed)
}
