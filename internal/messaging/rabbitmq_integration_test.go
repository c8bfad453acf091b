package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

func TestRabbitMQPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine")
	require.NoError(t, err, "Failed to start RabbitMQ container")
	defer func() {
		_ = container.Terminate(context.Background())
	}()

	connStr, err := container.AmqpURL(ctx)
	require.NoError(t, err, "Failed to get RabbitMQ AMQP URL")

	publisher, err := NewRabbitMQPublisher(connStr)
	require.NoError(t, err)
	defer publisher.Close()

	event := GenerationEvent{
		Type:      GenerationCompleted,
		SessionID: "s1",
		ConfigID:  "c1",
		Prompt:    "a cat",
		Images:    []string{"https://img/1.png"},
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, publisher.PublishGenerationEvent(ctx, event))

	conn, err := connectToRabbitMQ(connStr)
	require.NoError(t, err)
	defer conn.Close()

	channel, err := conn.Channel()
	require.NoError(t, err)
	defer channel.Close()

	msgs, err := channel.Consume(GenerationEventsQueue, "test-consumer", false, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-msgs:
		var received GenerationEvent
		require.NoError(t, json.Unmarshal(d.Body, &received))
		assert.Equal(t, event, received)
		assert.Equal(t, string(GenerationCompleted), d.Type)
		require.NoError(t, d.Ack(false))
	case <-ctx.Done():
		t.Fatal("timed out waiting for generation event")
	}
}
