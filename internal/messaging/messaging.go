package messaging

import (
	"context"
	"errors"
	"time"

	"imagechat/pkg/models"
)

const (
	GenerationEventsQueue = "generation_events"
	RetryDelay            = 5 * time.Second
	MaxConnectRetry       = 5
)

type EventType string

const (
	GenerationStarted   EventType = "generation.started"
	GenerationCompleted EventType = "generation.completed"
	GenerationFailed    EventType = "generation.failed"
)

type GenerationEvent struct {
	Type           EventType             `json:"type"`
	SessionID      string                `json:"session_id"`
	MessageID      string                `json:"message_id,omitempty"`
	ConfigID       string                `json:"config_id"`
	Prompt         string                `json:"prompt"`
	GenerationType models.GenerationType `json:"generation_type"`
	Images         []string              `json:"images,omitempty"`
	Error          string                `json:"error,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
}

type Publisher interface {
	PublishGenerationEvent(ctx context.Context, event GenerationEvent) error

	Close()
}

// Publishers fans one event out to several publishers.
type Publishers []Publisher

func (ps Publishers) PublishGenerationEvent(ctx context.Context, event GenerationEvent) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishGenerationEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ps Publishers) Close() {
	for _, p := range ps {
		p.Close()
	}
}
