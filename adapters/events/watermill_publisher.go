package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/runash/turnauth/core"
	"github.com/runash/turnauth/ports"
)

const TopicCredentialIssued = "turnauth.credential_issued"

// IssuedEvent is the wire form of core.IssuedEvent
type IssuedEvent struct {
	Subject   string `json:"subject"`
	Username  string `json:"username"`
	ExpiresAt int64  `json:"expires_at"`
	IssuedAt  int64  `json:"issued_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     TopicCredentialIssued,
	}
}

// PublishIssued publishes a credential issued event
func (p *WatermillPublisher) PublishIssued(ctx context.Context, event core.IssuedEvent) error {
	payload, err := json.Marshal(IssuedEvent{
		Subject:   event.Subject,
		Username:  event.Username,
		ExpiresAt: event.ExpiresAt.Unix(),
		IssuedAt:  event.IssuedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishIssued(context.Context, core.IssuedEvent) error { return nil }
