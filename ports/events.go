package ports

import (
	"context"

	"github.com/runash/turnauth/core"
)

// EventPublisher publishes issuance events for auditing
type EventPublisher interface {
	PublishIssued(ctx context.Context, event core.IssuedEvent) error
}
