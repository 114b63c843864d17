package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
)

// EventBroadcaster delivers real-time events to every connection of a user.
type EventBroadcaster interface {
	Broadcast(userID uuid.UUID, event domain.Event) error
}

// EventPublisher is the user-bound side of the broadcaster a store publishes to.
type EventPublisher interface {
	Publish(event domain.Event)
}

// ClientCommandHandler reacts to commands a browser sends over the change feed.
type ClientCommandHandler interface {
	HandleClientCommand(ctx context.Context, userID uuid.UUID, command domain.ClientMessageType) error
}
