package port

import (
	"context"

	"github.com/rl1809/order-service/internal/core/domain"
)

// EventDispatcher hands an event off for asynchronous delivery. It must not
// block the caller and has no observable outcome.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event)
}

// EventPublisher delivers one event to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}
