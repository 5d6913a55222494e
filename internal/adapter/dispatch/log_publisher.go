package dispatch

import (
	"context"
	"log/slog"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

// LogPublisher writes events to the log instead of a broker (local runs).
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.logger.InfoContext(ctx, "event", "event", event.Name, "event_id", event.ID, "order_id", event.Order.ID, "status", event.Order.Status)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

var _ port.EventPublisher = (*LogPublisher)(nil)
