package jobs

import (
	"context"
	"log/slog"

	"github.com/rl1809/order-service/internal/core/domain"
)

// NewOrderJobs registers the order lifecycle jobs. Their bodies only record
// that the job ran; fulfilment, shipping mail and refunds live elsewhere.
func NewOrderJobs(logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.Default()
	}

	mux := NewMux()
	for _, name := range domain.AllEvents {
		mux.Register(name, logJob(name, logger))
	}
	return mux
}

func logJob(name domain.EventName, logger *slog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, event domain.Event) error {
		items, err := event.Order.LineItems()
		if err != nil {
			// product_list is opaque to the lifecycle; logged, not retried
			logger.WarnContext(ctx, "unreadable product list", "job", name, "order_id", event.Order.ID, "error", err)
		}

		logger.InfoContext(ctx, "job handled",
			"job", name,
			"event_id", event.ID,
			"order_id", event.Order.ID,
			"user_id", event.Order.UserID,
			"status", event.Order.Status,
			"items", len(items),
		)
		jobsHandled.WithLabelValues(string(name), "ok").Inc()
		return nil
	})
}
