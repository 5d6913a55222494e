package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

// AsyncDispatcher buffers events in a channel drained by a fixed worker pool.
// Dispatch never blocks: a full queue drops the event.
type AsyncDispatcher struct {
	publisher port.EventPublisher
	queue     chan domain.Event
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(publisher port.EventPublisher, queueSize, workers int, publishTimeout time.Duration, logger *slog.Logger) *AsyncDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}

	d := &AsyncDispatcher{
		publisher: publisher,
		queue:     make(chan domain.Event, queueSize),
		timeout:   publishTimeout,
		logger:    logger,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	return d
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, event domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		eventsDropped.WithLabelValues(string(event.Name)).Inc()
		d.logger.ErrorContext(ctx, "dispatcher closed, event dropped", "event", event.Name, "event_id", event.ID, "order_id", event.Order.ID)
		return
	}

	select {
	case d.queue <- event:
		eventsDispatched.WithLabelValues(string(event.Name)).Inc()
	default:
		eventsDropped.WithLabelValues(string(event.Name)).Inc()
		d.logger.ErrorContext(ctx, "dispatch queue full, event dropped", "event", event.Name, "event_id", event.ID, "order_id", event.Order.ID)
	}
}

func (d *AsyncDispatcher) workerLoop(id int) {
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		start := time.Now()

		err := d.publisher.Publish(ctx, event)
		publishDuration.WithLabelValues(string(event.Name)).Observe(float64(time.Since(start).Milliseconds()))

		if err != nil {
			eventsPublished.WithLabelValues(string(event.Name), "error").Inc()
			d.logger.Error("publish failed", "worker", id, "event", event.Name, "event_id", event.ID, "order_id", event.Order.ID, "error", err)
		} else {
			eventsPublished.WithLabelValues(string(event.Name), "ok").Inc()
			d.logger.Debug("event published", "worker", id, "event", event.Name, "event_id", event.ID, "order_id", event.Order.ID)
		}

		cancel()
	}
}

// Close stops accepting events, drains the queue and waits for workers.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

var _ port.EventDispatcher = (*AsyncDispatcher)(nil)
