package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/order-service/internal/adapter/broker"
	"github.com/rl1809/order-service/internal/core/domain"
)

// Router consumes one queue per registered event on a single AMQP channel.
type Router struct {
	ch           *amqp.Channel
	handler      Handler
	logger       *slog.Logger
	prefetch     int
	callTimeout  time.Duration
	requeueOnErr bool
	queues       []string
}

type RouterOption func(*Router)

// WithPrefetch and WithTimeout ignore non-positive values.
func WithPrefetch(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.prefetch = n
		}
	}
}

func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

func WithRequeue(b bool) RouterOption { return func(r *Router) { r.requeueOnErr = b } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch *amqp.Channel, handler Handler, logger *slog.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		ch:           ch,
		handler:      handler,
		logger:       logger,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Consume adds the job queue of each event to the router.
func (r *Router) Consume(events ...domain.EventName) error {
	for _, name := range events {
		queue, err := broker.QueueName(name)
		if err != nil {
			return err
		}
		r.queues = append(r.queues, queue)
	}
	return nil
}

// Run consumes every queue until ctx is cancelled or the channel closes.
func (r *Router) Run(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, queue := range r.queues {
		tag := "c_" + queue
		deliveries, err := r.ch.ConsumeWithContext(ctx, queue, tag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", queue, err)
		}

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						if ctx.Err() != nil {
							return nil
						}
						r.logger.Warn("consumer stopped", "queue", queue, "tag", tag)
						return fmt.Errorf("deliveries closed for %s", queue)
					}
					r.handleDelivery(ctx, queue, d)
				}
			}
		})
	}
	return g.Wait()
}

func (r *Router) handleDelivery(ctx context.Context, queue string, d amqp.Delivery) {
	event, err := decodeEvent(d.Body)
	if err != nil {
		r.logger.Error("bad message dropped", "queue", queue, "rk", d.RoutingKey, "error", err)
		jobsHandled.WithLabelValues("unknown", "poison").Inc()
		_ = d.Nack(false, false)
		return
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
	err = r.handler.Handle(callCtx, event)
	cancel()

	if errors.Is(err, ErrUnknownEvent) {
		r.logger.Error("no job for event", "queue", queue, "event", event.Name, "event_id", event.ID)
		jobsHandled.WithLabelValues(string(event.Name), "poison").Inc()
		_ = d.Nack(false, false)
		return
	}
	if err != nil {
		r.logger.Error("handler error", "queue", queue, "rk", d.RoutingKey, "event_id", event.ID, "error", err, "requeue", r.requeueOnErr)
		jobsHandled.WithLabelValues(string(event.Name), "error").Inc()
		_ = d.Nack(false, r.requeueOnErr)
		return
	}
	_ = d.Ack(false)
}
