package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/order-service/internal/adapter/broker"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

// RabbitPublisher publishes events to a durable topic exchange and waits for
// the broker confirm, so an event counts as delivered only once persisted.
type RabbitPublisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

// NewRabbitPublisher declares the exchange with the job queue of every event
// and enables publisher confirms.
func NewRabbitPublisher(ch *amqp.Channel, exchange string) (*RabbitPublisher, error) {
	if exchange == "" {
		exchange = broker.DefaultExchange
	}

	if err := broker.DeclareTopology(ch, exchange, domain.AllEvents); err != nil {
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitPublisher{ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event domain.Event) error {
	key, err := broker.RoutingKey(event.Name)
	if err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Name),
		Timestamp:    event.OccurredAt,
		Headers: amqp.Table{
			broker.EventHeader: string(event.Name),
			"order_id":         strconv.FormatInt(event.Order.ID, 10),
		},
		Body: body,
	}

	p.mu.Lock()
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, key, false, false, pub)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker nacked event %s", event.ID)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

var _ port.EventPublisher = (*RabbitPublisher)(nil)
