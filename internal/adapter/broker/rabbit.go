package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/order-service/internal/core/domain"
)

// DeclareTopology declares the topic exchange and one durable queue per event,
// bound on the event's routing key. Publisher and consumer both call it, so
// events published before any worker has started are kept.
func DeclareTopology(ch *amqp.Channel, exchange string, events []domain.EventName) error {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, name := range events {
		key, err := RoutingKey(name)
		if err != nil {
			return err
		}
		queue, err := QueueName(name)
		if err != nil {
			return err
		}

		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}
