package broker

import (
	"fmt"

	"github.com/rl1809/order-service/internal/core/domain"
)

const (
	DefaultExchange = "orders.events"
	// EventHeader carries the event name on Kafka messages and AMQP publishings.
	EventHeader = "event"
)

type route struct {
	routingKey string
	queue      string
}

var routes = map[domain.EventName]route{
	domain.EventProcessOrder:   {routingKey: "order.process", queue: "jobs.process_order"},
	domain.EventOrderShipped:   {routingKey: "order.shipped", queue: "jobs.order_shipped"},
	domain.EventOrderCompleted: {routingKey: "order.completed", queue: "jobs.order_completed"},
	domain.EventOrderCancelled: {routingKey: "order.cancelled", queue: "jobs.order_cancelled"},
}

// RoutingKey is the topic-exchange key an event is published under.
func RoutingKey(name domain.EventName) (string, error) {
	r, ok := routes[name]
	if !ok {
		return "", fmt.Errorf("no route for event %q", name)
	}
	return r.routingKey, nil
}

// QueueName is the durable job queue bound to an event's routing key.
func QueueName(name domain.EventName) (string, error) {
	r, ok := routes[name]
	if !ok {
		return "", fmt.Errorf("no route for event %q", name)
	}
	return r.queue, nil
}
