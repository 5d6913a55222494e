package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventName string

const (
	EventProcessOrder   EventName = "ProcessOrder"
	EventOrderShipped   EventName = "OrderShipped"
	EventOrderCompleted EventName = "OrderCompleted"
	EventOrderCancelled EventName = "OrderCancelled"
)

// AllEvents lists every event the lifecycle can emit.
var AllEvents = []EventName{
	EventProcessOrder,
	EventOrderShipped,
	EventOrderCompleted,
	EventOrderCancelled,
}

// statusEvents maps a newly assigned status to its notification.
// Processing is present with an empty name: it is a deliberate no-op.
var statusEvents = map[OrderStatus]EventName{
	OrderStatusProcessing: "",
	OrderStatusShipped:    EventOrderShipped,
	OrderStatusCompleted:  EventOrderCompleted,
	OrderStatusCancelled:  EventOrderCancelled,
}

// EventForStatus returns the event to emit when an order moves to status.
func EventForStatus(status OrderStatus) (EventName, bool) {
	name, ok := statusEvents[status]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Event is a named notification carrying the full order. ID is unique per
// emission so at-least-once consumers can deduplicate.
type Event struct {
	ID         string    `json:"event_id"`
	Name       EventName `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Order      Order     `json:"order"`
}

func NewEvent(name EventName, order Order, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		OccurredAt: at,
		Order:      order,
	}
}
