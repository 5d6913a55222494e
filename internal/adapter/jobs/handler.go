package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rl1809/order-service/internal/core/domain"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	errMissingEventName = errors.New("decode event: missing event name")
)

// Handler processes one delivered event. Deliveries are at-least-once, so
// handlers must tolerate seeing the same event ID twice.
type Handler interface {
	Handle(ctx context.Context, event domain.Event) error
}

type HandlerFunc func(ctx context.Context, event domain.Event) error

func (f HandlerFunc) Handle(ctx context.Context, event domain.Event) error { return f(ctx, event) }

// Mux routes events to the handler registered for their name.
type Mux struct {
	handlers map[domain.EventName]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[domain.EventName]Handler)}
}

func (m *Mux) Register(name domain.EventName, h Handler) {
	m.handlers[name] = h
}

// Events returns the registered event names.
func (m *Mux) Events() []domain.EventName {
	names := make([]domain.EventName, 0, len(m.handlers))
	for _, name := range domain.AllEvents {
		if _, ok := m.handlers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (m *Mux) Handle(ctx context.Context, event domain.Event) error {
	h, ok := m.handlers[event.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Name)
	}
	return h.Handle(ctx, event)
}

func decodeEvent(body []byte) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Name == "" {
		return domain.Event{}, errMissingEventName
	}
	return event, nil
}
