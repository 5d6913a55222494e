package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-service/internal/adapter/broker"
	"github.com/rl1809/order-service/internal/core/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Message(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	event := testEvent(42, domain.EventOrderShipped)
	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "OrderShipped", headers[broker.EventHeader])
	assert.Equal(t, event.ID, headers["event_id"])

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, int64(42), decoded.Order.ID)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	cause := errors.New("leader not available")
	p := NewKafkaPublisher(&fakeWriter{err: cause})

	err := p.Publish(context.Background(), testEvent(1, domain.EventProcessOrder))
	assert.ErrorIs(t, err, cause)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "orders.events")
	defer w.Close()

	assert.Equal(t, "orders.events", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
