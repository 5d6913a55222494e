package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/order-service/internal/adapter/broker"
	"github.com/rl1809/order-service/internal/core/domain"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}

// KafkaConsumer reads the event topic in a consumer group and commits each
// offset only after its job succeeded.
type KafkaConsumer struct {
	reader  messageReader
	handler Handler
	logger  *slog.Logger
}

func NewKafkaConsumer(reader messageReader, handler Handler, logger *slog.Logger) *KafkaConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaConsumer{reader: reader, handler: handler, logger: logger}
}

// Run blocks until ctx is cancelled. A failing job stops the consumer with
// its offset uncommitted so the group redelivers it.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handleMessage(ctx, msg); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	event, err := decodeEvent(msg.Value)
	if err != nil {
		c.logger.Error("bad message skipped", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		jobsHandled.WithLabelValues("unknown", "poison").Inc()
		return nil
	}
	if name := headerValue(msg, broker.EventHeader); name != "" && domain.EventName(name) != event.Name {
		c.logger.Warn("event header mismatch", "header", name, "event", event.Name, "event_id", event.ID)
	}

	err = c.handler.Handle(ctx, event)
	if errors.Is(err, ErrUnknownEvent) {
		c.logger.Error("no job for event", "event", event.Name, "event_id", event.ID, "offset", msg.Offset)
		jobsHandled.WithLabelValues(string(event.Name), "poison").Inc()
		return nil
	}
	if err != nil {
		jobsHandled.WithLabelValues(string(event.Name), "error").Inc()
		return fmt.Errorf("handle %s %s at offset %d: %w", event.Name, event.ID, msg.Offset, err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
