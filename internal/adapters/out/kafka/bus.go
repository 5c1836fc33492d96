// Package kafka publishes outbox entries to Kafka.
package kafka

import (
	"context"
	"slices"
	"time"

	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"

	pkgerrors "github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Bus implements ports.MessageBus. Messages are keyed by order id and
// hash-partitioned, so one order's events stay on one partition in order.
type Bus struct {
	writer messageWriter
}

func NewBus(brokers []string) (*Bus, error) {
	if len(brokers) == 0 {
		return nil, errs.NewValueIsRequiredError("brokers")
	}
	return newBus(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}), nil
}

func newBus(writer messageWriter) *Bus {
	return &Bus{writer: writer}
}

// Publish returns once every in-sync replica acknowledged the message.
func (b *Bus) Publish(ctx context.Context, msg ports.OutboundMessage) error {
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Payload,
		Headers: toHeaders(msg.Headers),
	})
	return pkgerrors.Wrapf(err, "write to %s", msg.Topic)
}

func (b *Bus) Close() error {
	return b.writer.Close()
}

func toHeaders(headers map[string]string) []kafka.Header {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafka.Header{Key: k, Value: []byte(headers[k])})
	}
	return out
}
