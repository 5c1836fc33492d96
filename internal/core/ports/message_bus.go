package ports

import (
	"context"

	"ordering/internal/core/domain/model/kernel"
)

// OutboundMessage is one integration event ready for the bus. Key carries the
// order id so a partitioned bus keeps an order's events together.
type OutboundMessage struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
}

// MessageBus publishes integration events. A nil error is the bus ack.
type MessageBus interface {
	Publish(ctx context.Context, msg OutboundMessage) error
}

// ProcessedEventCache is a fast, lossy front for the processed-event inbox.
// A miss never means "not processed"; the inbox table stays authoritative.
type ProcessedEventCache interface {
	Seen(ctx context.Context, eventID kernel.UUID) (bool, error)
	Remember(ctx context.Context, eventID kernel.UUID) error
}
