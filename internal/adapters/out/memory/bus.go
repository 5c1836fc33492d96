package memory

import (
	"context"
	"maps"
	"sync"

	"ordering/internal/core/ports"
)

// Bus records published messages. Failures can be scripted for tests.
type Bus struct {
	mu        sync.Mutex
	published []ports.OutboundMessage
	attempts  int
	failures  []error
	onPublish func(ports.OutboundMessage)
}

func NewBus() *Bus {
	return &Bus{}
}

// FailNext makes the next n Publish calls return err.
func (b *Bus) FailNext(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		b.failures = append(b.failures, err)
	}
}

// OnPublish installs a hook that runs for every attempt, before it is
// recorded. The hook must not call back into the bus.
func (b *Bus) OnPublish(fn func(ports.OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPublish = fn
}

func (b *Bus) Publish(ctx context.Context, msg ports.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	hook := b.onPublish
	b.attempts++
	var failure error
	if len(b.failures) > 0 {
		failure = b.failures[0]
		b.failures = b.failures[1:]
	}
	b.mu.Unlock()

	if hook != nil {
		hook(msg)
	}
	if failure != nil {
		return failure
	}

	msg.Headers = maps.Clone(msg.Headers)
	b.mu.Lock()
	b.published = append(b.published, msg)
	b.mu.Unlock()
	return nil
}

// Published returns the acknowledged messages in publish order.
func (b *Bus) Published() []ports.OutboundMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ports.OutboundMessage, len(b.published))
	copy(out, b.published)
	return out
}

// Attempts counts every Publish call, failed ones included.
func (b *Bus) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
