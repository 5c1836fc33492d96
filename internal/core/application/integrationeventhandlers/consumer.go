// Package integrationeventhandlers applies integration events received from
// other services to orders, exactly once per event id.
package integrationeventhandlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordering/internal/core/application/integrationevents"
	"ordering/internal/core/application/usecases/commands"
	"ordering/internal/core/domain/model/inbox"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/clock"
	"ordering/internal/pkg/errs"
)

// Message is one delivery from the bus.
type Message struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
}

// Result tells the transport what to do with a delivery.
type Result int

const (
	// Ack commits the delivery; it will not be seen again.
	Ack Result = iota
	// Nack leaves the delivery for redelivery.
	Nack
)

func (r Result) String() string {
	if r == Ack {
		return "ack"
	}
	return "nack"
}

// DefaultEffects maps the inbound catalogue onto command effects.
func DefaultEffects() map[string]commands.Effect {
	return map[string]commands.Effect{
		integrationevents.OrderStockConfirmed:   commands.EffectConfirmStock,
		integrationevents.OrderStockRejected:    commands.EffectCancel,
		integrationevents.OrderPaymentSucceeded: commands.EffectConfirmPayment,
		integrationevents.OrderPaymentFailed:    commands.EffectCancel,
		integrationevents.GracePeriodConfirmed:  commands.EffectAwaitValidation,
	}
}

type ConsumerConfig struct {
	// Timeout bounds the handling of one message. Zero disables it.
	Timeout time.Duration
}

// Consumer turns inbound integration events into status-change commands.
//
// The order change, its outbox entries and the processed-event record are
// written in one transaction, so a redelivered event is recognised even after
// a crash between commit and bus ack.
type Consumer struct {
	uowFactory ports.UnitOfWorkFactory
	handler    commands.ChangeOrderStatusCommandHandler
	cache      ports.ProcessedEventCache
	effects    map[string]commands.Effect
	clock      clock.Clock
	config     ConsumerConfig
	logger     *slog.Logger
}

// NewConsumer accepts a nil cache; the inbox table alone then dedupes.
func NewConsumer(
	uowFactory ports.UnitOfWorkFactory,
	handler commands.ChangeOrderStatusCommandHandler,
	cache ports.ProcessedEventCache,
	clk clock.Clock,
	config ConsumerConfig,
	logger *slog.Logger,
) (*Consumer, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if handler == nil {
		return nil, errs.NewValueIsRequiredError("handler")
	}
	if cache == nil {
		cache = noopCache{}
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		uowFactory: uowFactory,
		handler:    handler,
		cache:      cache,
		effects:    DefaultEffects(),
		clock:      clk,
		config:     config,
		logger:     logger.With("component", "IntegrationEventConsumer"),
	}, nil
}

// OnMessage handles one delivery. Messages that can never succeed (malformed,
// unknown type, rejected command) are logged and acked; only retryable
// failures are nacked.
func (c *Consumer) OnMessage(ctx context.Context, msg Message) Result {
	in, err := integrationevents.Unmarshal(msg.Payload)
	if err != nil {
		c.logger.WarnContext(ctx, "dropping malformed message", "topic", msg.Topic, "error", err)
		return Ack
	}

	log := c.logger.With(
		"event_id", in.EventID.String(),
		"event_type", in.EventType,
		"order_id", in.OrderID.String(),
	)

	effect, ok := c.effects[in.EventType]
	if !ok {
		log.InfoContext(ctx, "ignoring unknown integration event", "topic", msg.Topic)
		return Ack
	}

	if c.seen(ctx, log, in.EventID) {
		log.DebugContext(ctx, "duplicate delivery skipped by cache")
		return Ack
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	applied, err := c.applyWithReload(ctx, in, effect)
	switch {
	case errors.Is(err, errDuplicate):
		log.DebugContext(ctx, "duplicate delivery skipped by inbox")
		c.remember(ctx, log, in.EventID)
		return Ack
	case err != nil && errs.IsRejected(err):
		log.WarnContext(ctx, "integration event rejected", "effect", string(effect), "error", err)
		return Ack
	case err != nil:
		log.WarnContext(ctx, "integration event will be redelivered", "effect", string(effect), "error", err)
		return Nack
	}

	c.remember(ctx, log, in.EventID)
	log.InfoContext(ctx, "integration event processed", "effect", string(effect), "applied", applied)
	return Ack
}

var errDuplicate = errors.New("event already processed")

// concurrentUpdateAttempts bounds how often a message is re-applied after
// losing an optimistic-concurrency race within one delivery.
const concurrentUpdateAttempts = 3

// applyWithReload re-runs apply when the order changed underneath it. An
// invalid transition is final and is not retried.
func (c *Consumer) applyWithReload(ctx context.Context, in integrationevents.Inbound, effect commands.Effect) (bool, error) {
	var applied bool
	var err error
	for attempt := 1; attempt <= concurrentUpdateAttempts; attempt++ {
		applied, err = c.apply(ctx, in, effect)
		if !errors.Is(err, errs.ErrConflict) || errors.Is(err, errs.ErrInvalidTransition) {
			break
		}
	}
	return applied, err
}

func (c *Consumer) apply(ctx context.Context, in integrationevents.Inbound, effect commands.Effect) (bool, error) {
	cmd, err := commands.NewChangeOrderStatusCommand(in.OrderID, effect)
	if err != nil {
		return false, err
	}

	if err = c.handler.AwaitValidation(ctx, cmd); err != nil {
		return false, err
	}

	uow := c.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return false, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	inboxRepo := uow.ProcessedEventRepository()

	exists, err := inboxRepo.Exists(ctx, in.EventID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, errDuplicate
	}

	applied, err := c.handler.Apply(ctx, uow, cmd)
	if err != nil {
		return false, err
	}

	processed, err := inbox.NewProcessedEvent(in.EventID, in.EventType, c.clock.Now())
	if err != nil {
		return false, err
	}
	if err = inboxRepo.Add(ctx, processed); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return false, errDuplicate
		}
		return false, err
	}

	if err = uow.Commit(ctx); err != nil {
		return false, err
	}
	return applied, nil
}

func (c *Consumer) seen(ctx context.Context, log *slog.Logger, eventID kernel.UUID) bool {
	seen, err := c.cache.Seen(ctx, eventID)
	if err != nil {
		log.WarnContext(ctx, "processed-event cache unavailable", "error", err)
		return false
	}
	return seen
}

func (c *Consumer) remember(ctx context.Context, log *slog.Logger, eventID kernel.UUID) {
	if err := c.cache.Remember(ctx, eventID); err != nil {
		log.WarnContext(ctx, "failed to cache processed event", "error", err)
	}
}

type noopCache struct{}

func (noopCache) Seen(context.Context, kernel.UUID) (bool, error) { return false, nil }

func (noopCache) Remember(context.Context, kernel.UUID) error { return nil }
