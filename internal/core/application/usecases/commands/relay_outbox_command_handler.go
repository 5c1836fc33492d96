package commands

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/clock"
	"ordering/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	// Owner identifies this relay instance in lease columns.
	Owner string

	BatchSize      int
	Workers        int
	Lease          time.Duration
	MaxAttempts    int
	PublishTimeout time.Duration

	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// BackoffJitter is the randomization factor of the retry delay, 0 to 1.
	BackoffJitter float64
}

func (c RelayConfig) Validate() error {
	switch {
	case c.Owner == "":
		return errs.NewValueIsRequiredError("owner")
	case c.BatchSize < 1:
		return errs.NewValueIsOutOfRangeError("batch size", c.BatchSize, 1, "unbounded")
	case c.Workers < 1:
		return errs.NewValueIsOutOfRangeError("workers", c.Workers, 1, "unbounded")
	case c.MaxAttempts < 1:
		return errs.NewValueIsOutOfRangeError("max attempts", c.MaxAttempts, 1, "unbounded")
	case c.Lease <= c.PublishTimeout:
		return errs.NewValueIsOutOfRangeError("lease", c.Lease, c.PublishTimeout, "unbounded")
	case c.BackoffJitter < 0 || c.BackoffJitter > 1:
		return errs.NewValueIsOutOfRangeError("backoff jitter", c.BackoffJitter, 0, 1)
	}
	return nil
}

// RelayReport summarizes one relay batch.
type RelayReport struct {
	Claimed      int
	Published    int
	Retried      int
	DeadLettered int
}

type RelayOutboxCommandHandler interface {
	Handle(ctx context.Context, command RelayOutboxCommand) (RelayReport, error)
}

type relayOutboxCommandHandler struct {
	uowFactory ports.UnitOfWorkFactory
	bus        ports.MessageBus
	clock      clock.Clock
	config     RelayConfig
	logger     *slog.Logger
}

func NewRelayOutboxCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	bus ports.MessageBus,
	clk clock.Clock,
	config RelayConfig,
	logger *slog.Logger,
) (RelayOutboxCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if bus == nil {
		return nil, errs.NewValueIsRequiredError("bus")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &relayOutboxCommandHandler{
		uowFactory: uowFactory,
		bus:        bus,
		clock:      clk,
		config:     config,
		logger:     logger.With("component", "OutboxRelay", "owner", config.Owner),
	}, nil
}

// Handle claims a batch, then publishes each order's entries sequentially
// while different orders proceed in parallel on up to Workers goroutines.
func (h *relayOutboxCommandHandler) Handle(ctx context.Context, command RelayOutboxCommand) (RelayReport, error) {
	if err := command.Validate(); err != nil {
		return RelayReport{}, err
	}

	entries, err := h.claim(ctx)
	if err != nil {
		return RelayReport{}, err
	}
	if len(entries) == 0 {
		return RelayReport{}, nil
	}

	var published, retried, dead atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Workers)
	for _, batch := range groupByOrder(entries) {
		g.Go(func() error {
			p, r, d := h.drain(gctx, batch)
			published.Add(int64(p))
			retried.Add(int64(r))
			dead.Add(int64(d))
			return nil
		})
	}
	_ = g.Wait()

	report := RelayReport{
		Claimed:      len(entries),
		Published:    int(published.Load()),
		Retried:      int(retried.Load()),
		DeadLettered: int(dead.Load()),
	}
	h.logger.DebugContext(ctx, "relay batch done",
		"claimed", report.Claimed,
		"published", report.Published,
		"retried", report.Retried,
		"dead_lettered", report.DeadLettered,
	)
	return report, nil
}

func (h *relayOutboxCommandHandler) claim(ctx context.Context) ([]*outbox.Entry, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	entries, err := uow.OutboxRepository().ClaimPending(ctx, ports.OutboxClaim{
		Owner:    h.config.Owner,
		Limit:    h.config.BatchSize,
		LeaseFor: h.config.Lease,
		Now:      h.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}
	return entries, nil
}

// drain publishes one order's entries in order and stops at the first
// failure, releasing the rest so they are retried behind the failed head.
func (h *relayOutboxCommandHandler) drain(ctx context.Context, entries []*outbox.Entry) (published, retried, dead int) {
	repo := h.uowFactory.Create().OutboxRepository()

	for i, e := range entries {
		err := h.publish(ctx, e)
		now := h.clock.Now()

		if err == nil {
			if err = e.MarkPublished(now); err == nil {
				err = repo.Update(ctx, e, h.config.Owner)
			}
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to record publish",
					"event_id", e.EventID().String(), "error", err)
				h.release(ctx, repo, entries[i+1:])
				return published, retried, dead
			}
			published++
			continue
		}

		deadLettered, recErr := e.RecordFailedAttempt(err, h.config.MaxAttempts, now.Add(h.retryDelay(e.Attempts()+1)))
		if recErr == nil {
			recErr = repo.Update(ctx, e, h.config.Owner)
		}
		if recErr != nil {
			h.logger.ErrorContext(ctx, "failed to record publish failure",
				"event_id", e.EventID().String(), "error", recErr)
		}

		if deadLettered {
			dead++
			h.logger.ErrorContext(ctx, "outbox entry dead-lettered",
				"event_id", e.EventID().String(),
				"order_id", e.AggregateID().String(),
				"topic", e.Topic(),
				"attempts", e.Attempts(),
				"error", errs.NewDeliveryFailedError(e.EventID().String(), e.Attempts(), err),
			)
		} else {
			retried++
			h.logger.WarnContext(ctx, "publish failed, will retry",
				"event_id", e.EventID().String(),
				"order_id", e.AggregateID().String(),
				"topic", e.Topic(),
				"attempts", e.Attempts(),
				"next_attempt_at", e.NextAttemptAt(),
				"error", err,
			)
		}

		h.release(ctx, repo, entries[i+1:])
		return published, retried, dead
	}

	return published, retried, dead
}

func (h *relayOutboxCommandHandler) publish(ctx context.Context, e *outbox.Entry) error {
	if h.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.PublishTimeout)
		defer cancel()
	}

	err := h.bus.Publish(ctx, ports.OutboundMessage{
		Topic:   e.Topic(),
		Key:     e.AggregateID().String(),
		Payload: e.Payload(),
		Headers: e.Headers(),
	})
	if err != nil {
		return errs.NewTransientError("publish "+e.Topic(), err)
	}
	return nil
}

func (h *relayOutboxCommandHandler) release(ctx context.Context, repo ports.OutboxRepository, rest []*outbox.Entry) {
	if len(rest) == 0 {
		return
	}
	ids := make([]kernel.UUID, 0, len(rest))
	for _, e := range rest {
		ids = append(ids, e.EventID())
	}
	if err := repo.Release(ctx, h.config.Owner, ids); err != nil {
		// The lease expires on its own; nothing is lost.
		h.logger.WarnContext(ctx, "failed to release outbox leases", "count", len(ids), "error", err)
	}
}

// retryDelay is the exponential delay before the given attempt number.
func (h *relayOutboxCommandHandler) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(h.config.BackoffInitial),
		backoff.WithMaxInterval(h.config.BackoffMax),
		backoff.WithRandomizationFactor(h.config.BackoffJitter),
		backoff.WithMultiplier(2),
		backoff.WithMaxElapsedTime(0),
	)

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// groupByOrder splits claimed entries per order, keeping claim order.
func groupByOrder(entries []*outbox.Entry) [][]*outbox.Entry {
	index := make(map[kernel.UUID]int)
	var groups [][]*outbox.Entry
	for _, e := range entries {
		i, ok := index[e.AggregateID()]
		if !ok {
			i = len(groups)
			index[e.AggregateID()] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}
