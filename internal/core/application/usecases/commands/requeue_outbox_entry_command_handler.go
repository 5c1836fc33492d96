package commands

import (
	"context"
	"errors"
	"log/slog"

	"ordering/internal/core/ports"
	"ordering/internal/pkg/clock"
	"ordering/internal/pkg/errs"
)

type RequeueOutboxEntryCommandHandler interface {
	Handle(ctx context.Context, command RequeueOutboxEntryCommand) error
}

type requeueOutboxEntryCommandHandler struct {
	uowFactory ports.UnitOfWorkFactory
	clock      clock.Clock
	logger     *slog.Logger
}

func NewRequeueOutboxEntryCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	clk clock.Clock,
	logger *slog.Logger,
) (RequeueOutboxEntryCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &requeueOutboxEntryCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
		logger:     logger.With("component", "RequeueOutboxEntryCommandHandler"),
	}, nil
}

// Handle fails with errs.ConflictError unless the entry is Failed.
func (h *requeueOutboxEntryCommandHandler) Handle(ctx context.Context, command RequeueOutboxEntryCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OutboxRepository()

	entry, err := repo.Get(ctx, command.EventID())
	if err != nil {
		return err
	}

	if err = entry.Requeue(h.clock.Now()); err != nil {
		if errors.Is(err, errs.ErrInvalidTransition) {
			return errs.NewConflictErrorWithCause("outbox entry", command.EventID().String(), err)
		}
		return err
	}

	if err = repo.Update(ctx, entry, ""); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "outbox entry requeued",
		"event_id", entry.EventID().String(),
		"order_id", entry.AggregateID().String(),
		"topic", entry.Topic(),
	)
	return nil
}
