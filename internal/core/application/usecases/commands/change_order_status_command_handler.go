package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// transition binds an effect to the aggregate operation that performs it.
type transition struct {
	target order.Status
	apply  func(*order.Order) error

	// awaitsValidation marks effects confirmed by an external service; the
	// handler can model that service's latency.
	awaitsValidation bool
}

var transitions = map[Effect]transition{
	EffectAwaitValidation: {target: order.AwaitingValidation, apply: (*order.Order).SetAwaitingValidationStatus},
	EffectConfirmStock:    {target: order.StockConfirmed, apply: (*order.Order).SetStockConfirmedStatus, awaitsValidation: true},
	EffectConfirmPayment:  {target: order.Paid, apply: (*order.Order).SetPaidStatus, awaitsValidation: true},
	EffectShip:            {target: order.Shipped, apply: (*order.Order).SetShippedStatus},
	EffectCancel:          {target: order.Cancelled, apply: (*order.Order).Cancel},
}

// ChangeOrderStatusConfig tunes the handler. Zero values disable the feature.
type ChangeOrderStatusConfig struct {
	// Timeout bounds one Handle call. On expiry the caller gets
	// errs.UnavailableError and the transaction is rolled back.
	Timeout time.Duration

	// ValidationDelay simulates the external validation of stock and payment.
	ValidationDelay time.Duration
}

type ChangeOrderStatusCommandHandler interface {
	// Handle runs the command in its own transaction. applied is false when
	// the order already reached the requested status.
	Handle(ctx context.Context, command ChangeOrderStatusCommand) (applied bool, err error)

	// Apply runs the command inside a transaction owned by the caller.
	// Callers run AwaitValidation first, before they begin that transaction.
	Apply(ctx context.Context, uow ports.UnitOfWork, command ChangeOrderStatusCommand) (applied bool, err error)

	// AwaitValidation waits out the external validation latency of stock and
	// payment confirmations. It must not be called with a transaction open.
	AwaitValidation(ctx context.Context, command ChangeOrderStatusCommand) error
}

type changeOrderStatusCommandHandler struct {
	uowFactory ports.UnitOfWorkFactory
	dispatcher DomainEventDispatcher
	config     ChangeOrderStatusConfig
	logger     *slog.Logger
}

func NewChangeOrderStatusCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	dispatcher DomainEventDispatcher,
	config ChangeOrderStatusConfig,
	logger *slog.Logger,
) (ChangeOrderStatusCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if dispatcher == nil {
		return nil, errs.NewValueIsRequiredError("dispatcher")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &changeOrderStatusCommandHandler{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger.With("component", "ChangeOrderStatusCommandHandler"),
	}, nil
}

func (h *changeOrderStatusCommandHandler) Handle(ctx context.Context, command ChangeOrderStatusCommand) (bool, error) {
	if err := command.Validate(); err != nil {
		return false, err
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	if err := h.AwaitValidation(ctx, command); err != nil {
		return false, h.classify(ctx, err)
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, h.classify(ctx, err)
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	applied, err := h.Apply(ctx, uow, command)
	if err != nil {
		return false, h.classify(ctx, err)
	}

	if err = uow.Commit(ctx); err != nil {
		return false, h.classify(ctx, err)
	}

	return applied, nil
}

func (h *changeOrderStatusCommandHandler) Apply(
	ctx context.Context,
	uow ports.UnitOfWork,
	command ChangeOrderStatusCommand,
) (bool, error) {
	if err := command.Validate(); err != nil {
		return false, err
	}
	t := transitions[command.Effect()]

	orderRepo := uow.OrderRepository()

	o, err := orderRepo.Get(ctx, command.OrderID())
	if err != nil {
		return false, err
	}

	if o.Status().HasReached(t.target) {
		h.logger.DebugContext(ctx, "status change already applied",
			"order_id", o.ID().String(),
			"status", o.Status().String(),
			"effect", string(command.Effect()),
		)
		return false, nil
	}

	from := o.Status()
	if err = t.apply(o); err != nil {
		if errors.Is(err, errs.ErrInvalidTransition) {
			return false, errs.NewConflictErrorWithCause("order", o.ID().String(), err)
		}
		return false, err
	}

	if err = orderRepo.Update(ctx, o); err != nil {
		return false, err
	}

	if err = h.dispatcher.Dispatch(ctx, uow, o.DomainEvents()); err != nil {
		return false, err
	}
	o.ClearDomainEvents()

	h.logger.InfoContext(ctx, "order status changed",
		"order_id", o.ID().String(),
		"from", from.String(),
		"to", o.Status().String(),
		"version", o.Version(),
	)
	return true, nil
}

func (h *changeOrderStatusCommandHandler) AwaitValidation(ctx context.Context, command ChangeOrderStatusCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}
	if !transitions[command.Effect()].awaitsValidation || h.config.ValidationDelay <= 0 {
		return nil
	}
	return sleep(ctx, h.config.ValidationDelay)
}

// classify maps a failure to the caller-facing taxonomy: rejected errors pass
// through, an expired deadline is Unavailable, anything else is transient.
func (h *changeOrderStatusCommandHandler) classify(ctx context.Context, err error) error {
	switch {
	case errs.IsRejected(err):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errs.NewUnavailableError("change order status", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errs.NewTransientError("change order status", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
