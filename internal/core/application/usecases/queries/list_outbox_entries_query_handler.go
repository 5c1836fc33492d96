package queries

import (
	"context"

	"ordering/internal/core/ports"
)

type ListOutboxEntriesQueryHandler struct {
	uowFactory ports.UnitOfWorkFactory
}

func NewListOutboxEntriesQueryHandler(uowFactory ports.UnitOfWorkFactory) ListOutboxEntriesQueryHandler {
	return ListOutboxEntriesQueryHandler{uowFactory: uowFactory}
}

func (h ListOutboxEntriesQueryHandler) Handle(
	ctx context.Context,
	query ListOutboxEntriesQuery,
) ([]OutboxEntryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	entries, err := h.uowFactory.Create().OutboxRepository().ListByState(ctx, query.State(), query.Limit())
	if err != nil {
		return nil, err
	}

	result := make([]OutboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, OutboxEntryResponse{
			EventID:       e.EventID(),
			OrderID:       e.AggregateID(),
			Topic:         e.Topic(),
			EventType:     e.EventType(),
			State:         e.State().String(),
			Attempts:      e.Attempts(),
			LastError:     e.LastError(),
			CreatedAt:     e.CreatedAt(),
			PublishedAt:   e.PublishedAt(),
			NextAttemptAt: e.NextAttemptAt(),
		})
	}
	return result, nil
}
