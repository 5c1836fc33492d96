// Package inbox records integration events that were already applied, so
// redelivered messages can be acknowledged without a second effect.
package inbox

import (
	"errors"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var ErrProcessedEventIsNotConstructed = errors.New("ProcessedEvent must be created via NewProcessedEvent constructor")

type ProcessedEvent struct {
	eventID     kernel.UUID
	eventType   string
	processedAt time.Time

	guard guard.ConstructorGuard
}

func NewProcessedEvent(eventID kernel.UUID, eventType string, processedAt time.Time) (*ProcessedEvent, error) {
	if err := eventID.Validate(); err != nil {
		return nil, err
	}
	if eventType == "" {
		return nil, errs.NewValueIsRequiredError("event type")
	}
	return &ProcessedEvent{
		eventID:     eventID,
		eventType:   eventType,
		processedAt: processedAt,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

func (p *ProcessedEvent) Validate() error {
	if p == nil {
		return ErrProcessedEventIsNotConstructed
	}
	return p.guard.Validate(ErrProcessedEventIsNotConstructed)
}

func (p *ProcessedEvent) EventID() kernel.UUID {
	return p.eventID
}

func (p *ProcessedEvent) EventType() string {
	return p.eventType
}

func (p *ProcessedEvent) ProcessedAt() time.Time {
	return p.processedAt
}
