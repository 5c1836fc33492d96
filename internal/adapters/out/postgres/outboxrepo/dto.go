// Package outboxrepo stores outbox entries and implements the relay's lease
// claim on top of SELECT ... FOR UPDATE SKIP LOCKED.
package outboxrepo

import (
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/outbox"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EntryDTO is a row of outbox_entries. Sequence is assigned by the database.
type EntryDTO struct {
	EventID       uuid.UUID                             `gorm:"type:uuid;primaryKey"`
	AggregateID   uuid.UUID                             `gorm:"type:uuid;not null"`
	Sequence      int64                                 `gorm:"->;type:bigserial"`
	Topic         string                                `gorm:"not null"`
	EventType     string                                `gorm:"not null"`
	Payload       []byte                                `gorm:"type:bytea;not null"`
	Headers       datatypes.JSONType[map[string]string] `gorm:"type:jsonb;not null"`
	State         string                                `gorm:"not null"`
	Attempts      int                                   `gorm:"not null"`
	LastError     string                                `gorm:"not null"`
	CreatedAt     time.Time                             `gorm:"autoCreateTime:false"`
	PublishedAt   *time.Time
	NextAttemptAt time.Time
	LeaseOwner    *string
	LeaseUntil    *time.Time
}

func (EntryDTO) TableName() string {
	return "outbox_entries"
}

func fromDomain(e *outbox.Entry) EntryDTO {
	s := e.Snapshot()
	headers := s.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return EntryDTO{
		EventID:       s.EventID.Bytes(),
		AggregateID:   s.AggregateID.Bytes(),
		Topic:         s.Topic,
		EventType:     s.EventType,
		Payload:       s.Payload,
		Headers:       datatypes.NewJSONType(headers),
		State:         s.State.String(),
		Attempts:      s.Attempts,
		LastError:     s.LastError,
		CreatedAt:     s.CreatedAt.UTC(),
		PublishedAt:   s.PublishedAt,
		NextAttemptAt: s.NextAttemptAt.UTC(),
	}
}

func toDomain(dto EntryDTO) (*outbox.Entry, error) {
	eventID, err := kernel.UUIDFromBytes(dto.EventID[:])
	if err != nil {
		return nil, err
	}
	aggregateID, err := kernel.UUIDFromBytes(dto.AggregateID[:])
	if err != nil {
		return nil, err
	}
	state, err := outbox.ParseState(dto.State)
	if err != nil {
		return nil, err
	}

	return outbox.RestoreEntry(outbox.Snapshot{
		EventID:       eventID,
		AggregateID:   aggregateID,
		Sequence:      dto.Sequence,
		Topic:         dto.Topic,
		EventType:     dto.EventType,
		Payload:       dto.Payload,
		Headers:       dto.Headers.Data(),
		State:         state,
		Attempts:      dto.Attempts,
		LastError:     dto.LastError,
		CreatedAt:     dto.CreatedAt,
		PublishedAt:   dto.PublishedAt,
		NextAttemptAt: dto.NextAttemptAt,
	})
}
