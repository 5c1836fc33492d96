package outbox

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var ErrEntryIsNotConstructed = errors.New("Entry must be created via NewEntry constructor")

// State of an outbox entry.
//
//	Pending ──> Published
//	   │  ▲
//	   ▼  │ (operator requeue)
//	 Failed
type State int

const (
	Unknown State = iota
	Pending
	Published
	Failed
)

var stateNames = map[State]string{
	Unknown:   "Unknown",
	Pending:   "Pending",
	Published: "Published",
	Failed:    "Failed",
}

func (s State) String() string {
	if str, ok := stateNames[s]; ok {
		return str
	}
	return "Unknown"
}

func (s State) Validate() error {
	if s < Pending || s > Failed {
		return errs.NewValueIsInvalidErrorWithCause("state is invalid", fmt.Errorf("%d is not a valid outbox state", s))
	}
	return nil
}

// ParseState accepts the state name in any case.
func ParseState(s string) (State, error) {
	for state, name := range stateNames {
		if state != Unknown && strings.EqualFold(name, s) {
			return state, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("state", fmt.Errorf("%q is not a valid outbox state", s))
}

// Entry is a durable integration event waiting to be relayed to the bus.
// Entries of one aggregate are delivered in append (sequence) order.
type Entry struct {
	eventID     kernel.UUID
	aggregateID kernel.UUID
	sequence    int64
	topic       string
	eventType   string
	payload     []byte
	headers     map[string]string

	state         State
	attempts      int
	lastError     string
	createdAt     time.Time
	publishedAt   *time.Time
	nextAttemptAt time.Time

	guard guard.ConstructorGuard
}

// NewEntry creates a Pending entry, immediately eligible for relay.
func NewEntry(
	eventID kernel.UUID,
	aggregateID kernel.UUID,
	topic string,
	eventType string,
	payload []byte,
	headers map[string]string,
	createdAt time.Time,
) (*Entry, error) {
	if err := errors.Join(
		eventID.Validate(),
		aggregateID.Validate(),
		required("topic", topic),
		required("event type", eventType),
		requiredPayload(payload),
	); err != nil {
		return nil, err
	}

	return &Entry{
		eventID:       eventID,
		aggregateID:   aggregateID,
		topic:         topic,
		eventType:     eventType,
		payload:       payload,
		headers:       maps.Clone(headers),
		state:         Pending,
		createdAt:     createdAt,
		nextAttemptAt: createdAt,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

// Snapshot carries the persisted columns of an entry.
type Snapshot struct {
	EventID       kernel.UUID
	AggregateID   kernel.UUID
	Sequence      int64
	Topic         string
	EventType     string
	Payload       []byte
	Headers       map[string]string
	State         State
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
	NextAttemptAt time.Time
}

// RestoreEntry rebuilds an entry loaded from persistence.
func RestoreEntry(s Snapshot) (*Entry, error) {
	e, err := NewEntry(s.EventID, s.AggregateID, s.Topic, s.EventType, s.Payload, s.Headers, s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err = s.State.Validate(); err != nil {
		return nil, err
	}
	if s.Attempts < 0 {
		return nil, errs.NewValueIsOutOfRangeError("attempts", s.Attempts, 0, "unbounded")
	}

	e.sequence = s.Sequence
	e.state = s.State
	e.attempts = s.Attempts
	e.lastError = s.LastError
	e.publishedAt = s.PublishedAt
	e.nextAttemptAt = s.NextAttemptAt
	return e, nil
}

// Snapshot exports the entry for persistence adapters.
func (e *Entry) Snapshot() Snapshot {
	return Snapshot{
		EventID:       e.eventID,
		AggregateID:   e.aggregateID,
		Sequence:      e.sequence,
		Topic:         e.topic,
		EventType:     e.eventType,
		Payload:       e.payload,
		Headers:       maps.Clone(e.headers),
		State:         e.state,
		Attempts:      e.attempts,
		LastError:     e.lastError,
		CreatedAt:     e.createdAt,
		PublishedAt:   e.publishedAt,
		NextAttemptAt: e.nextAttemptAt,
	}
}

func (e *Entry) Validate() error {
	if e == nil {
		return ErrEntryIsNotConstructed
	}
	return e.guard.Validate(ErrEntryIsNotConstructed)
}

func (e *Entry) EventID() kernel.UUID {
	return e.eventID
}

func (e *Entry) AggregateID() kernel.UUID {
	return e.aggregateID
}

func (e *Entry) Sequence() int64 {
	return e.sequence
}

func (e *Entry) Topic() string {
	return e.topic
}

func (e *Entry) EventType() string {
	return e.eventType
}

func (e *Entry) Payload() []byte {
	return e.payload
}

func (e *Entry) Headers() map[string]string {
	return maps.Clone(e.headers)
}

func (e *Entry) State() State {
	return e.state
}

func (e *Entry) Attempts() int {
	return e.attempts
}

func (e *Entry) LastError() string {
	return e.lastError
}

func (e *Entry) CreatedAt() time.Time {
	return e.createdAt
}

func (e *Entry) PublishedAt() *time.Time {
	return e.publishedAt
}

func (e *Entry) NextAttemptAt() time.Time {
	return e.nextAttemptAt
}

// MarkPublished records a successful publish.
func (e *Entry) MarkPublished(at time.Time) error {
	if e.state != Pending {
		return errs.NewInvalidTransitionError(e.state, Published)
	}
	e.state = Published
	e.publishedAt = &at
	e.lastError = ""
	return nil
}

// RecordFailedAttempt counts a failed publish. Once attempts reach
// maxAttempts the entry is dead-lettered and true is returned; otherwise the
// entry stays Pending until retryAt.
func (e *Entry) RecordFailedAttempt(cause error, maxAttempts int, retryAt time.Time) (bool, error) {
	if e.state != Pending {
		return false, errs.NewInvalidTransitionError(e.state, Failed)
	}
	if maxAttempts < 1 {
		return false, errs.NewValueIsOutOfRangeError("max attempts", maxAttempts, 1, "unbounded")
	}

	e.attempts++
	if cause != nil {
		e.lastError = cause.Error()
	}
	if e.attempts >= maxAttempts {
		e.state = Failed
		return true, nil
	}
	e.nextAttemptAt = retryAt
	return false, nil
}

// Requeue returns a dead-lettered entry to Pending with a fresh retry budget.
func (e *Entry) Requeue(now time.Time) error {
	if e.state != Failed {
		return errs.NewInvalidTransitionError(e.state, Pending)
	}
	e.state = Pending
	e.attempts = 0
	e.nextAttemptAt = now
	return nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errs.NewValueIsRequiredError(name)
	}
	return nil
}

func requiredPayload(payload []byte) error {
	if len(payload) == 0 {
		return errs.NewValueIsRequiredError("payload")
	}
	return nil
}
